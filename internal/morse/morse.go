// Package morse encodes characters to code sequences and decodes code
// sequences back to characters using International Morse timing.
package morse

// DefaultWPM is the nominal decode speed a fresh reader assumes until it
// adapts to the sender's cadence.
const DefaultWPM = 20

// unitMs returns the dot length in milliseconds for a words-per-minute rate
// (PARIS standard: 50 dot units per word).
func unitMs(wpm int) float64 {
	if wpm <= 0 {
		wpm = DefaultWPM
	}
	return 1200.0 / float64(wpm)
}

var encodeTable = map[rune]string{
	'a': ".-", 'b': "-...", 'c': "-.-.", 'd': "-..", 'e': ".",
	'f': "..-.", 'g': "--.", 'h': "....", 'i': "..", 'j': ".---",
	'k': "-.-", 'l': ".-..", 'm': "--", 'n': "-.", 'o': "---",
	'p': ".--.", 'q': "--.-", 'r': ".-.", 's': "...", 't': "-",
	'u': "..-", 'v': "...-", 'w': ".--", 'x': "-..-", 'y': "-.--",
	'z': "--..",
	'0': "-----", '1': ".----", '2': "..---", '3': "...--", '4': "....-",
	'5': ".....", '6': "-....", '7': "--...", '8': "---..", '9': "----.",
	'.': ".-.-.-", ',': "--..--", '?': "..--..", '\'': ".----.",
	'!': "-.-.--", '/': "-..-.", '(': "-.--.", ')': "-.--.-",
	'&': ".-...", ':': "---...", ';': "-.-.-.", '=': "-...-",
	'+': ".-.-.", '-': "-....-", '_': "..--.-", '"': ".-..-.",
	'$': "...-..-", '@': ".--.-.",
}

var decodeTable = buildDecodeTable()

func buildDecodeTable() map[string]rune {
	out := make(map[string]rune, len(encodeTable))
	for ch, sym := range encodeTable {
		out[sym] = ch
	}
	return out
}
