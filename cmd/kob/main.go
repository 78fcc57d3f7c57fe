// Package main provides the CLI entrypoint for kob.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/morsekob/kob/internal/code"
	"github.com/morsekob/kob/internal/config"
	"github.com/morsekob/kob/internal/model"
	"github.com/morsekob/kob/internal/morse"
	"github.com/morsekob/kob/internal/playui"
	"github.com/morsekob/kob/internal/relay"
	"github.com/morsekob/kob/internal/report"
	"github.com/morsekob/kob/internal/session"
	"github.com/morsekob/kob/internal/stations"
	"github.com/morsekob/kob/internal/store"
	"github.com/morsekob/kob/internal/tui"
	"github.com/morsekob/kob/internal/wire"
)

const (
	defaultWire       = 101
	defaultMaxSilence = 5
	defaultSpeed      = 100
	connectTimeout    = 10 * time.Second
)

var (
	opStation string
	opWire    int
	opServer  string
	opWPM     int
	opSound   bool
	opLocal   bool
	opRemote  bool
	opRecord  bool

	playList       bool
	playMaxSilence int
	playSpeed      int

	recWire  int
	recSince string
	recLast  int
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "kob",
		Short:         "Morse key-on-board operator's station",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runOperateCmd,
	}

	rootCmd.Flags().StringVar(&opStation, "station", "", "station ID announced on the wire")
	rootCmd.Flags().IntVar(&opWire, "wire", defaultWire, "wire number to join")
	rootCmd.Flags().StringVar(&opServer, "server", "", "relay server URL (empty: work offline)")
	rootCmd.Flags().IntVar(&opWPM, "wpm", morse.DefaultWPM, "nominal code speed in words per minute")
	rootCmd.Flags().BoolVar(&opSound, "sound", true, "sound incoming code locally")
	rootCmd.Flags().BoolVar(&opLocal, "local", true, "sound keyboard-sent code on the local sounder")
	rootCmd.Flags().BoolVar(&opRemote, "remote", true, "forward locally keyed code to the wire")
	rootCmd.Flags().BoolVar(&opRecord, "record", false, "record the session to a JSONL log")

	rootCmd.AddCommand(newPlayCmd())
	rootCmd.AddCommand(newRecordingsCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

// uiBridge hands relay callbacks a safe way to message a program that is
// built after the callbacks are.
type uiBridge struct {
	mu sync.Mutex
	p  *tea.Program
}

func (b *uiBridge) set(p *tea.Program) {
	b.mu.Lock()
	b.p = p
	b.mu.Unlock()
}

func (b *uiBridge) Send(msg tea.Msg) {
	b.mu.Lock()
	p := b.p
	b.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// uiRelay forwards router notifications into the operator UI.
type uiRelay struct {
	actives *stations.List
	bridge  *uiBridge
}

func (u *uiRelay) SenderChanged(id string) {
	u.actives.SetCurrent(id)
	u.bridge.Send(tui.SenderMsg{ID: id})
}

func (u *uiRelay) WireChanged(w int) {
	u.bridge.Send(tui.WireMsg{Wire: w})
}

func (u *uiRelay) CodeEmitted(code.Sequence, code.Source) {}

func runOperateCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "station", &opStation, fileCfg.Operator.Station)
	applyIntConfig(cmd, "wire", &opWire, fileCfg.Operator.Wire)
	applyStringConfig(cmd, "server", &opServer, fileCfg.Operator.Server)
	applyIntConfig(cmd, "wpm", &opWPM, fileCfg.Operator.WPM)
	applyBoolConfig(cmd, "sound", &opSound, fileCfg.Operator.Sound)
	applyBoolConfig(cmd, "local", &opLocal, fileCfg.Operator.Local)
	applyBoolConfig(cmd, "remote", &opRemote, fileCfg.Operator.Remote)

	if opWPM <= 0 {
		return fmt.Errorf("--wpm must be > 0")
	}
	if opWire <= 0 {
		return fmt.Errorf("--wire must be > 0")
	}
	if opServer != "" && strings.TrimSpace(opStation) == "" {
		return fmt.Errorf("--station is required when connecting to a server")
	}

	actives := stations.NewList()
	bridge := &uiBridge{}

	reader := morse.NewReader(opWPM, func(char string, spacing float64) {
		bridge.Send(tui.CharMsg{Char: char, Spacing: spacing})
	})

	var rec *session.Recorder
	var appender relay.Appender
	if opRecord {
		dir := config.DefaultRecordingsDir()
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create recordings directory: %w", err)
		}
		rec = session.NewRecorder(dir, "kob", opWire)
		appender = rec
	}

	var router *relay.Router
	var client *wire.Client
	var routerWire relay.Wire
	if opServer != "" {
		client = wire.NewClient(opServer, opStation, wire.Options{
			OnCode: func(station string, seq code.Sequence) {
				actives.Heard(station)
				router.UpdateSender(station)
				router.Route(seq, code.SourceWire)
			},
			OnStation: actives.Heard,
			OnClosed: func(error) {
				router.SetConnected(false)
				bridge.Send(tui.ConnMsg{Connected: false})
			},
		})
		routerWire = client
	}

	router = relay.NewRouter(relay.Config{
		Station: opStation,
		Wire:    opWire,
		Local:   opSound && opLocal,
		Remote:  opRemote,
	}, nil, reader, routerWire, appender)
	router.AddObserver(&uiRelay{actives: actives, bridge: bridge})
	defer router.Close()

	if client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		err := client.Connect(ctx, opWire)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to connect to %s: %w", opServer, err)
		}
		router.SetConnected(true)
		defer func() {
			if derr := client.Disconnect(); derr != nil {
				logErrf("failed to disconnect: %v\n", derr)
			}
		}()
	}

	ui := tui.NewModel(router, morse.NewSender(opWPM), actives, opStation, opWire)
	program := tea.NewProgram(ui, tea.WithAltScreen())
	bridge.set(program)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}

	if rec != nil {
		if err := indexRecording(rec); err != nil {
			return err
		}
	}
	return nil
}

// indexRecording registers a finished session log in the SQLite index.
// Sessions with no events leave no file and nothing to index.
func indexRecording(rec *session.Recorder) error {
	sum := rec.Summary()
	if sum.Events == 0 {
		return nil
	}
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()
	err = st.InsertRecording(context.Background(), model.Recording{
		ID:        uuid.NewString(),
		Path:      rec.Path(),
		Wire:      sum.Wire,
		Stations:  sum.Stations,
		Events:    sum.Events,
		StartedAt: sum.Started,
		EndedAt:   sum.Ended,
	})
	if err != nil {
		return err
	}
	logErrf("recorded %d events to %s\n", sum.Events, rec.Path())
	return nil
}

func newPlayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play <file>",
		Short: "Play back a recorded session",
		Args:  cobra.ExactArgs(1),
		RunE:  runPlayCmd,
	}
	cmd.Flags().BoolVar(&playList, "list", false, "print the log lines instead of playing")
	cmd.Flags().IntVar(&playMaxSilence, "max-silence", defaultMaxSilence, "cap on reproduced silences in seconds (0: uncapped)")
	cmd.Flags().IntVar(&playSpeed, "speed", defaultSpeed, "playback speed percentage")
	return cmd
}

func runPlayCmd(cmd *cobra.Command, args []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyIntConfig(cmd, "max-silence", &playMaxSilence, fileCfg.Playback.MaxSilence)
	applyIntConfig(cmd, "speed", &playSpeed, fileCfg.Playback.Speed)
	if playSpeed <= 0 {
		return fmt.Errorf("--speed must be > 0")
	}
	if playMaxSilence < 0 {
		return fmt.Errorf("--max-silence must be >= 0")
	}

	path := args[0]
	events, raws, skipped, err := session.LoadRecording(path)
	if err != nil {
		return err
	}
	if skipped > 0 {
		logErrf("skipped %d unparsable lines in %s\n", skipped, path)
	}
	if len(events) == 0 {
		return fmt.Errorf("no playable events in %s", path)
	}

	if playList {
		return listRecording(cmd, events, raws)
	}

	bridge := &uiBridge{}
	reader := morse.NewReader(morse.DefaultWPM, func(char string, spacing float64) {
		bridge.Send(playui.CharMsg{Char: char, Spacing: spacing})
	})
	player := session.NewPlayer(events, raws, session.Options{
		MaxSilence:  time.Duration(playMaxSilence) * time.Second,
		SpeedFactor: playSpeed,
		OnCode: func(seq code.Sequence) {
			reader.Decode(seq)
		},
		OnStation: func(id string) {
			reader.Flush()
			reader.Reset()
			bridge.Send(playui.SenderMsg{ID: id})
		},
		OnWire: func(w int) {
			bridge.Send(playui.WireMsg{Wire: w})
		},
	})

	ui := playui.NewModel(player, path)
	program := tea.NewProgram(ui, tea.WithAltScreen())
	bridge.set(program)

	go func() {
		err := player.Play(context.Background())
		reader.Flush()
		program.Send(playui.DoneMsg{Err: err})
	}()

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run playback TUI: %w", err)
	}
	player.Stop()
	return nil
}

// listRecording echoes the log lines with wall-clock stamps, without
// reproducing the timing.
func listRecording(cmd *cobra.Command, events []session.Event, raws []string) error {
	out := cmd.OutOrStdout()
	var listErr error
	player := session.NewPlayer(events, raws, session.Options{
		List: func(ts time.Time, line string) {
			if listErr != nil {
				return
			}
			if _, err := fmt.Fprintf(out, "%s  %s\n", ts.Local().Format("2006-01-02 15:04:05.000"), line); err != nil {
				listErr = fmt.Errorf("failed to write output: %w", err)
			}
		},
		MaxSilence: time.Millisecond,
	})
	if err := player.Play(context.Background()); err != nil {
		return err
	}
	return listErr
}

func newRecordingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recordings",
		Short: "List recorded sessions",
		Args:  cobra.NoArgs,
		RunE:  runRecordingsCmd,
	}
	cmd.Flags().IntVar(&recWire, "wire", 0, "wire number filter")
	cmd.Flags().StringVar(&recSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&recLast, "last", 0, "limit to last N recordings")
	return cmd
}

func runRecordingsCmd(cmd *cobra.Command, _ []string) error {
	var sinceTime *time.Time
	if recSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", recSince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	rep, err := report.BuildReport(context.Background(), st, model.RecordingsFilter{
		Wire:  recWire,
		Since: sinceTime,
		Last:  recLast,
	})
	if err != nil {
		return err
	}
	return report.Render(cmd.OutOrStdout(), rep)
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# kob configuration
# Uncomment a value to enable it. CLI flags override config values.

[operator]
# station = "KA, My Office"       # Station ID announced on the wire
# wire = %d                      # Wire number to join
# server = "ws://example:8765/wire" # Relay server URL
# wpm = %d                        # Nominal code speed
# sound = true                    # Sound incoming code locally
# local = true                    # Sound keyboard-sent code locally
# remote = true                   # Forward keyed code to the wire

[playback]
# max-silence = %d                 # Cap on reproduced silences (seconds)
# speed = %d                      # Playback speed percentage
`,
		defaultWire,
		morse.DefaultWPM,
		defaultMaxSilence,
		defaultSpeed,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
