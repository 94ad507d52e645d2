package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"go-musicbox/config"
	"go-musicbox/hal"
	"go-musicbox/hal/rpi"
	"go-musicbox/midi"
	"go-musicbox/sequencer"
)

// board is what the controller runs on: the hardware plus a way for MIDI
// panels and the TUI to press buttons
type board interface {
	hal.Board
	hal.EdgePoster
}

var runFlags struct {
	board   string
	midiOut string
	song    int
	play    bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the controller headless until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		applyRunFlags(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return run(ctx, cfg)
	},
}

func init() {
	runCmd.Flags().StringVar(&runFlags.board, "board", "", "board backend: sim or rpi")
	runCmd.Flags().StringVar(&runFlags.midiOut, "midi-out", "", "MIDI output port to play the keys on")
	runCmd.Flags().IntVar(&runFlags.song, "song", 0, "song slot selected at boot")
	runCmd.Flags().BoolVar(&runFlags.play, "play", false, "press start once booted")
	rootCmd.AddCommand(runCmd)
}

// applyRunFlags lets flags given on the command line override the config
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("board") {
		cfg.Board = config.BoardType(runFlags.board)
	}
	if cmd.Flags().Changed("midi-out") {
		cfg.MIDI.OutPort = runFlags.midiOut
	}
	if cmd.Flags().Changed("song") {
		cfg.StartSong = runFlags.song
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	songs, err := loadSongs(cfg)
	if err != nil {
		return err
	}

	hw, closeBoard, err := openBoard(cfg)
	if err != nil {
		return err
	}
	defer closeBoard()

	out, silence, err := mirrorKeys(hw, cfg)
	if err != nil {
		return err
	}
	defer silence()

	ctrl, err := sequencer.NewController(out, songs, cfg.Status)
	if err != nil {
		return err
	}
	if err := ctrl.SelectSong(cfg.StartSong); err != nil {
		return err
	}
	if runFlags.play {
		hw.PostButtonEdge(hal.StartPause)
	}

	tick, err := cfg.Tick()
	if err != nil {
		return err
	}

	deviceMgr := midi.NewDeviceManager(cfg.MIDI.InPort, cfg.MIDI.ButtonNotes)
	go deviceMgr.Run(ctx)
	go watch(ctx, ctrl, deviceMgr, hw)

	fmt.Printf("go-musicbox: %d songs on %s board, ctrl+c to stop\n", ctrl.NumSongs(), cfg.Board)
	ctrl.Run(ctx, tick)
	return nil
}

// openBoard opens the configured backend
func openBoard(cfg *config.Config) (board, func(), error) {
	switch cfg.Board {
	case config.BoardRPi:
		delay, err := cfg.DebounceDelay()
		if err != nil {
			return nil, nil, err
		}
		b, err := rpi.Open(cfg.Pins, delay)
		if err != nil {
			return nil, nil, fmt.Errorf("open gpio: %w", err)
		}
		return b, func() { b.Close() }, nil
	default:
		return hal.NewSimBoard(), func() {}, nil
	}
}

// mirrorKeys wraps hw so key changes also play on the configured MIDI
// output. Without an output port hw is returned as is.
func mirrorKeys(hw hal.Board, cfg *config.Config) (hal.Board, func(), error) {
	if cfg.MIDI.OutPort == "" {
		return hw, func() {}, nil
	}
	m, err := midi.OpenKeyMirror(hw, cfg.MIDI.OutPort, midi.MirrorConfig{
		Channel:  cfg.MIDI.Channel,
		BaseNote: cfg.MIDI.BaseNote,
		Velocity: cfg.MIDI.Velocity,
	})
	if err != nil {
		return nil, nil, err
	}
	return m, m.Silence, nil
}

// watch prints state changes, shows the keys on connected MIDI panels and
// turns their presses into button edges
func watch(ctx context.Context, ctrl *sequencer.Controller, deviceMgr *midi.DeviceManager, hw hal.EdgePoster) {
	panels := make(map[string]midi.Controller)
	events := deviceMgr.Events()
	last := ctrl.Snapshot()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ctrl.Updates():
			st := ctrl.Snapshot()
			if st.State != last.State || st.SongID != last.SongID || st.Mode != last.Mode {
				fmt.Printf("%-5s song %d (%s) mode %d\n", st.State, st.SongID, st.Song, st.Mode)
			}
			if st.Keys != last.Keys {
				for _, p := range panels {
					p.ShowKeys(uint32(st.Keys))
				}
			}
			last = st

		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			switch event.Type {
			case midi.DeviceConnected:
				fmt.Printf("panel connected: %s (%v)\n", event.ID, event.Controller.Type())
				panels[event.ID] = event.Controller
				event.Controller.ShowKeys(uint32(last.Keys))
				go midi.ForwardButtons(event.Controller, hw)
			case midi.DeviceDisconnected:
				fmt.Printf("panel disconnected: %s\n", event.ID)
				delete(panels, event.ID)
			}
		}
	}
}
