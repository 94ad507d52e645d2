package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"go-musicbox/hal"
	"go-musicbox/midi"
	"go-musicbox/sequencer"
	"go-musicbox/theme"
	"go-musicbox/tui"
)

var panelFlags struct {
	midiOut string
	palette string
}

var panelCmd = &cobra.Command{
	Use:   "panel",
	Short: "Play the music box from a terminal front panel",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("midi-out") {
			cfg.MIDI.OutPort = panelFlags.midiOut
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		th := theme.Default()
		if panelFlags.palette != "" {
			p, err := theme.LoadGPL(panelFlags.palette)
			if err != nil {
				return fmt.Errorf("palette: %w", err)
			}
			th = theme.New(p)
		}

		songs, err := loadSongs(cfg)
		if err != nil {
			return err
		}
		tick, err := cfg.Tick()
		if err != nil {
			return err
		}

		// The panel always runs on the simulated board; its registers
		// are what the status LEDs are drawn from
		board := hal.NewSimBoard()
		out, silence, err := mirrorKeys(board, cfg)
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

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Create MIDI device manager (handles hot-plug)
		deviceMgr := midi.NewDeviceManager(cfg.MIDI.InPort, cfg.MIDI.ButtonNotes)
		go deviceMgr.Run(ctx)

		done := make(chan struct{})
		go func() {
			defer close(done)
			ctrl.Run(ctx, tick)
		}()

		m := tui.NewModel(ctrl, board, deviceMgr, th)
		p := tea.NewProgram(m, tea.WithAltScreen())
		_, err = p.Run()

		cancel()
		<-done
		return err
	},
}

func init() {
	panelCmd.Flags().StringVar(&panelFlags.midiOut, "midi-out", "", "MIDI output port to play the keys on")
	panelCmd.Flags().StringVar(&panelFlags.palette, "palette", "", "GIMP .gpl palette file")
	rootCmd.AddCommand(panelCmd)
}
