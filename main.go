package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go-musicbox/config"
	"go-musicbox/debug"
	"go-musicbox/sequencer"
)

var (
	configPath string
	debugLog   bool
)

var rootCmd = &cobra.Command{
	Use:   "go-musicbox",
	Short: "Music box controller",
	Long: `Plays the built-in songs on 32 keys, driven by four panel buttons:
song select, mode select, start/pause and stop.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !debugLog {
			return nil
		}
		if err := debug.Enable(); err != nil {
			return fmt.Errorf("debug log: %w", err)
		}
		if path, err := debug.LogPath(); err == nil {
			fmt.Fprintf(os.Stderr, "debug log: %s\n", path)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		debug.Disable()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/go-musicbox/config.json)")
	rootCmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "write a debug log")
}

func main() {
	cobra.CheckErr(rootCmd.Execute())
}

// loadConfig reads the config named by --config, or the default one
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load()
}

// loadSongs builds the song slots from the built-in library
func loadSongs(cfg *config.Config) ([]*sequencer.Song, error) {
	defs := sequencer.DefaultLibrary()
	if err := cfg.ApplyDivision(defs); err != nil {
		return nil, err
	}
	return sequencer.LoadSongs(defs)
}
