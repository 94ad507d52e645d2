package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"go-musicbox/sequencer"
)

var songsCmd = &cobra.Command{
	Use:   "songs",
	Short: "List the built-in songs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listSongs(cmd.OutOrStdout(), sequencer.DefaultLibrary())
	},
}

var checkFlags struct {
	legacy   bool
	reuse    bool
	marker   string
	division string
	tempo    int
}

var checkCmd = &cobra.Command{
	Use:   "check FILE...",
	Short: "Check song files for malformed lines",
	Long: `Parses each file as one song, one event per line ("beat|on|off", or
"beat/on|off" with --legacy), and reports every line that would be skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		div, err := sequencer.ParseDivision(checkFlags.division)
		if err != nil {
			return err
		}
		format := sequencer.DefaultFormat
		if checkFlags.legacy {
			format = sequencer.LegacyFormat
		}
		format.ReuseThreshold = checkFlags.reuse

		policy := sequencer.Policy{Division: div}
		if checkFlags.marker != "" {
			policy.Terminal = sequencer.EndOnMarker
			policy.Marker = checkFlags.marker
		}

		bad := 0
		for _, path := range args {
			n, err := checkFile(cmd.OutOrStdout(), path, checkFlags.tempo, format, policy)
			if err != nil {
				return err
			}
			bad += n
		}
		if bad > 0 {
			return fmt.Errorf("%d problem(s) found", bad)
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().BoolVar(&checkFlags.legacy, "legacy", false, `use the "beat/on|off" line format`)
	checkCmd.Flags().BoolVar(&checkFlags.reuse, "reuse-beat", false, "allow an empty beat to repeat the previous one")
	checkCmd.Flags().StringVar(&checkFlags.marker, "marker", "", "end the song at this marker line")
	checkCmd.Flags().StringVar(&checkFlags.division, "division", "integer", "beat division: integer or real")
	checkCmd.Flags().IntVar(&checkFlags.tempo, "tempo", 1, "ticks per beat")
	rootCmd.AddCommand(songsCmd, checkCmd)
}

func listSongs(w io.Writer, defs []sequencer.SongDef) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SLOT\tNAME\tTEMPO\tEVENTS\tDIVISION\tENDS ON")
	for i, def := range defs {
		score := sequencer.ParseScore(def.Lines, def.Format, def.Policy)
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%v\t%v\n", i, def.Name, def.Tempo, score.Len(), def.Policy.Division, def.Policy.Terminal)
	}
	return tw.Flush()
}

// checkFile reports the problems in one song file and returns how many
// there were
func checkFile(w io.Writer, path string, tempo int, f sequencer.Format, p sequencer.Policy) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	lines, err := readLines(file)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}

	def := sequencer.SongDef{Name: path, Tempo: tempo, Format: f, Policy: p, Lines: lines}
	errs := def.Validate()
	for _, err := range errs {
		fmt.Fprintln(w, err)
	}
	if len(errs) == 0 {
		fmt.Fprintf(w, "%s: ok, %d lines\n", path, len(lines))
	}
	return len(errs), nil
}

// readLines splits r into lines, dropping carriage returns
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	return lines, sc.Err()
}
