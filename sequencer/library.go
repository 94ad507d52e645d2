package sequencer

import (
	"fmt"
)

// SongDef is the source form of a song
type SongDef struct {
	Name   string
	Tempo  int
	Format Format
	Policy Policy
	Lines  []string
}

// DefaultLibrary returns the songs built into the firmware
func DefaultLibrary() []SongDef {
	return []SongDef{
		{
			// first board revision: slow arpeggio, keys held to the end
			Name:   "arpeggio",
			Tempo:  50,
			Format: LegacyFormat,
			Policy: Policy{Division: IntegerDivision, StartBeat: -1},
			Lines: []string{
				"1/0|",
				"5/1|",
				"9/2|",
				"13/|2",
				"17/1|",
			},
		},
		{
			// bring-up pattern: toggles key 0 every unit
			Name:   "toggle",
			Tempo:  2,
			Format: DefaultFormat,
			Policy: Policy{Division: RealDivision, StartBeat: -1},
			Lines: []string{
				"|1|0,|,|",
				"|2|,|0,|",
				"|3|0,|,|",
				"|4|,|0,|",
				"|5|0,|,|",
				"|6|,|0,|",
				"|7|0,|,|",
				"|8|,|0,|",
				"|9|0,|,|",
				"|10|,|0,|",
			},
		},
		{
			Name:   "scale",
			Tempo:  25,
			Format: DefaultFormat,
			Policy: Policy{Division: IntegerDivision, Terminal: EndOnMarker},
			Lines:  scaleLines(),
		},
	}
}

// scaleLines walks up and back down the first octave of keys, releasing
// each key as the next one sounds
func scaleLines() []string {
	var lines []string
	beat := 1
	step := func(on, off int) {
		if off < 0 {
			lines = append(lines, fmt.Sprintf("%d|%d|", beat, on))
		} else {
			lines = append(lines, fmt.Sprintf("%d|%d|%d", beat, on, off))
		}
		beat++
	}
	step(0, -1)
	for k := 1; k < 8; k++ {
		step(k, k-1)
	}
	for k := 6; k >= 0; k-- {
		step(k, k+1)
	}
	lines = append(lines, fmt.Sprintf("%d||0", beat), DefaultMarker)
	return lines
}

// LoadSongs builds one independent song slot per definition
func LoadSongs(defs []SongDef) ([]*Song, error) {
	if len(defs) == 0 {
		return nil, ErrNoSongs
	}
	songs := make([]*Song, 0, len(defs))
	for _, def := range defs {
		s, err := NewSong(def.Name, def.Tempo, def.Lines, def.Format, def.Policy)
		if err != nil {
			return nil, err
		}
		songs = append(songs, s)
	}
	return songs, nil
}

// Validate checks a definition and returns every problem found. A song with
// malformed lines still plays; Validate is for tooling.
func (def SongDef) Validate() []error {
	var errs []error
	if def.Tempo <= 0 {
		errs = append(errs, fmt.Errorf("song %q: %w", def.Name, ErrInvalidTempo))
		return errs
	}
	score := ParseScore(def.Lines, def.Format, def.Policy)
	for _, err := range score.Errors() {
		errs = append(errs, fmt.Errorf("song %q: %w", def.Name, err))
	}
	if score.Len() == 0 {
		errs = append(errs, fmt.Errorf("song %q: %w", def.Name, ErrEmptySong))
	}
	return errs
}
