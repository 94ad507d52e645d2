package sequencer

import (
	"errors"
	"fmt"
)

// Division selects how the beat counter is scaled by tempo before it is
// compared with an event threshold
type Division int

const (
	// IntegerDivision truncates beat/tempo toward zero
	IntegerDivision Division = iota
	// RealDivision compares the exact quotient
	RealDivision
)

func (d Division) String() string {
	if d == RealDivision {
		return "real"
	}
	return "integer"
}

// ParseDivision accepts "integer" or "real"
func ParseDivision(s string) (Division, error) {
	switch s {
	case "", "integer", "int":
		return IntegerDivision, nil
	case "real", "float":
		return RealDivision, nil
	}
	return 0, fmt.Errorf("unknown division %q", s)
}

// Terminal selects what ends a song
type Terminal int

const (
	// EndOnExhaustion ends the song after its last line
	EndOnExhaustion Terminal = iota
	// EndOnMarker ends the song at a marker line
	EndOnMarker
)

func (t Terminal) String() string {
	if t == EndOnMarker {
		return "marker"
	}
	return "exhaustion"
}

// DefaultMarker is the marker line used when a policy names none
const DefaultMarker = "end"

// Policy holds the per-song playback rules that differed between firmware
// revisions
type Policy struct {
	Division  Division
	Terminal  Terminal
	Marker    string // marker line for EndOnMarker
	StartBeat int    // beat value on entering PLAY from HOME, -1 or 0
}

func (p Policy) marker() string {
	if p.Marker == "" {
		return DefaultMarker
	}
	return p.Marker
}

// reached reports whether beat, scaled by tempo, has got to threshold
func (p Policy) reached(beat, tempo, threshold int) bool {
	if p.Division == RealDivision {
		return float64(beat)/float64(tempo) >= float64(threshold)
	}
	return beat/tempo >= threshold
}

var (
	ErrInvalidTempo = errors.New("tempo must be positive")
	ErrEmptySong    = errors.New("song has no playable events")
)

// Song is one song slot: its parsed score plus the playback position. Every
// slot owns its own score and schedule; nothing is shared between songs.
type Song struct {
	Name   string
	Tempo  int
	Policy Policy

	score    *Score
	sched    *Schedule
	pending  NoteEvent
	finished bool
}

// NewSong parses lines and returns a song ready to play from the top.
// Malformed lines do not fail the song; they are skipped during playback
// and reported by Errors.
func NewSong(name string, tempo int, lines []string, f Format, p Policy) (*Song, error) {
	if tempo <= 0 {
		return nil, fmt.Errorf("song %q: %w", name, ErrInvalidTempo)
	}
	s := &Song{
		Name:   name,
		Tempo:  tempo,
		Policy: p,
		score:  ParseScore(lines, f, p),
	}
	s.Reset()
	return s, nil
}

// Reset rewinds the song to its first event. It is safe mid-playback; the
// caller is responsible for releasing keys.
func (s *Song) Reset() {
	s.sched = s.score.Schedule()
	s.finished = false
	s.pending = NoteEvent{}

	if ev, ok := s.sched.Next(); ok {
		s.pending = ev
	} else {
		s.finished = true
	}
}

// due reports whether the pending event should fire at beat
func (s *Song) due(beat int) bool {
	return s.Policy.reached(beat, s.Tempo, s.pending.Threshold)
}

// advance moves past the event that just fired
func (s *Song) advance() {
	if s.sched.Exhausted() {
		s.finished = true
		// hold the last chord for one more unit before the song ends
		s.pending = NoteEvent{Threshold: s.pending.Threshold + 1}
		return
	}
	s.pending, _ = s.sched.Next()
}

// Pending returns the event waiting to fire
func (s *Song) Pending() NoteEvent {
	return s.pending
}

// Cursor returns how many lines of the score have been consumed
func (s *Song) Cursor() int {
	return s.sched.Pos()
}

// Finished reports whether the last event has fired
func (s *Song) Finished() bool {
	return s.finished
}

// Skipped returns how many malformed lines playback has stepped over
func (s *Song) Skipped() int {
	return s.sched.Skipped()
}

// Len returns the number of playable events
func (s *Song) Len() int {
	return s.score.Len()
}

// Errors returns the parse failure of every skipped line
func (s *Song) Errors() []error {
	return s.score.Errors()
}

// Score returns the parsed song
func (s *Song) Score() *Score {
	return s.score
}
