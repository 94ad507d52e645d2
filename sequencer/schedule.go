package sequencer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go-musicbox/debug"
)

// ErrMalformedEvent is wrapped by every event parse failure
var ErrMalformedEvent = errors.New("malformed event")

// EventError reports why one line of a song could not be used
type EventError struct {
	Line   int // 0-based line index within the song
	Text   string
	Reason string
}

func (e *EventError) Error() string {
	return fmt.Sprintf("line %d %q: %s", e.Line+1, e.Text, e.Reason)
}

func (e *EventError) Unwrap() error {
	return ErrMalformedEvent
}

// NoteEvent is a bundle of keys to raise and lower once the song's progress
// reaches Threshold
type NoteEvent struct {
	Threshold int
	On        KeySet
	Off       KeySet
}

// Format describes how an event line is split.
//
// The current format is "beat|on|off"; the first firmware used "beat/on|off".
// Lines may also be framed by one leading and one trailing field separator
// ("|1|0,|,|").
type Format struct {
	ThresholdSep byte // between the threshold and the key lists
	FieldSep     byte // between the on and off lists
	ListSep      byte // between keys in a list

	// ReuseThreshold lets a line leave the threshold empty to mean "same as
	// the previous event". Without it an empty threshold is malformed.
	ReuseThreshold bool
}

var (
	DefaultFormat = Format{ThresholdSep: '|', FieldSep: '|', ListSep: ','}
	LegacyFormat  = Format{ThresholdSep: '/', FieldSep: '|', ListSep: ','}
)

// ParseEvent parses a single event line. prev is the threshold of the
// previous well-formed event in the same song (0 for the first); a line may
// not schedule itself before it.
func ParseEvent(text string, f Format, prev int) (NoteEvent, error) {
	fail := func(reason string, args ...any) (NoteEvent, error) {
		return NoteEvent{}, &EventError{Text: text, Reason: fmt.Sprintf(reason, args...)}
	}

	threshold, on, off, ok := f.split(text)
	if !ok {
		return fail("want 3 fields")
	}

	var ev NoteEvent
	threshold = strings.TrimSpace(threshold)
	switch {
	case threshold == "" && f.ReuseThreshold:
		ev.Threshold = prev
	case threshold == "":
		return fail("missing beat threshold")
	default:
		n, err := parseNumber(threshold)
		if err != nil {
			return fail("beat threshold: %v", err)
		}
		ev.Threshold = n
	}
	if ev.Threshold < prev {
		return fail("beat threshold %d is before %d", ev.Threshold, prev)
	}

	var err error
	if ev.On, err = parseKeys(on, f.ListSep); err != nil {
		return fail("on keys: %v", err)
	}
	if ev.Off, err = parseKeys(off, f.ListSep); err != nil {
		return fail("off keys: %v", err)
	}
	return ev, nil
}

func (f Format) split(text string) (threshold, on, off string, ok bool) {
	if f.ThresholdSep != f.FieldSep {
		beat, rest, found := strings.Cut(text, string(f.ThresholdSep))
		if !found {
			return "", "", "", false
		}
		lists := strings.Split(rest, string(f.FieldSep))
		if len(lists) != 2 {
			return "", "", "", false
		}
		return beat, lists[0], lists[1], true
	}

	sep := string(f.FieldSep)
	fields := strings.Split(text, sep)
	if len(fields) != 3 && len(text) >= 2 && strings.HasPrefix(text, sep) && strings.HasSuffix(text, sep) {
		fields = strings.Split(text[1:len(text)-1], sep)
	}
	if len(fields) != 3 {
		return "", "", "", false
	}
	return fields[0], fields[1], fields[2], true
}

// parseKeys reads a separated list of key numbers. Empty items are skipped
// and keys outside 0..31 are dropped; anything non-numeric fails the list.
func parseKeys(field string, sep byte) (KeySet, error) {
	var set KeySet
	for _, item := range strings.Split(field, string(sep)) {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		n, err := parseNumber(item)
		if err != nil {
			return 0, err
		}
		set = set.Add(n)
	}
	return set, nil
}

// parseNumber accepts unsigned decimal only
func parseNumber(s string) (int, error) {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("%q is not a number", s)
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%q out of range", s)
	}
	return n, nil
}

// entry is one parsed line of a score
type entry struct {
	event  NoteEvent
	err    error
	marker bool
}

// Score is the parsed form of a song's event lines. It is built once when
// the song is loaded and never modified, so any number of schedules can walk
// it.
type Score struct {
	entries  []entry
	last     int // index of the last playable entry, -1 if none
	playable int
	errs     []error
}

// ParseScore parses every line of a song. Bad lines are kept as skipped
// entries so line positions stay meaningful. With EndOnMarker, a line equal
// to marker ends the score and later lines are ignored.
func ParseScore(lines []string, f Format, p Policy) *Score {
	sc := &Score{last: -1}
	prev := 0
	for i, line := range lines {
		if p.Terminal == EndOnMarker && strings.EqualFold(strings.TrimSpace(line), p.marker()) {
			sc.entries = append(sc.entries, entry{marker: true})
			break
		}

		ev, err := ParseEvent(line, f, prev)
		if err != nil {
			var evErr *EventError
			if errors.As(err, &evErr) {
				evErr.Line = i
			}
			sc.entries = append(sc.entries, entry{err: err})
			sc.errs = append(sc.errs, err)
			continue
		}

		sc.entries = append(sc.entries, entry{event: ev})
		sc.last = len(sc.entries) - 1
		sc.playable++
		prev = ev.Threshold
	}
	return sc
}

// Len returns the number of playable events
func (sc *Score) Len() int {
	return sc.playable
}

// Lines returns the number of lines the score covers, including skipped
// lines and a terminating marker
func (sc *Score) Lines() int {
	return len(sc.entries)
}

// Errors returns the parse failure of every skipped line
func (sc *Score) Errors() []error {
	return sc.errs
}

// Events returns the playable events in order
func (sc *Score) Events() []NoteEvent {
	events := make([]NoteEvent, 0, sc.playable)
	for _, e := range sc.entries {
		if e.err == nil && !e.marker {
			events = append(events, e.event)
		}
	}
	return events
}

// Schedule returns a fresh forward-only walk over the score
func (sc *Score) Schedule() *Schedule {
	return &Schedule{score: sc}
}

// Schedule hands out a score's events one at a time. It only moves forward;
// starting over takes a new Schedule from the Score.
type Schedule struct {
	score   *Score
	pos     int // next entry to look at
	skipped int
}

// Next returns the next playable event, stepping over malformed lines
func (s *Schedule) Next() (NoteEvent, bool) {
	for !s.Exhausted() {
		e := s.score.entries[s.pos]
		s.pos++
		if e.err != nil {
			s.skipped++
			debug.Log("sched", "skip %v", e.err)
			continue
		}
		return e.event, true
	}
	return NoteEvent{}, false
}

// Exhausted reports whether no playable event remains
func (s *Schedule) Exhausted() bool {
	return s.pos > s.score.last
}

// Pos returns how many lines have been consumed
func (s *Schedule) Pos() int {
	return s.pos
}

// Skipped returns how many malformed lines have been stepped over
func (s *Schedule) Skipped() int {
	return s.skipped
}
