package sequencer

import (
	"errors"
	"fmt"

	"golang.org/x/exp/constraints"

	"go-musicbox/debug"
	"go-musicbox/hal"
)

// State is the operating state. The values are the 2-bit codes shown on the
// status LEDs.
type State int

const (
	Home  State = 1
	Play  State = 2
	Pause State = 3
)

func (s State) String() string {
	switch s {
	case Home:
		return "HOME"
	case Play:
		return "PLAY"
	case Pause:
		return "PAUSE"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Valid reports whether s is one of HOME, PLAY or PAUSE
func (s State) Valid() bool {
	return s >= Home && s <= Pause
}

// NumModes is the number of display modes
const NumModes = 3

var (
	ErrNoSongs          = errors.New("no songs loaded")
	ErrInvalidSongIndex = errors.New("invalid song index")
	ErrNotHome          = errors.New("song can only be changed from HOME")
)

// Machine is the HOME/PLAY/PAUSE state machine. It is not safe for
// concurrent use; Controller serializes access to it.
type Machine struct {
	state  State
	songID int
	mode   int

	songs  []*Song
	keys   *Keys
	engine *Engine
}

// NewMachine creates a machine in HOME with song 0 and mode 0 selected
func NewMachine(songs []*Song, keys *Keys) (*Machine, error) {
	if len(songs) == 0 {
		return nil, ErrNoSongs
	}
	m := &Machine{
		songs:  songs,
		keys:   keys,
		engine: NewEngine(keys),
	}
	m.Reset()
	return m, nil
}

// Reset puts the machine back to its boot state and releases every key
func (m *Machine) Reset() {
	m.state = Home
	m.songID = 0
	m.mode = 0
	m.engine.Reset(m.songs[0].Policy.StartBeat)
	m.keys.DeactivateAll()
}

// Handle applies one button edge. It reports whether the edge caused a
// transition; edges with no transition from the current state are ignored.
func (m *Machine) Handle(b hal.Button) bool {
	from := m.state
	switch {
	case b == hal.SongSelect && m.state == Home:
		m.songID = cycle(m.songID, len(m.songs))
	case b == hal.ModeSelect && m.state == Home:
		m.mode = cycle(m.mode, NumModes)
	case b == hal.StartPause && m.state == Home:
		if err := m.ResetSong(m.songID); err != nil {
			debug.Log("ctrl", "start rejected: %v", err)
			return false
		}
		m.state = Play
	case b == hal.StartPause && m.state == Pause:
		m.state = Play
	case b == hal.StartPause && m.state == Play:
		m.state = Pause
	case b == hal.Stop && (m.state == Play || m.state == Pause):
		m.keys.DeactivateAll()
		m.engine.Reset(m.Song().Policy.StartBeat)
		m.state = Home
	default:
		return false
	}
	debug.Log("ctrl", "%v: %v -> %v song=%d mode=%d", b, from, m.state, m.songID, m.mode)
	return true
}

// Tick runs one main-loop iteration. It only does anything in PLAY; a
// finished song drops the machine back to HOME.
func (m *Machine) Tick() {
	if m.state != Play {
		return
	}
	if m.engine.Tick(m.songs[m.songID]) {
		m.state = Home
	}
}

// ResetSong rewinds song index and the beat clock to the song's start
func (m *Machine) ResetSong(index int) error {
	if index < 0 || index >= len(m.songs) {
		return fmt.Errorf("%w: %d", ErrInvalidSongIndex, index)
	}
	song := m.songs[index]
	song.Reset()
	m.engine.Reset(song.Policy.StartBeat)
	return nil
}

// SelectSong jumps straight to a song. Only allowed in HOME; on error the
// previous selection is kept.
func (m *Machine) SelectSong(index int) error {
	if index < 0 || index >= len(m.songs) {
		return fmt.Errorf("%w: %d", ErrInvalidSongIndex, index)
	}
	if m.state != Home {
		return ErrNotHome
	}
	m.songID = index
	return nil
}

func (m *Machine) State() State   { return m.state }
func (m *Machine) SongID() int    { return m.songID }
func (m *Machine) Mode() int      { return m.mode }
func (m *Machine) Beat() int      { return m.engine.Beat() }
func (m *Machine) Song() *Song    { return m.songs[m.songID] }
func (m *Machine) NumSongs() int  { return len(m.songs) }
func (m *Machine) Active() KeySet { return m.keys.Active() }

// cycle steps v forward, wrapping to 0 at n
func cycle[T constraints.Integer](v, n T) T {
	if n <= 0 {
		return 0
	}
	v++
	if v >= n {
		return 0
	}
	return v
}
