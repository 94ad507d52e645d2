package sequencer

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-musicbox/hal"
)

func newTestMachine(t *testing.T, n int) (*Machine, *hal.SimBoard) {
	t.Helper()
	board := hal.NewSimBoard()
	songs := make([]*Song, n)
	for i := range songs {
		songs[i] = newTestSong(t, 1, Policy{}, "0|2,4|", "3|5|2", "6||4,5")
	}
	m, err := NewMachine(songs, NewKeys(board))
	require.NoError(t, err)
	return m, board
}

func TestNewMachineNeedsSongs(t *testing.T) {
	_, err := NewMachine(nil, NewKeys(hal.NewSimBoard()))
	assert.ErrorIs(t, err, ErrNoSongs)
}

func TestMachineBootState(t *testing.T) {
	m, _ := newTestMachine(t, 3)
	assert.Equal(t, Home, m.State())
	assert.Equal(t, 0, m.SongID())
	assert.Equal(t, 0, m.Mode())
}

func TestMachineTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    State
		button  hal.Button
		to      State
		changed bool
	}{
		{"song select in home", Home, hal.SongSelect, Home, true},
		{"mode select in home", Home, hal.ModeSelect, Home, true},
		{"start from home", Home, hal.StartPause, Play, true},
		{"stop in home ignored", Home, hal.Stop, Home, false},
		{"pause", Play, hal.StartPause, Pause, true},
		{"stop playing", Play, hal.Stop, Home, true},
		{"song select while playing ignored", Play, hal.SongSelect, Play, false},
		{"mode select while playing ignored", Play, hal.ModeSelect, Play, false},
		{"resume", Pause, hal.StartPause, Play, true},
		{"stop paused", Pause, hal.Stop, Home, true},
		{"song select while paused ignored", Pause, hal.SongSelect, Pause, false},
		{"unknown button ignored", Home, hal.Button(42), Home, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestMachine(t, 2)
			switch tt.from {
			case Play:
				m.Handle(hal.StartPause)
			case Pause:
				m.Handle(hal.StartPause)
				m.Handle(hal.StartPause)
			}
			require.Equal(t, tt.from, m.State())

			assert.Equal(t, tt.changed, m.Handle(tt.button))
			assert.Equal(t, tt.to, m.State())
		})
	}
}

func TestSongSelectWrapsAround(t *testing.T) {
	m, _ := newTestMachine(t, 3)
	m.Handle(hal.SongSelect)
	start := m.SongID()
	for i := 0; i < m.NumSongs(); i++ {
		m.Handle(hal.SongSelect)
	}
	assert.Equal(t, start, m.SongID())
}

func TestModeSelectWrapsAround(t *testing.T) {
	m, _ := newTestMachine(t, 1)
	seen := []int{}
	for i := 0; i < 4; i++ {
		m.Handle(hal.ModeSelect)
		seen = append(seen, m.Mode())
	}
	assert.Equal(t, []int{1, 2, 0, 1}, seen)
}

func TestStopClearsKeysMidSong(t *testing.T) {
	m, board := newTestMachine(t, 1)
	m.Handle(hal.StartPause)
	m.Tick() // beat 0 raises 2 and 4
	require.Equal(t, KeysOf(2, 4), m.Active())
	require.Equal(t, uint16(1<<2|1<<4), board.Register(hal.BankB))

	m.Handle(hal.Stop)
	assert.Equal(t, Home, m.State())
	assert.Equal(t, KeySet(0), m.Active())
	assert.Equal(t, uint16(0), board.Register(hal.BankB))
	assert.Equal(t, 0, m.Beat(), "beat back at the sentinel")
}

func TestStopFromPauseClearsKeys(t *testing.T) {
	m, board := newTestMachine(t, 1)
	m.Handle(hal.StartPause)
	m.Tick()
	m.Handle(hal.StartPause)
	require.Equal(t, Pause, m.State())

	m.Handle(hal.Stop)
	assert.Equal(t, uint16(0), board.Register(hal.BankB))
}

func TestPauseFreezesBeat(t *testing.T) {
	m, _ := newTestMachine(t, 1)
	m.Handle(hal.StartPause)
	m.Tick()
	m.Tick()
	m.Handle(hal.StartPause)
	beat := m.Beat()
	for i := 0; i < 5; i++ {
		m.Tick()
	}
	assert.Equal(t, beat, m.Beat())

	m.Handle(hal.StartPause)
	m.Tick()
	assert.Equal(t, beat+1, m.Beat(), "resumes in place")
}

func TestSongCompletionReturnsHome(t *testing.T) {
	m, board := newTestMachine(t, 1)
	m.Handle(hal.StartPause)
	for i := 0; i < 20 && m.State() == Play; i++ {
		m.Tick()
	}
	assert.Equal(t, Home, m.State())
	assert.Equal(t, uint16(0), board.Register(hal.BankB))
}

func TestBeatIncreasesByOneWhilePlaying(t *testing.T) {
	board := hal.NewSimBoard()
	song := newTestSong(t, 2, Policy{StartBeat: -1}, "1|1|", "nope", "2|2|", "???", "30|3|")
	m, err := NewMachine([]*Song{song}, NewKeys(board))
	require.NoError(t, err)

	m.Handle(hal.StartPause)
	require.Equal(t, -1, m.Beat())
	for m.State() == Play {
		before := m.Beat()
		m.Tick()
		if m.State() == Play {
			assert.Equal(t, before+1, m.Beat())
		}
	}
}

func TestResetSongTwiceIsStable(t *testing.T) {
	m, _ := newTestMachine(t, 2)
	song := m.songs[0]

	m.Handle(hal.StartPause)
	for i := 0; i < 4; i++ {
		m.Tick()
	}
	require.NotEqual(t, 1, song.Cursor())

	require.NoError(t, m.ResetSong(0))
	first := struct {
		cursor   int
		finished bool
		pending  NoteEvent
	}{song.Cursor(), song.Finished(), song.Pending()}

	require.NoError(t, m.ResetSong(0))
	assert.Equal(t, first.cursor, song.Cursor())
	assert.Equal(t, first.finished, song.Finished())
	assert.Equal(t, first.pending, song.Pending())

	assert.Equal(t, 1, song.Cursor())
	assert.False(t, song.Finished())
	assert.Equal(t, NoteEvent{0, KeysOf(2, 4), 0}, song.Pending())
}

func TestInvalidSongIndexLeavesSelection(t *testing.T) {
	m, _ := newTestMachine(t, 2)
	m.Handle(hal.SongSelect)

	assert.ErrorIs(t, m.ResetSong(2), ErrInvalidSongIndex)
	assert.ErrorIs(t, m.ResetSong(-1), ErrInvalidSongIndex)
	assert.ErrorIs(t, m.SelectSong(5), ErrInvalidSongIndex)
	assert.Equal(t, 1, m.SongID())

	require.NoError(t, m.SelectSong(0))
	assert.Equal(t, 0, m.SongID())

	m.Handle(hal.StartPause)
	assert.ErrorIs(t, m.SelectSong(1), ErrNotHome)
	assert.Equal(t, 0, m.SongID())
}

func TestRandomButtonSequencesStayInBounds(t *testing.T) {
	m, _ := newTestMachine(t, 3)
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 5000; i++ {
		if rng.Intn(3) == 0 {
			m.Tick()
		} else {
			m.Handle(hal.Buttons[rng.Intn(hal.NumButtons)])
		}
		require.True(t, m.State().Valid())
		require.GreaterOrEqual(t, m.SongID(), 0)
		require.Less(t, m.SongID(), m.NumSongs())
		require.GreaterOrEqual(t, m.Mode(), 0)
		require.Less(t, m.Mode(), NumModes)
	}
}

func TestCycle(t *testing.T) {
	assert.Equal(t, 1, cycle(0, 3))
	assert.Equal(t, 0, cycle(2, 3))
	assert.Equal(t, uint8(0), cycle(uint8(0), uint8(1)))
	assert.Equal(t, 0, cycle(5, 0))
}
