package sequencer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-musicbox/hal"
)

func TestDefaultLibraryIsClean(t *testing.T) {
	for _, def := range DefaultLibrary() {
		assert.Empty(t, def.Validate(), def.Name)
	}
}

func TestLoadSongsGivesEachSlotItsOwnState(t *testing.T) {
	defs := DefaultLibrary()
	songs, err := LoadSongs(defs)
	require.NoError(t, err)
	require.Len(t, songs, len(defs))

	a, b := songs[0], songs[1]
	a.advance()
	assert.Equal(t, 1, b.Cursor(), "advancing one song leaves the others alone")
	assert.NotSame(t, a.Score(), b.Score())
}

func TestLoadSongsErrors(t *testing.T) {
	_, err := LoadSongs(nil)
	assert.ErrorIs(t, err, ErrNoSongs)

	_, err = LoadSongs([]SongDef{{Name: "bad", Tempo: -1}})
	assert.ErrorIs(t, err, ErrInvalidTempo)
}

func TestValidateReportsEveryProblem(t *testing.T) {
	def := SongDef{Name: "broken", Tempo: 1, Format: DefaultFormat, Lines: []string{"a|1|", "b|2|"}}
	errs := def.Validate()
	require.Len(t, errs, 3)
	assert.ErrorIs(t, errs[0], ErrMalformedEvent)
	assert.ErrorIs(t, errs[1], ErrMalformedEvent)
	assert.ErrorIs(t, errs[2], ErrEmptySong)
}

func TestArpeggioPlaysLikeTheFirstBoard(t *testing.T) {
	songs, err := LoadSongs(DefaultLibrary()[:1])
	require.NoError(t, err)
	board := hal.NewSimBoard()
	m, err := NewMachine(songs, NewKeys(board))
	require.NoError(t, err)

	m.Handle(hal.StartPause)
	ticks := 0
	var peak KeySet
	for m.State() == Play {
		m.Tick()
		peak |= m.Active()
		ticks++
		require.Less(t, ticks, 2000)
	}
	assert.Equal(t, KeysOf(0, 1, 2), peak)
	assert.Equal(t, uint16(0), board.Register(hal.BankB))
	// from the -1 sentinel through beat 900: the last event is at 17 units
	// of 50 beats and is held one more unit
	assert.Equal(t, 18*50+2, ticks)
}
