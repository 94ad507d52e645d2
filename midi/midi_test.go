package midi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomidi "gitlab.com/gomidi/midi/v2"

	"go-musicbox/hal"
)

type recorder struct {
	msgs []gomidi.Message
}

func (r *recorder) send(msg gomidi.Message) error {
	r.msgs = append(r.msgs, msg)
	return nil
}

func TestKeyMirrorSendsNotesForKeyChanges(t *testing.T) {
	board := hal.NewSimBoard()
	rec := &recorder{}
	m := NewKeyMirror(board, rec.send, DefaultMirrorConfig())

	m.WriteOutputBit(hal.BankB, 4, true)
	m.WriteOutputBit(hal.BankB, 4, true) // already on
	m.WriteOutputBit(hal.BankC, 1, true)
	m.WriteOutputBit(hal.BankB, 4, false)

	require.Len(t, rec.msgs, 3)

	var ch, key, vel uint8
	require.True(t, rec.msgs[0].GetNoteOn(&ch, &key, &vel))
	assert.Equal(t, uint8(64), key)
	assert.Equal(t, uint8(100), vel)

	require.True(t, rec.msgs[1].GetNoteOn(&ch, &key, &vel))
	assert.Equal(t, uint8(60+17), key)

	require.True(t, rec.msgs[2].GetNoteOff(&ch, &key, &vel))
	assert.Equal(t, uint8(64), key)

	assert.Equal(t, uint16(0), board.Register(hal.BankB), "board still written")
	assert.Equal(t, uint16(1<<1), board.Register(hal.BankC))
	assert.Equal(t, uint32(1<<17), m.Sounding())
}

func TestKeyMirrorPassesStatusBitsThrough(t *testing.T) {
	board := hal.NewSimBoard()
	rec := &recorder{}
	m := NewKeyMirror(board, rec.send, DefaultMirrorConfig())

	m.WriteOutputBit(hal.BankA, 8, true)
	assert.Empty(t, rec.msgs)
	assert.Equal(t, uint16(1<<8), board.Register(hal.BankA))
}

func TestKeyMirrorSkipsNotesAbove127(t *testing.T) {
	rec := &recorder{}
	m := NewKeyMirror(hal.NewSimBoard(), rec.send, MirrorConfig{BaseNote: 120, Velocity: 90})
	m.WriteOutputBit(hal.BankB, 7, true)
	m.WriteOutputBit(hal.BankB, 8, true)
	assert.Len(t, rec.msgs, 1)
}

func TestKeyMirrorSilence(t *testing.T) {
	rec := &recorder{}
	m := NewKeyMirror(hal.NewSimBoard(), rec.send, DefaultMirrorConfig())
	m.WriteOutputBit(hal.BankB, 0, true)
	m.WriteOutputBit(hal.BankC, 15, true)
	rec.msgs = nil

	m.Silence()
	assert.Len(t, rec.msgs, 2)
	assert.Equal(t, uint32(0), m.Sounding())
}

func TestKeyMirrorForwardsPostedEdges(t *testing.T) {
	board := hal.NewSimBoard()
	m := NewKeyMirror(board, (&recorder{}).send, DefaultMirrorConfig())
	require.True(t, m.PostButtonEdge(hal.Stop))

	got, ok := m.ReadButtonEdge()
	require.True(t, ok)
	assert.Equal(t, hal.Stop, got)
}

func TestLaunchpadMapping(t *testing.T) {
	row, col := keyToRowCol(0)
	assert.Equal(t, uint8(11), rowColToNote(row, col))
	row, col = keyToRowCol(31)
	assert.Equal(t, uint8(48), rowColToNote(row, col))

	for _, b := range hal.Buttons {
		got, ok := ccToButton(buttonToCC(b))
		require.True(t, ok)
		assert.Equal(t, b, got)
	}
	_, ok := ccToButton(95)
	assert.False(t, ok)
	_, ok = ccToButton(90)
	assert.False(t, ok)
}

func TestLaunchpadTopRowBecomesButtons(t *testing.T) {
	lp := &LaunchpadController{id: "test", buttonChan: make(chan hal.Button, 4)}

	lp.handle(gomidi.ControlChange(0, 93, 127), 0)
	lp.handle(gomidi.ControlChange(0, 93, 0), 0) // release
	lp.handle(gomidi.NoteOn(0, 11, 127), 0)      // grid pad

	require.Len(t, lp.buttonChan, 1)
	assert.Equal(t, hal.StartPause, <-lp.buttonChan)
}

func TestLaunchpadShowKeysSendsOnlyChanges(t *testing.T) {
	rec := &recorder{}
	lp := &LaunchpadController{id: "test", send: rec.send}

	require.NoError(t, lp.ShowKeys(1<<2|1<<20))
	assert.Len(t, rec.msgs, 2)

	rec.msgs = nil
	require.NoError(t, lp.ShowKeys(1<<2))
	require.Len(t, rec.msgs, 1)

	var ch, key, vel uint8
	require.True(t, rec.msgs[0].GetNoteOn(&ch, &key, &vel) || rec.msgs[0].GetNoteOff(&ch, &key, &vel))
	row, col := keyToRowCol(20)
	assert.Equal(t, rowColToNote(row, col), key)
	assert.Equal(t, ColorOff, vel)
}

func TestKeyboardNotesBecomeButtons(t *testing.T) {
	kb := &KeyboardController{id: "kb", notes: DefaultButtonNotes, buttonChan: make(chan hal.Button, 4)}

	kb.handle(gomidi.NoteOn(0, 65, 100), 0)
	kb.handle(gomidi.NoteOn(0, 61, 100), 0) // unmapped
	kb.handle(gomidi.NoteOn(0, 60, 0), 0)   // running-status note off

	require.Len(t, kb.buttonChan, 1)
	assert.Equal(t, hal.Stop, <-kb.buttonChan)
}

func TestDeviceManagerClassify(t *testing.T) {
	dm := NewDeviceManager("Digital Piano", DefaultButtonNotes)
	assert.Equal(t, ControllerLaunchpad, dm.classify("Launchpad X LPX MIDI"))
	assert.Equal(t, ControllerKeyboard, dm.classify("digital piano:0"))
	assert.Equal(t, ControllerUnknown, dm.classify("IAC Driver Bus 1"))

	none := NewDeviceManager("", DefaultButtonNotes)
	assert.Equal(t, ControllerUnknown, none.classify("digital piano:0"))
}

func TestForwardButtonsUntilClosed(t *testing.T) {
	kb := &KeyboardController{id: "kb", notes: DefaultButtonNotes, buttonChan: make(chan hal.Button, 4)}
	kb.handle(gomidi.NoteOn(0, 60, 90), 0)
	kb.handle(gomidi.NoteOn(0, 64, 90), 0)
	require.NoError(t, kb.Close())

	board := hal.NewSimBoard()
	ForwardButtons(kb, board)

	assert.Equal(t, 2, board.Pending())
	b, _ := board.ReadButtonEdge()
	assert.Equal(t, hal.SongSelect, b)
	b, _ = board.ReadButtonEdge()
	assert.Equal(t, hal.StartPause, b)
}
