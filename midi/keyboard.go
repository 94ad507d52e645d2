package midi

import (
	"fmt"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"go-musicbox/hal"
)

// DefaultButtonNotes are C, D, E, F above middle C
var DefaultButtonNotes = [hal.NumButtons]uint8{60, 62, 64, 65}

// KeyboardController turns four notes of a MIDI keyboard into panel buttons
type KeyboardController struct {
	id       string
	inPort   drivers.In
	stopFunc func()
	notes    [hal.NumButtons]uint8

	buttonChan chan hal.Button
}

// NewKeyboardController creates a keyboard controller (input only)
func NewKeyboardController(id string, inPort drivers.In, notes [hal.NumButtons]uint8) (*KeyboardController, error) {
	kb := &KeyboardController{
		id:         id,
		inPort:     inPort,
		notes:      notes,
		buttonChan: make(chan hal.Button, 32),
	}

	// Open input
	if inPort != nil {
		stop, err := gomidi.ListenTo(inPort, kb.handle)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		kb.stopFunc = stop
	}

	return kb, nil
}

func (kb *KeyboardController) handle(msg gomidi.Message, timestampms int32) {
	var channel, note, velocity uint8
	if !msg.GetNoteOn(&channel, &note, &velocity) || velocity == 0 {
		return
	}
	b, ok := kb.button(note)
	if !ok {
		return
	}
	select {
	case kb.buttonChan <- b:
	default:
	}
}

func (kb *KeyboardController) button(note uint8) (hal.Button, bool) {
	for i, n := range kb.notes {
		if n == note {
			return hal.Buttons[i], true
		}
	}
	return 0, false
}

func (kb *KeyboardController) ID() string {
	return kb.id
}

func (kb *KeyboardController) Type() ControllerType {
	return ControllerKeyboard
}

func (kb *KeyboardController) Buttons() <-chan hal.Button {
	return kb.buttonChan
}

// ShowKeys is a no-op for keyboards (no visual feedback)
func (kb *KeyboardController) ShowKeys(active uint32) error {
	return nil
}

func (kb *KeyboardController) Close() error {
	if kb.stopFunc != nil {
		kb.stopFunc()
	}
	close(kb.buttonChan)
	return nil
}
