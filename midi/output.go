package midi

import (
	"context"
	"fmt"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"

	"go-musicbox/debug"
	"go-musicbox/hal"
)

// MirrorConfig maps keys onto notes
type MirrorConfig struct {
	Channel  uint8
	BaseNote uint8 // note for key 0; key n plays BaseNote+n
	Velocity uint8
}

// DefaultMirrorConfig starts the keys at middle C
func DefaultMirrorConfig() MirrorConfig {
	return MirrorConfig{Channel: 0, BaseNote: 60, Velocity: 100}
}

// KeyMirror wraps a board and turns every key bit change into a note on or
// note off, so the music box can be heard through any MIDI synth. Status
// bits in bank A are passed through untouched.
type KeyMirror struct {
	hal.Board

	send func(gomidi.Message) error
	cfg  MirrorConfig

	mu sync.Mutex
	on uint32 // bit n = key n sounding
}

// NewKeyMirror mirrors board's keys through send
func NewKeyMirror(board hal.Board, send func(gomidi.Message) error, cfg MirrorConfig) *KeyMirror {
	return &KeyMirror{Board: board, send: send, cfg: cfg}
}

// OpenKeyMirror opens the named output port and mirrors board's keys to it
func OpenKeyMirror(board hal.Board, portName string, cfg MirrorConfig) (*KeyMirror, error) {
	out, err := gomidi.FindOutPort(portName)
	if err != nil {
		return nil, fmt.Errorf("find output %q: %w", portName, err)
	}
	send, err := gomidi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("open output %q: %w", portName, err)
	}
	debug.Log("midi", "mirroring keys to %s", out.String())
	return NewKeyMirror(board, send, cfg), nil
}

func (m *KeyMirror) WriteOutputBit(bank hal.Bank, index int, value bool) {
	m.Board.WriteOutputBit(bank, index, value)
	if bank != hal.BankB && bank != hal.BankC {
		return
	}
	if index < 0 || index >= hal.BankWidth {
		return
	}

	key := int(bank-hal.BankB)*hal.BankWidth + index
	if ev, ok := m.change(key, value); ok {
		if err := m.send(ev.Message()); err != nil {
			debug.LogEvery(50, "midi", "send %+v: %v", ev, err)
		}
	}
}

// change records the new key level and returns the event to send, if any
func (m *KeyMirror) change(key int, value bool) (Event, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bit := uint32(1) << key
	if (m.on&bit != 0) == value {
		return Event{}, false
	}
	note := int(m.cfg.BaseNote) + key
	if note > 127 {
		return Event{}, false
	}

	if value {
		m.on |= bit
		return Event{Type: NoteOn, Channel: m.cfg.Channel, Note: uint8(note), Velocity: m.cfg.Velocity}, true
	}
	m.on &^= bit
	return Event{Type: NoteOff, Channel: m.cfg.Channel, Note: uint8(note)}, true
}

// WaitButtonEdge forwards to the wrapped board
func (m *KeyMirror) WaitButtonEdge(ctx context.Context) (hal.Button, bool) {
	return hal.WaitEdge(ctx, m.Board, time.Millisecond)
}

// PostButtonEdge forwards to the wrapped board when it accepts posted edges
func (m *KeyMirror) PostButtonEdge(b hal.Button) bool {
	if p, ok := m.Board.(hal.EdgePoster); ok {
		return p.PostButtonEdge(b)
	}
	return false
}

// Sounding returns the keys currently held as notes
func (m *KeyMirror) Sounding() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.on
}

// Silence sends note off for every sounding key
func (m *KeyMirror) Silence() {
	for key := 0; key < 2*hal.BankWidth; key++ {
		if ev, ok := m.change(key, false); ok {
			m.send(ev.Message())
		}
	}
}
