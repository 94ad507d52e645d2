// Package hal is the hardware boundary of the music box: button edges in,
// output bits out, and a critical section that keeps interrupt handlers and
// the main loop from observing each other's half-finished updates.
package hal

import (
	"context"
	"fmt"
	"time"
)

// Bank identifies a 16-bit output group
type Bank int

const (
	BankA Bank = iota // status indicator
	BankB             // keys 0-15
	BankC             // keys 16-31
)

// BankWidth is the number of output bits in a bank
const BankWidth = 16

// NumBanks is the number of output banks a board exposes
const NumBanks = 3

func (b Bank) String() string {
	switch b {
	case BankA:
		return "A"
	case BankB:
		return "B"
	case BankC:
		return "C"
	}
	return fmt.Sprintf("Bank(%d)", int(b))
}

// Valid reports whether b names a real bank
func (b Bank) Valid() bool {
	return b >= BankA && b <= BankC
}

// Button is one of the four logical front-panel buttons
type Button int

const (
	SongSelect Button = iota
	ModeSelect
	StartPause
	Stop
)

// NumButtons is the number of front-panel buttons
const NumButtons = 4

// Buttons lists every button in panel order
var Buttons = [NumButtons]Button{SongSelect, ModeSelect, StartPause, Stop}

func (b Button) String() string {
	switch b {
	case SongSelect:
		return "song"
	case ModeSelect:
		return "mode"
	case StartPause:
		return "start/pause"
	case Stop:
		return "stop"
	}
	return fmt.Sprintf("Button(%d)", int(b))
}

// Valid reports whether b names a real button
func (b Button) Valid() bool {
	return b >= SongSelect && b <= Stop
}

// Board is the hardware the controller drives.
//
// ReadButtonEdge never blocks. WriteOutputBit ignores out-of-range banks and
// indices. CriticalSection runs fn with button handling masked; it is not
// re-entrant.
type Board interface {
	ReadButtonEdge() (Button, bool)
	WriteOutputBit(bank Bank, index int, value bool)
	CriticalSection(fn func())
}

// EdgeWaiter is implemented by boards that can block until a button edge
// arrives instead of being polled
type EdgeWaiter interface {
	WaitButtonEdge(ctx context.Context) (Button, bool)
}

// EdgePoster is implemented by boards that accept button edges from software
// sources (MIDI controllers, the front panel simulator)
type EdgePoster interface {
	PostButtonEdge(b Button) bool
}

// WaitEdge blocks until the board reports a button edge or ctx is done.
// Boards without EdgeWaiter are polled every poll interval.
func WaitEdge(ctx context.Context, board Board, poll time.Duration) (Button, bool) {
	if w, ok := board.(EdgeWaiter); ok {
		return w.WaitButtonEdge(ctx)
	}
	if b, ok := board.ReadButtonEdge(); ok {
		return b, true
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return 0, false
		case <-ticker.C:
			if b, ok := board.ReadButtonEdge(); ok {
				return b, true
			}
		}
	}
}
