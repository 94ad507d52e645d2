package sequencer

import (
	"fmt"

	"go-musicbox/hal"
)

// StatusLayout places the status fields in bank A. Each field is written
// right-aligned at its shift and masked to its width.
type StatusLayout struct {
	SongShift  int `json:"songShift"`
	SongBits   int `json:"songBits"`
	ModeShift  int `json:"modeShift"`
	ModeBits   int `json:"modeBits"`
	StateShift int `json:"stateShift"`
	StateBits  int `json:"stateBits"`
	Heartbeat  int `json:"heartbeat"` // bit toggled every PLAY tick, -1 for none
}

// DefaultStatusLayout is the front panel wiring of the original board
func DefaultStatusLayout() StatusLayout {
	return StatusLayout{
		SongShift:  4,
		SongBits:   2,
		ModeShift:  6,
		ModeBits:   2,
		StateShift: 8,
		StateBits:  2,
		Heartbeat:  10,
	}
}

// Check reports fields that fall outside the bank or overlap
func (l StatusLayout) Check() error {
	var used uint32
	claim := func(name string, shift, width int) error {
		if width < 0 || shift < 0 || shift+width > hal.BankWidth {
			return fmt.Errorf("%s bits %d+%d outside bank", name, shift, width)
		}
		mask := uint32(1<<width-1) << shift
		if used&mask != 0 {
			return fmt.Errorf("%s bits %d+%d overlap another field", name, shift, width)
		}
		used |= mask
		return nil
	}
	if err := claim("song", l.SongShift, l.SongBits); err != nil {
		return err
	}
	if err := claim("mode", l.ModeShift, l.ModeBits); err != nil {
		return err
	}
	if err := claim("state", l.StateShift, l.StateBits); err != nil {
		return err
	}
	if l.StateBits < 2 {
		return fmt.Errorf("state needs 2 bits, got %d", l.StateBits)
	}
	if l.Heartbeat >= 0 {
		return claim("heartbeat", l.Heartbeat, 1)
	}
	return nil
}

// Indicator renders state, song and mode onto the status bank
type Indicator struct {
	board  hal.Board
	layout StatusLayout
	pulse  bool
}

// NewIndicator creates an indicator writing to board
func NewIndicator(board hal.Board, layout StatusLayout) *Indicator {
	return &Indicator{board: board, layout: layout}
}

// Show writes all three status fields
func (ind *Indicator) Show(state State, songID, mode int) {
	ind.field(ind.layout.SongShift, ind.layout.SongBits, songID)
	ind.field(ind.layout.ModeShift, ind.layout.ModeBits, mode)
	ind.field(ind.layout.StateShift, ind.layout.StateBits, int(state))
}

// Pulse toggles the heartbeat bit
func (ind *Indicator) Pulse() {
	if ind.layout.Heartbeat < 0 {
		return
	}
	ind.pulse = !ind.pulse
	ind.board.WriteOutputBit(hal.BankA, ind.layout.Heartbeat, ind.pulse)
}

func (ind *Indicator) field(shift, width, value int) {
	for i := 0; i < width; i++ {
		ind.board.WriteOutputBit(hal.BankA, shift+i, value&(1<<i) != 0)
	}
}

// Decode reads the status fields back out of a bank A register value
func (l StatusLayout) Decode(reg uint16) (state State, songID, mode int) {
	get := func(shift, width int) int {
		return int(reg>>shift) & (1<<width - 1)
	}
	return State(get(l.StateShift, l.StateBits)), get(l.SongShift, l.SongBits), get(l.ModeShift, l.ModeBits)
}
