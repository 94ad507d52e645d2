package midi

import (
	"go-musicbox/debug"
	"go-musicbox/hal"
)

// ControllerType identifies the kind of controller
type ControllerType int

const (
	ControllerUnknown ControllerType = iota
	ControllerLaunchpad
	ControllerKeyboard
)

func (t ControllerType) String() string {
	switch t {
	case ControllerLaunchpad:
		return "launchpad"
	case ControllerKeyboard:
		return "keyboard"
	}
	return "unknown"
}

// Controller is a MIDI device standing in for the front panel: its presses
// become button edges and it may show the key state back
type Controller interface {
	ID() string
	Type() ControllerType

	// Input events from the controller
	Buttons() <-chan hal.Button

	// ShowKeys mirrors the active key mask (bit n = key n)
	ShowKeys(active uint32) error

	// Lifecycle
	Close() error
}

// Launchpad X color palette (velocity values 0-127)
const (
	ColorOff     uint8 = 0
	ColorRed     uint8 = 5
	ColorOrange  uint8 = 9
	ColorYellow  uint8 = 13
	ColorGreen   uint8 = 21
	ColorBlue    uint8 = 45
	ColorDimBlue uint8 = 43

	// Channel for solid LED colors
	ChannelStatic uint8 = 0
)

// ForwardButtons posts every press from c to the board until c is closed
func ForwardButtons(c Controller, to hal.EdgePoster) {
	for b := range c.Buttons() {
		if !to.PostButtonEdge(b) {
			debug.Log("midi", "%s: edge queue full, dropped %v", c.ID(), b)
		}
	}
}
