package midi

import (
	"fmt"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"go-musicbox/debug"
	"go-musicbox/hal"
)

// LaunchpadController uses a Novation Launchpad X as the front panel: the
// first four top-row buttons are the panel buttons and the bottom four rows
// of the grid show the 32 keys
type LaunchpadController struct {
	id       string
	outPort  drivers.Out
	inPort   drivers.In
	send     func(msg gomidi.Message) error
	stopFunc func()

	buttonChan chan hal.Button

	mu    sync.Mutex
	shown uint32 // key mask currently lit
}

// top-row button colors, in hal.Buttons order
var buttonColors = [hal.NumButtons]uint8{ColorBlue, ColorYellow, ColorGreen, ColorRed}

// NewLaunchpadController creates and configures a Launchpad
func NewLaunchpadController(id string, inPort drivers.In, outPort drivers.Out) (*LaunchpadController, error) {
	lp := &LaunchpadController{
		id:         id,
		inPort:     inPort,
		outPort:    outPort,
		buttonChan: make(chan hal.Button, 32),
	}

	// Open output
	if outPort != nil {
		send, err := gomidi.SendTo(outPort)
		if err != nil {
			return nil, fmt.Errorf("open output: %w", err)
		}
		lp.send = send

		// Send SysEx to switch to Programmer mode
		// F0 00 20 29 02 0C 00 7F F7
		lp.send(gomidi.SysEx([]byte{0x00, 0x20, 0x29, 0x02, 0x0C, 0x00, 0x7F}))

		// Enable external LED feedback
		// F0 00 20 29 02 0C 0A 01 01 F7
		lp.send(gomidi.SysEx([]byte{0x00, 0x20, 0x29, 0x02, 0x0C, 0x0A, 0x01, 0x01}))

		lp.lightButtons()
	}

	// Open input
	if inPort != nil {
		stop, err := gomidi.ListenTo(inPort, lp.handle)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		lp.stopFunc = stop
	}

	return lp, nil
}

// handle turns top-row presses into button edges
func (lp *LaunchpadController) handle(msg gomidi.Message, timestampms int32) {
	var channel, cc, value uint8
	if !msg.GetControlChange(&channel, &cc, &value) || value == 0 {
		return
	}
	b, ok := ccToButton(cc)
	if !ok {
		return
	}
	select {
	case lp.buttonChan <- b:
	default:
		debug.Log("midi", "launchpad %s: dropped %v", lp.id, b)
	}
}

func (lp *LaunchpadController) lightButtons() {
	for i, color := range buttonColors {
		lp.send(gomidi.ControlChange(ChannelStatic, buttonToCC(hal.Buttons[i]), color))
	}
}

func (lp *LaunchpadController) ID() string {
	return lp.id
}

func (lp *LaunchpadController) Type() ControllerType {
	return ControllerLaunchpad
}

func (lp *LaunchpadController) Buttons() <-chan hal.Button {
	return lp.buttonChan
}

// ShowKeys lights the pads of active keys, sending only the pads that changed
func (lp *LaunchpadController) ShowKeys(active uint32) error {
	if lp.send == nil {
		return nil
	}
	lp.mu.Lock()
	defer lp.mu.Unlock()

	changed := lp.shown ^ active
	for key := 0; key < 32; key++ {
		bit := uint32(1) << key
		if changed&bit == 0 {
			continue
		}
		color := ColorOff
		if active&bit != 0 {
			color = keyColor(key)
		}
		row, col := keyToRowCol(key)
		if err := lp.send(gomidi.NoteOn(ChannelStatic, rowColToNote(row, col), color)); err != nil {
			return err
		}
	}
	lp.shown = active
	return nil
}

func (lp *LaunchpadController) Close() error {
	if lp.send != nil {
		lp.ShowKeys(0)
		for _, b := range hal.Buttons {
			lp.send(gomidi.ControlChange(ChannelStatic, buttonToCC(b), ColorOff))
		}
	}
	if lp.stopFunc != nil {
		lp.stopFunc()
	}
	close(lp.buttonChan)
	return nil
}

// keyColor gives bank B keys one color and bank C keys another
func keyColor(key int) uint8 {
	if key < hal.BankWidth {
		return ColorOrange
	}
	return ColorDimBlue
}

// Launchpad X note mapping
// 8x8 Grid:  Row 0 (bottom) = notes 11-18, Row 7 = notes 81-88
// Top row:   CC 91-98; the first four are the panel buttons
// Keys 0-31 fill rows 0-3, eight per row.

func keyToRowCol(key int) (row, col int) {
	return key / 8, key % 8
}

func rowColToNote(row, col int) uint8 {
	return uint8((row+1)*10 + col + 1)
}

func ccToButton(cc uint8) (hal.Button, bool) {
	if cc < 91 || cc >= 91+hal.NumButtons {
		return 0, false
	}
	return hal.Buttons[cc-91], true
}

func buttonToCC(b hal.Button) uint8 {
	return uint8(91 + int(b))
}
