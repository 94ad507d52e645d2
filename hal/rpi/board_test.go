package rpi

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"

	"go-musicbox/hal"
)

type fakePins struct {
	buttons [hal.NumButtons]*gpiotest.Pin
	keys    [hal.BankWidth]*gpiotest.Pin
}

func openFake(t *testing.T) (*Board, *fakePins) {
	t.Helper()
	f := &fakePins{}
	var buttons [hal.NumButtons]gpio.PinIO
	var outputs [hal.NumBanks][hal.BankWidth]gpio.PinIO

	for i := range f.buttons {
		f.buttons[i] = &gpiotest.Pin{N: fmt.Sprintf("BTN%d", i), EdgesChan: make(chan gpio.Level, 8)}
		buttons[i] = f.buttons[i]
	}
	for i := range f.keys {
		f.keys[i] = &gpiotest.Pin{N: fmt.Sprintf("KEY%d", i), L: gpio.High}
		outputs[hal.BankB][i] = f.keys[i]
	}

	b, err := newBoard(buttons, outputs, 5*time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b, f
}

func TestBoardDrivesOutputsLowOnOpen(t *testing.T) {
	_, f := openFake(t)
	for _, p := range f.keys {
		assert.Equal(t, gpio.Low, p.Read())
	}
}

func TestBoardWriteOutputBit(t *testing.T) {
	b, f := openFake(t)
	b.WriteOutputBit(hal.BankB, 4, true)
	assert.Equal(t, gpio.High, f.keys[4].Read())

	b.WriteOutputBit(hal.BankB, 4, false)
	assert.Equal(t, gpio.Low, f.keys[4].Read())

	// unwired and out of range bits are ignored
	b.WriteOutputBit(hal.BankC, 0, true)
	b.WriteOutputBit(hal.BankB, 99, true)
}

func TestBoardDebouncesButtonPress(t *testing.T) {
	b, f := openFake(t)

	// contact bounce: several edges, ending held down
	pin := f.buttons[hal.StartPause]
	pin.EdgesChan <- gpio.Low
	pin.EdgesChan <- gpio.High
	pin.EdgesChan <- gpio.Low

	require.Eventually(t, func() bool {
		return b.edges.Len() > 0
	}, time.Second, time.Millisecond)

	got, ok := b.ReadButtonEdge()
	require.True(t, ok)
	assert.Equal(t, hal.StartPause, got)

	time.Sleep(30 * time.Millisecond)
	_, ok = b.ReadButtonEdge()
	assert.False(t, ok, "bounces collapse into one press")
}

func TestBoardIgnoresRelease(t *testing.T) {
	b, f := openFake(t)
	f.buttons[hal.Stop].EdgesChan <- gpio.High

	time.Sleep(30 * time.Millisecond)
	_, ok := b.ReadButtonEdge()
	assert.False(t, ok)
}

func TestNewBoardNeedsEveryButton(t *testing.T) {
	var buttons [hal.NumButtons]gpio.PinIO
	var outputs [hal.NumBanks][hal.BankWidth]gpio.PinIO
	_, err := newBoard(buttons, outputs, time.Millisecond)
	assert.Error(t, err)
}
