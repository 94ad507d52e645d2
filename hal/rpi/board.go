// Package rpi drives the music box from Raspberry Pi GPIO.
//
// Buttons are wired to ground with the internal pull-ups enabled, so a press
// is a falling edge. Each key and status LED is one output pin.
package rpi

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bep/debounce"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"go-musicbox/debug"
	"go-musicbox/hal"
)

// Pins names the GPIO lines (periph names such as "GPIO17"). Empty output
// names leave that bit unconnected.
type Pins struct {
	Buttons [hal.NumButtons]string              `json:"buttons"`
	Outputs [hal.NumBanks][hal.BankWidth]string `json:"outputs"`
}

// Board implements hal.Board on GPIO pins
type Board struct {
	edges *hal.EdgeQueue
	irq   sync.Mutex

	buttons [hal.NumButtons]gpio.PinIO
	outputs [hal.NumBanks][hal.BankWidth]gpio.PinIO

	stop chan struct{}
	wg   sync.WaitGroup
}

// Open initializes the host drivers, configures every pin and starts one
// edge watcher per button. Presses shorter than debounceDelay apart are
// merged into one edge.
func Open(pins Pins, debounceDelay time.Duration) (*Board, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}

	var buttons [hal.NumButtons]gpio.PinIO
	var outputs [hal.NumBanks][hal.BankWidth]gpio.PinIO

	for bank := range pins.Outputs {
		for i, name := range pins.Outputs[bank] {
			if name == "" {
				continue
			}
			p := gpioreg.ByName(name)
			if p == nil {
				return nil, fmt.Errorf("output %v%d: no pin %q", hal.Bank(bank), i, name)
			}
			outputs[bank][i] = p
		}
	}
	for i, name := range pins.Buttons {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("button %v: no pin %q", hal.Button(i), name)
		}
		buttons[i] = p
	}

	b, err := newBoard(buttons, outputs, debounceDelay)
	if err != nil {
		return nil, err
	}
	debug.Log("gpio", "board open: buttons=%v", pins.Buttons)
	return b, nil
}

// newBoard configures already resolved pins. Nil outputs are skipped.
func newBoard(buttons [hal.NumButtons]gpio.PinIO, outputs [hal.NumBanks][hal.BankWidth]gpio.PinIO, debounceDelay time.Duration) (*Board, error) {
	b := &Board{
		edges:   hal.NewEdgeQueue(16),
		buttons: buttons,
		outputs: outputs,
		stop:    make(chan struct{}),
	}

	for bank := range outputs {
		for i, p := range outputs[bank] {
			if p == nil {
				continue
			}
			if err := p.Out(gpio.Low); err != nil {
				return nil, fmt.Errorf("output %v%d on %s: %w", hal.Bank(bank), i, p, err)
			}
		}
	}

	for i, p := range buttons {
		if p == nil {
			return nil, fmt.Errorf("button %v: not wired", hal.Button(i))
		}
		if err := p.In(gpio.PullUp, gpio.FallingEdge); err != nil {
			return nil, fmt.Errorf("button %v on %s: %w", hal.Button(i), p, err)
		}
	}

	for i, p := range buttons {
		b.wg.Add(1)
		go b.watch(hal.Button(i), p, debounce.New(debounceDelay))
	}
	return b, nil
}

// watch turns falling edges on one pin into button edges
func (b *Board) watch(btn hal.Button, pin gpio.PinIO, debounced func(f func())) {
	defer b.wg.Done()
	for {
		select {
		case <-b.stop:
			return
		default:
		}

		// Wake up now and then to notice Close
		if !pin.WaitForEdge(100 * time.Millisecond) {
			continue
		}
		debounced(func() {
			// still held down once the contacts settle
			if pin.Read() == gpio.Low {
				if !b.edges.Post(btn) {
					debug.Log("gpio", "edge queue full, dropped %v", btn)
				}
			}
		})
	}
}

func (b *Board) ReadButtonEdge() (hal.Button, bool) {
	return b.edges.Read()
}

func (b *Board) WaitButtonEdge(ctx context.Context) (hal.Button, bool) {
	return b.edges.Wait(ctx)
}

// PostButtonEdge lets software sources press buttons too
func (b *Board) PostButtonEdge(btn hal.Button) bool {
	return b.edges.Post(btn)
}

func (b *Board) WriteOutputBit(bank hal.Bank, index int, value bool) {
	if !bank.Valid() || index < 0 || index >= hal.BankWidth {
		return
	}
	p := b.outputs[bank][index]
	if p == nil {
		return
	}
	if err := p.Out(gpio.Level(value)); err != nil {
		debug.LogEvery(100, "gpio", "write %v%d: %v", bank, index, err)
	}
}

func (b *Board) CriticalSection(fn func()) {
	b.irq.Lock()
	defer b.irq.Unlock()
	fn()
}

// Close stops the watchers and drives every output low
func (b *Board) Close() error {
	close(b.stop)
	b.wg.Wait()
	for bank := range b.outputs {
		for _, p := range b.outputs[bank] {
			if p != nil {
				p.Out(gpio.Low)
			}
		}
	}
	for _, p := range b.buttons {
		if p != nil {
			p.Halt()
		}
	}
	return nil
}
