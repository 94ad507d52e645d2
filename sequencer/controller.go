package sequencer

import (
	"context"
	"sync"
	"time"

	"go-musicbox/debug"
	"go-musicbox/hal"
)

// Status is a consistent copy of the controller's shared fields
type Status struct {
	State    State
	SongID   int
	Song     string
	Mode     int
	Beat     int
	Cursor   int
	Finished bool
	Keys     KeySet
}

// Controller owns the machine and is the only way to reach it. Interrupt
// handlers and the main loop both go through the board's critical section,
// so neither ever sees the other's half-done update of state, song, mode,
// beat and cursor.
type Controller struct {
	board     hal.Board
	machine   *Machine
	indicator *Indicator

	// Notify the UI of updates
	updates chan struct{}
}

// NewController boots a controller on board with songs loaded
func NewController(board hal.Board, songs []*Song, layout StatusLayout) (*Controller, error) {
	keys := NewKeys(board)
	m, err := NewMachine(songs, keys)
	if err != nil {
		return nil, err
	}
	c := &Controller{
		board:     board,
		machine:   m,
		indicator: NewIndicator(board, layout),
		updates:   make(chan struct{}, 1),
	}
	board.CriticalSection(func() {
		c.indicator.Show(m.State(), m.SongID(), m.Mode())
	})
	return c, nil
}

// Interrupt is the button handler. It runs the transition for b and
// refreshes the status LEDs in one critical section.
func (c *Controller) Interrupt(b hal.Button) {
	changed := false
	c.board.CriticalSection(func() {
		changed = c.machine.Handle(b)
		c.show()
	})
	if changed {
		c.notify()
	}
}

// Step is one main-loop iteration: recover from a corrupt state, then play a
// beat if in PLAY
func (c *Controller) Step() {
	changed := false
	c.board.CriticalSection(func() {
		if !c.machine.State().Valid() {
			debug.Log("ctrl", "invalid state %v, resetting", c.machine.State())
			c.machine.Reset()
			c.show()
			changed = true
			return
		}
		if c.machine.State() != Play {
			return
		}
		c.machine.Tick()
		c.indicator.Pulse()
		if c.machine.State() != Play {
			c.show()
		}
		changed = true
	})
	if changed {
		c.notify()
	}
}

// SelectSong jumps to a song while in HOME
func (c *Controller) SelectSong(index int) error {
	var err error
	c.board.CriticalSection(func() {
		err = c.machine.SelectSong(index)
		if err == nil {
			c.show()
		}
	})
	if err != nil {
		debug.Log("ctrl", "select song: %v", err)
		return err
	}
	c.notify()
	return nil
}

// Snapshot returns all shared fields read in one critical section
func (c *Controller) Snapshot() Status {
	var st Status
	c.board.CriticalSection(func() {
		song := c.machine.Song()
		st = Status{
			State:    c.machine.State(),
			SongID:   c.machine.SongID(),
			Song:     song.Name,
			Mode:     c.machine.Mode(),
			Beat:     c.machine.Beat(),
			Cursor:   song.Cursor(),
			Finished: song.Finished(),
			Keys:     c.machine.Active(),
		}
	})
	return st
}

// NumSongs returns how many song slots are loaded
func (c *Controller) NumSongs() int {
	return c.machine.NumSongs()
}

// Updates signals after any change visible in Snapshot. Signals are
// coalesced; readers should take a fresh Snapshot.
func (c *Controller) Updates() <-chan struct{} {
	return c.updates
}

// Run services button edges and ticks the main loop every interval until
// ctx is done. All keys are released on the way out.
func (c *Controller) Run(ctx context.Context, interval time.Duration) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.serviceInterrupts(ctx)
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			c.board.CriticalSection(func() {
				c.machine.keys.DeactivateAll()
			})
			c.notify()
			return
		case <-ticker.C:
			c.Step()
		}
	}
}

func (c *Controller) serviceInterrupts(ctx context.Context) {
	for {
		b, ok := hal.WaitEdge(ctx, c.board, time.Millisecond)
		if !ok {
			return
		}
		c.Interrupt(b)
	}
}

// show must be called inside the critical section
func (c *Controller) show() {
	c.indicator.Show(c.machine.State(), c.machine.SongID(), c.machine.Mode())
}

func (c *Controller) notify() {
	select {
	case c.updates <- struct{}{}:
	default:
	}
}
