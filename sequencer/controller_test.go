package sequencer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-musicbox/hal"
)

func newTestController(t *testing.T, songs ...*Song) (*Controller, *hal.SimBoard) {
	t.Helper()
	board := hal.NewSimBoard()
	if len(songs) == 0 {
		songs = []*Song{
			newTestSong(t, 1, Policy{}, "0|2,4|", "3|5|2", "6||4,5"),
			newTestSong(t, 1, Policy{}, "1|7|"),
		}
	}
	c, err := NewController(board, songs, DefaultStatusLayout())
	require.NoError(t, err)
	return c, board
}

func TestControllerShowsBootStatus(t *testing.T) {
	_, board := newTestController(t)
	state, song, mode := DefaultStatusLayout().Decode(board.Register(hal.BankA))
	assert.Equal(t, Home, state)
	assert.Equal(t, 0, song)
	assert.Equal(t, 0, mode)
}

func TestControllerInterruptUpdatesIndicator(t *testing.T) {
	c, board := newTestController(t)
	layout := DefaultStatusLayout()

	c.Interrupt(hal.SongSelect)
	c.Interrupt(hal.ModeSelect)
	c.Interrupt(hal.ModeSelect)
	state, song, mode := layout.Decode(board.Register(hal.BankA))
	assert.Equal(t, Home, state)
	assert.Equal(t, 1, song)
	assert.Equal(t, 2, mode)

	c.Interrupt(hal.StartPause)
	state, _, _ = layout.Decode(board.Register(hal.BankA))
	assert.Equal(t, Play, state)

	st := c.Snapshot()
	assert.Equal(t, Play, st.State)
	assert.Equal(t, 1, st.SongID)
	assert.Equal(t, 2, st.Mode)
}

func TestControllerStepOnlyPlaysInPlay(t *testing.T) {
	c, board := newTestController(t)
	c.Step()
	assert.Equal(t, uint16(0), board.Register(hal.BankB))

	c.Interrupt(hal.StartPause)
	c.Step()
	st := c.Snapshot()
	assert.Equal(t, KeysOf(2, 4), st.Keys)
	assert.Equal(t, 1, st.Beat)
}

func TestControllerStopSeenByNextTick(t *testing.T) {
	c, board := newTestController(t)
	c.Interrupt(hal.StartPause)
	c.Step()
	c.Step()

	c.Interrupt(hal.Stop)
	writes := board.Writes()
	c.Step()

	st := c.Snapshot()
	assert.Equal(t, Home, st.State)
	assert.Equal(t, KeySet(0), st.Keys)
	assert.Equal(t, 0, st.Beat)
	assert.Equal(t, writes, board.Writes(), "no key written after stop")
}

func TestControllerHeartbeatTogglesWhilePlaying(t *testing.T) {
	c, board := newTestController(t)
	heartbeat := uint16(1 << DefaultStatusLayout().Heartbeat)

	c.Interrupt(hal.StartPause)
	c.Step()
	first := board.Register(hal.BankA) & heartbeat
	c.Step()
	second := board.Register(hal.BankA) & heartbeat
	assert.NotEqual(t, first, second)
}

func TestControllerRecoversFromCorruptState(t *testing.T) {
	c, board := newTestController(t)
	c.Interrupt(hal.SongSelect)
	c.board.CriticalSection(func() {
		c.machine.state = State(0)
	})

	c.Step()
	st := c.Snapshot()
	assert.Equal(t, Home, st.State)
	assert.Equal(t, 0, st.SongID)
	state, _, _ := DefaultStatusLayout().Decode(board.Register(hal.BankA))
	assert.Equal(t, Home, state)
}

func TestControllerSelectSong(t *testing.T) {
	c, _ := newTestController(t)
	require.NoError(t, c.SelectSong(1))
	assert.Equal(t, 1, c.Snapshot().SongID)
	assert.ErrorIs(t, c.SelectSong(9), ErrInvalidSongIndex)
	assert.Equal(t, 1, c.Snapshot().SongID)
}

func TestControllerUpdatesCoalesce(t *testing.T) {
	c, _ := newTestController(t)
	c.Interrupt(hal.SongSelect)
	c.Interrupt(hal.SongSelect)

	select {
	case <-c.Updates():
	default:
		t.Fatal("expected an update")
	}
	select {
	case <-c.Updates():
		t.Fatal("updates should coalesce")
	default:
	}
}

func TestControllerRunPlaysSongToCompletion(t *testing.T) {
	song := newTestSong(t, 20, Policy{}, "0|2,4|", "3|5|2", "6||4,5")
	c, board := newTestController(t, song)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx, time.Millisecond)
		close(done)
	}()

	require.True(t, board.PostButtonEdge(hal.StartPause))
	assert.Eventually(t, func() bool {
		return c.Snapshot().State == Play
	}, time.Second, time.Millisecond)
	assert.Eventually(t, func() bool {
		return c.Snapshot().State == Home
	}, 2*time.Second, time.Millisecond)
	assert.Equal(t, uint16(0), board.Register(hal.BankB))

	cancel()
	<-done
}

func TestControllerRunReleasesKeysOnExit(t *testing.T) {
	slow := newTestSong(t, 1000, Policy{}, "0|1,17|", "1000|2|")
	c, board := newTestController(t, slow)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx, time.Millisecond)
		close(done)
	}()

	board.PostButtonEdge(hal.StartPause)
	require.Eventually(t, func() bool {
		return c.Snapshot().Keys == KeysOf(1, 17)
	}, time.Second, time.Millisecond)

	cancel()
	<-done
	assert.Equal(t, uint16(0), board.Register(hal.BankB))
	assert.Equal(t, uint16(0), board.Register(hal.BankC))
}

// The loop and the handlers race; every snapshot must still be a state the
// machine could actually be in.
func TestControllerConcurrentInterrupts(t *testing.T) {
	c, _ := newTestController(t)
	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				c.Step()
			}
		}
	}()

	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				c.Interrupt(hal.Buttons[(g+i)%hal.NumButtons])
			}
		}(g)
	}

	for i := 0; i < 500; i++ {
		st := c.Snapshot()
		require.True(t, st.State.Valid())
		require.Less(t, st.SongID, c.NumSongs())
		require.Less(t, st.Mode, NumModes)
		if st.State == Home {
			require.Equal(t, KeySet(0), st.Keys, "keys are released on every way back to HOME")
		}
	}
	close(stop)
	wg.Wait()
}
