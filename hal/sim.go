package hal

import (
	"context"
	"sync"
)

// SimBoard is an in-memory board. Output banks are plain registers and the
// critical section is a mutex, which is the user-mode stand-in for masking
// interrupts.
type SimBoard struct {
	edges *EdgeQueue

	irq sync.Mutex // held for the duration of a critical section

	mu     sync.RWMutex // guards regs and writes
	regs   [NumBanks]uint16
	writes int
}

// NewSimBoard creates a board with all outputs low
func NewSimBoard() *SimBoard {
	return &SimBoard{
		edges: NewEdgeQueue(32),
	}
}

// PostButtonEdge simulates a button press
func (s *SimBoard) PostButtonEdge(b Button) bool {
	return s.edges.Post(b)
}

func (s *SimBoard) ReadButtonEdge() (Button, bool) {
	return s.edges.Read()
}

func (s *SimBoard) WaitButtonEdge(ctx context.Context) (Button, bool) {
	return s.edges.Wait(ctx)
}

func (s *SimBoard) WriteOutputBit(bank Bank, index int, value bool) {
	if !bank.Valid() || index < 0 || index >= BankWidth {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if value {
		s.regs[bank] |= 1 << index
	} else {
		s.regs[bank] &^= 1 << index
	}
	s.writes++
}

func (s *SimBoard) CriticalSection(fn func()) {
	s.irq.Lock()
	defer s.irq.Unlock()
	fn()
}

// Register returns the current value of an output bank
func (s *SimBoard) Register(bank Bank) uint16 {
	if !bank.Valid() {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.regs[bank]
}

// Writes returns how many output bits have been written so far
func (s *SimBoard) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// Pending returns the number of queued button edges
func (s *SimBoard) Pending() int {
	return s.edges.Len()
}
