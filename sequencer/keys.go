package sequencer

import (
	"math/bits"
	"strconv"
	"strings"

	"go-musicbox/hal"
)

// NumKeys is the number of actuated keys (two banks of 16)
const NumKeys = 32

// KeySet is a set of key indices. Bit n is key n, so the low half is bank B
// and the high half is bank C.
type KeySet uint32

// AllKeys contains every key
const AllKeys KeySet = 0xFFFFFFFF

// KeysOf builds a set from key indices, dropping any outside 0..31
func KeysOf(keys ...int) KeySet {
	var s KeySet
	for _, k := range keys {
		s = s.Add(k)
	}
	return s
}

// Add returns s with key added. Out-of-range keys are dropped.
func (s KeySet) Add(key int) KeySet {
	if key < 0 || key >= NumKeys {
		return s
	}
	return s | 1<<key
}

// Has reports whether key is in the set
func (s KeySet) Has(key int) bool {
	if key < 0 || key >= NumKeys {
		return false
	}
	return s&(1<<key) != 0
}

// Len returns the number of keys in the set
func (s KeySet) Len() int {
	return bits.OnesCount32(uint32(s))
}

// Keys returns the members in ascending order
func (s KeySet) Keys() []int {
	keys := make([]int, 0, s.Len())
	for k := 0; k < NumKeys; k++ {
		if s.Has(k) {
			keys = append(keys, k)
		}
	}
	return keys
}

// Bank returns the 16-bit mask the set occupies in an output bank
func (s KeySet) Bank(bank hal.Bank) uint16 {
	switch bank {
	case hal.BankB:
		return uint16(s)
	case hal.BankC:
		return uint16(s >> 16)
	}
	return 0
}

func (s KeySet) String() string {
	parts := make([]string, 0, s.Len())
	for _, k := range s.Keys() {
		parts = append(parts, strconv.Itoa(k))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// BankOf maps a key index to its output bank and bit offset
func BankOf(key int) (bank hal.Bank, offset int, ok bool) {
	if key < 0 || key >= NumKeys {
		return 0, 0, false
	}
	return hal.BankB + hal.Bank(key/hal.BankWidth), key % hal.BankWidth, true
}

// Keys drives the key outputs of a board. It only ever touches the bits named
// in a request; unrelated keys keep their state.
type Keys struct {
	board  hal.Board
	active KeySet
}

// NewKeys creates an actuator writing to board
func NewKeys(board hal.Board) *Keys {
	return &Keys{board: board}
}

// Activate raises every key in set
func (k *Keys) Activate(set KeySet) {
	k.write(set, true)
	k.active |= set
}

// Deactivate lowers every key in set
func (k *Keys) Deactivate(set KeySet) {
	k.write(set, false)
	k.active &^= set
}

// DeactivateAll lowers all 16 bits of both key banks, whether or not they
// were raised
func (k *Keys) DeactivateAll() {
	k.write(AllKeys, false)
	k.active = 0
}

// Active returns the keys currently raised
func (k *Keys) Active() KeySet {
	return k.active
}

func (k *Keys) write(set KeySet, value bool) {
	for key := 0; key < NumKeys; key++ {
		if !set.Has(key) {
			continue
		}
		bank, offset, _ := BankOf(key)
		k.board.WriteOutputBit(bank, offset, value)
	}
}
