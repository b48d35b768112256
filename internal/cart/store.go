package cart

import (
	"fmt"
	"sync"

	pkgerrors "github.com/angelmondragon/grocerycart/pkg/errors"
	"github.com/angelmondragon/grocerycart/pkg/types"
	"github.com/google/uuid"
)

// Store is the single owner of the local cart mirror. It performs no I/O;
// every mutation is a fold of server-confirmed data.
type Store struct {
	mu      sync.Mutex
	lines   []types.CartLine
	totals  types.CartTotals
	pending bool

	subs    map[int]chan types.CartState
	nextSub int

	newLineID func() string
}

// NewStore returns an empty cart mirror.
func NewStore() *Store {
	return &Store{
		subs:      map[int]chan types.CartState{},
		newLineID: uuid.NewString,
	}
}

// ReplaceAll swaps in a full server cart and clears Pending. Duplicate keys
// collapse to the last occurrence and zero-quantity lines are dropped.
// Any negative quantity rejects the whole batch.
func (s *Store) ReplaceAll(lines []types.CartLine, totals types.CartTotals) error {
	for _, line := range lines {
		if line.Quantity < 0 {
			return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("negative quantity %d for line %s", line.Quantity, line.Key()))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byKey := make(map[types.LineKey]int, len(lines))
	collapsed := make([]types.CartLine, 0, len(lines))
	for _, line := range lines {
		if idx, ok := byKey[line.Key()]; ok {
			collapsed[idx] = line
			continue
		}
		byKey[line.Key()] = len(collapsed)
		collapsed = append(collapsed, line)
	}

	next := make([]types.CartLine, 0, len(collapsed))
	for _, line := range collapsed {
		if line.Quantity == 0 {
			continue
		}
		line.LineID = s.lineIDFor(line.Key(), line.LineID)
		next = append(next, cloneLine(line))
	}

	s.lines = next
	s.totals = totals
	s.pending = false
	s.notifyLocked()
	return nil
}

// ApplyMutationResult folds one add/increment/decrement answer. A positive
// quantity upserts the line, zero removes it. Totals replace the current
// ones when provided. Negative quantities are a logic error and leave the
// store untouched.
func (s *Store) ApplyMutationResult(productID, variantID int64, newQuantity int, totals *types.CartTotals) error {
	key := types.LineKey{ProductID: productID, VariantID: variantID}
	if newQuantity < 0 {
		return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("negative quantity %d for line %s", newQuantity, key))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(key)
	switch {
	case newQuantity == 0 && idx >= 0:
		s.lines = append(s.lines[:idx:idx], s.lines[idx+1:]...)
	case newQuantity > 0 && idx >= 0:
		s.lines[idx].Quantity = newQuantity
	case newQuantity > 0:
		s.lines = append(s.lines, types.CartLine{
			LineID:    s.newLineID(),
			ProductID: productID,
			VariantID: variantID,
			Quantity:  newQuantity,
		})
	}
	if totals != nil {
		s.totals = *totals
	}
	s.notifyLocked()
	return nil
}

// SetPending flags whether requests are outstanding.
func (s *Store) SetPending(pending bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == pending {
		return
	}
	s.pending = pending
	s.notifyLocked()
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() types.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Line looks up a single line by key.
func (s *Store) Line(key types.LineKey) (types.CartLine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexLocked(key); idx >= 0 {
		return cloneLine(s.lines[idx]), true
	}
	return types.CartLine{}, false
}

func (s *Store) Totals() types.CartTotals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totals
}

func (s *Store) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Subscribe delivers a snapshot after every change. Slow readers only see
// the latest state. Call cancel to stop and close the channel.
func (s *Store) Subscribe() (<-chan types.CartState, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan types.CartState, 1)
	s.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

func (s *Store) notifyLocked() {
	if len(s.subs) == 0 {
		return
	}
	state := s.snapshotLocked()
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- state.Clone():
		default:
		}
	}
}

func (s *Store) snapshotLocked() types.CartState {
	return types.CartState{Lines: s.lines, Totals: s.totals, Pending: s.pending}.Clone()
}

func (s *Store) indexLocked(key types.LineKey) int {
	for i, line := range s.lines {
		if line.Key() == key {
			return i
		}
	}
	return -1
}

// lineIDFor keeps the id of a line already in the mirror, whatever the
// server calls it now. Unseen lines take the server id, or a fresh local one.
func (s *Store) lineIDFor(key types.LineKey, serverID string) string {
	if idx := s.indexLocked(key); idx >= 0 && s.lines[idx].LineID != "" {
		return s.lines[idx].LineID
	}
	if serverID != "" {
		return serverID
	}
	return s.newLineID()
}

func cloneLine(line types.CartLine) types.CartLine {
	return types.CartState{Lines: []types.CartLine{line}}.Clone().Lines[0]
}
