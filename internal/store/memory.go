package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/edgewatch/edgewatch/internal/guard"
	"github.com/edgewatch/edgewatch/internal/ledger"
)

// Memory is the in-process Store used by tests and by runs that opt out of
// persistence. Values are deep-copied through JSON so callers cannot alias
// stored state.
type Memory struct {
	mu       sync.RWMutex
	contract []byte
	day      []byte
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) LoadContract(_ context.Context) (*guard.CommitmentContract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.contract == nil {
		return nil, nil
	}
	var c guard.CommitmentContract
	if err := json.Unmarshal(m.contract, &c); err != nil {
		return nil, fmt.Errorf("decode contract: %w", err)
	}
	return &c, nil
}

func (m *Memory) SaveContract(_ context.Context, c *guard.CommitmentContract) error {
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode contract: %w", err)
	}
	m.mu.Lock()
	m.contract = b
	m.mu.Unlock()
	return nil
}

func (m *Memory) LoadDay(_ context.Context) (*ledger.DayState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.day == nil {
		return nil, nil
	}
	var d ledger.DayState
	if err := json.Unmarshal(m.day, &d); err != nil {
		return nil, fmt.Errorf("decode day state: %w", err)
	}
	return &d, nil
}

func (m *Memory) SaveDay(_ context.Context, d *ledger.DayState) error {
	b, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode day state: %w", err)
	}
	m.mu.Lock()
	m.day = b
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }
