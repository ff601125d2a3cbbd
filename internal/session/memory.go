package session

import (
	"context"

	"github.com/iliyamo/ticketbooth/internal/model"
)

// Memory keeps the session in process memory.
type Memory struct {
	cell
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Save(_ context.Context, st model.AuthState) error {
	m.replace(st, true)
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.replace(model.AuthState{}, false)
	return nil
}

func (m *Memory) Close() error { return nil }
