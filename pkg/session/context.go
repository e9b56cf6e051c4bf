// Package session holds the process-wide session token and the last-known
// backend address.
package session

import (
	"errors"
	"sync"
)

// ErrNoSession is returned when no address or token has been stored yet.
var ErrNoSession = errors.New("session: not logged in")

// AuthContext is what the access client reads the token from and what it
// clears when the session expires.
type AuthContext interface {
	Token() string
	Address() string
	RemoveToken() error
	RemoveAddress() error
}

// MemoryContext keeps the session in process memory.
type MemoryContext struct {
	mu      sync.RWMutex
	token   string
	address string
}

func NewMemoryContext(address, token string) *MemoryContext {
	return &MemoryContext{address: address, token: token}
}

func (m *MemoryContext) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

func (m *MemoryContext) Address() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.address
}

func (m *MemoryContext) SetToken(token string) {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
}

func (m *MemoryContext) RemoveToken() error {
	m.mu.Lock()
	m.token = ""
	m.mu.Unlock()
	return nil
}

func (m *MemoryContext) RemoveAddress() error {
	m.mu.Lock()
	m.address = ""
	m.mu.Unlock()
	return nil
}
