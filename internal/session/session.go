// Package session stores the logged-in user and tells subscribers when it
// changes.  Stores differ only in where the auth state lives: process
// memory, a local file, or Redis shared between processes.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/ticketbooth/internal/model"
)

// Store is the session collaborator.  Subscribers are called after the
// store has released its own locks, so they may call back into it.
type Store interface {
	Current() *model.Identity
	Subscribe(fn func(*model.Identity)) (unsubscribe func())
	State() (model.AuthState, bool)
	Save(ctx context.Context, st model.AuthState) error
	Clear(ctx context.Context) error
	Close() error
}

// now is swapped in tests.
var now = time.Now

// identityOf returns the identity in st unless its token is a JWT whose
// exp has passed.  Signatures are not checked here; the server does that.
func identityOf(st model.AuthState) *model.Identity {
	id := model.IdentityOf(st)
	if id == nil {
		return nil
	}
	if expired(st.Token) {
		return nil
	}
	return id
}

func expired(token string) bool {
	if token == "" {
		return false
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		// Opaque tokens carry no expiry we can read.
		return false
	}
	return claims.ExpiresAt != nil && !claims.ExpiresAt.After(now())
}

// hub fans identity changes out to subscribers.
type hub struct {
	mu   sync.Mutex
	subs map[uint64]func(*model.Identity)
	next uint64
}

func (h *hub) subscribe(fn func(*model.Identity)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs == nil {
		h.subs = make(map[uint64]func(*model.Identity))
	}
	key := h.next
	h.next++
	h.subs[key] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, key)
			h.mu.Unlock()
		})
	}
}

// publish must be called without any store lock held.
func (h *hub) publish(id *model.Identity) {
	h.mu.Lock()
	fns := make([]func(*model.Identity), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.Unlock()
	for _, fn := range fns {
		fn(id)
	}
}

// cell is the cached auth state shared by every store implementation.
type cell struct {
	mu    sync.RWMutex
	state model.AuthState
	set   bool
	hub   hub
}

func (c *cell) Current() *model.Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.set {
		return nil
	}
	return identityOf(c.state)
}

func (c *cell) State() (model.AuthState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state, c.set
}

func (c *cell) Subscribe(fn func(*model.Identity)) func() {
	return c.hub.subscribe(fn)
}

// replace swaps the cached state and notifies when it actually changed.
func (c *cell) replace(st model.AuthState, set bool) {
	c.mu.Lock()
	changed := c.set != set || c.state != st
	c.state, c.set = st, set
	var id *model.Identity
	if set {
		id = identityOf(st)
	}
	c.mu.Unlock()
	if changed {
		c.hub.publish(id)
	}
}
