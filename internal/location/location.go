// Package location resolves a viewer's current coordinate. A bridge can push
// a value at any time with SetLocation; otherwise the pull-style Locator is
// asked once and its answer is kept for the rest of the session.
package location

import (
	"context"
	"fmt"
	"sync"

	"github.com/mr1hm/go-alert-board/internal/geo"
	"github.com/mr1hm/go-alert-board/internal/models"
)

// Locator is a pull-style position source, such as a device geolocation API
// or a position supplied with the current request.
type Locator interface {
	CurrentPosition(ctx context.Context) (models.Coordinate, error)
}

// LocatorFunc adapts a function to the Locator interface.
type LocatorFunc func(ctx context.Context) (models.Coordinate, error)

func (f LocatorFunc) CurrentPosition(ctx context.Context) (models.Coordinate, error) {
	return f(ctx)
}

// State holds the last known coordinate of one session. It never expires.
type State struct {
	mu    sync.RWMutex
	coord *models.Coordinate
}

func (s *State) SetLocation(c models.Coordinate) {
	s.mu.Lock()
	s.coord = &c
	s.mu.Unlock()
}

func (s *State) Location() (models.Coordinate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.coord == nil {
		return models.Coordinate{}, false
	}
	return *s.coord, true
}

// Resolve returns the cached coordinate when present. Otherwise it queries
// locator (which may be nil) and caches a valid answer. Any failure is
// reported as models.ErrLocationUnavailable.
func Resolve(ctx context.Context, state *State, locator Locator) (models.Coordinate, error) {
	if c, ok := state.Location(); ok {
		return c, nil
	}
	if locator == nil {
		return models.Coordinate{}, models.ErrLocationUnavailable
	}

	c, err := locator.CurrentPosition(ctx)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("%w: %v", models.ErrLocationUnavailable, err)
	}
	if !geo.Valid(c) {
		return models.Coordinate{}, fmt.Errorf("%w: invalid coordinate %v", models.ErrLocationUnavailable, c)
	}

	state.SetLocation(c)
	return c, nil
}

// Sessions maps user ids to their session state, creating entries lazily.
type Sessions struct {
	mu     sync.Mutex
	states map[string]*State
}

func NewSessions() *Sessions {
	return &Sessions{
		states: make(map[string]*State),
	}
}

func (s *Sessions) For(userID string) *State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[userID]
	if !ok {
		st = &State{}
		s.states[userID] = st
	}
	return st
}
