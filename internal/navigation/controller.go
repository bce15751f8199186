package navigation

import (
	"errors"
	"fmt"
	"sync"
)

// ErrConsentRequired is returned when a gated view is requested before the
// visitor has accepted consent. The navigation is a no-op.
var ErrConsentRequired = errors.New("consent required")

// ConsentNotice is the blocking notice shown for a refused navigation.
const ConsentNotice = "Please accept cookies to browse our havens."

// ConsentSource reports whether the visitor has accepted consent.
type ConsentSource interface {
	ConsentAccepted() bool
}

// Viewport is the scroll side effect of a transition.
type Viewport interface {
	ScrollToOrigin()
}

// Listener is called with the new location after every transition.
type Listener func(Location)

// Controller owns the current location and keeps it in step with History.
type Controller struct {
	mu        sync.Mutex
	history   History
	consent   ConsentSource
	viewport  Viewport
	listeners []Listener
	current   Location
}

// NewController creates a controller positioned at home. viewport may be nil.
func NewController(history History, consent ConsentSource, viewport Viewport) *Controller {
	return &Controller{
		history:  history,
		consent:  consent,
		viewport: viewport,
		current:  Home(),
	}
}

// Subscribe registers a listener for location changes.
func (c *Controller) Subscribe(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// Current returns the location being rendered.
func (c *Controller) Current() Location {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Navigate moves to view, pushing a history entry before updating state.
func (c *Controller) Navigate(view View, entityID int64) (Location, error) {
	loc := NewLocation(view, entityID)

	c.mu.Lock()
	if !c.allowed(loc.View) {
		current := c.current
		c.mu.Unlock()
		return current, fmt.Errorf("navigate to %s: %w", loc.View, ErrConsentRequired)
	}
	c.history.Push(loc, loc.URL())
	listeners := c.setLocked(loc)
	c.mu.Unlock()

	if c.viewport != nil {
		c.viewport.ScrollToOrigin()
	}
	notify(listeners, loc)
	return loc, nil
}

// PopState handles platform back/forward navigation. A nil state, as on a
// freshly loaded entry, falls back to home. Nothing is pushed.
func (c *Controller) PopState(state *Location) Location {
	loc := Home()
	if state != nil {
		loc = NewLocation(state.View, state.EntityID)
	}

	c.mu.Lock()
	listeners := c.setLocked(loc)
	c.mu.Unlock()

	notify(listeners, loc)
	return loc
}

// Load parses the address-bar path on first load and attaches the parsed
// location to the current history entry. A deep link to a gated view without
// accepted consent lands on home and reports ErrConsentRequired.
func (c *Controller) Load(path string) (Location, error) {
	loc := ParseURL(path)

	c.mu.Lock()
	var err error
	if !c.allowed(loc.View) {
		err = fmt.Errorf("load %s: %w", loc.View, ErrConsentRequired)
		loc = Home()
	}
	c.history.Replace(loc, loc.URL())
	listeners := c.setLocked(loc)
	c.mu.Unlock()

	notify(listeners, loc)
	return loc, err
}

func (c *Controller) allowed(v View) bool {
	if v.AlwaysOpen() {
		return true
	}
	return c.consent != nil && c.consent.ConsentAccepted()
}

func (c *Controller) setLocked(loc Location) []Listener {
	c.current = loc
	listeners := make([]Listener, len(c.listeners))
	copy(listeners, c.listeners)
	return listeners
}

func notify(listeners []Listener, loc Location) {
	for _, l := range listeners {
		l(loc)
	}
}
