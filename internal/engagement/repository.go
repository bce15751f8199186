package engagement

import (
	"fmt"
	"log"
	"strconv"
	"time"

	"headroom-havens-backend/internal/kv"
)

// Storage keys. Only Repository reads or writes them.
const (
	KeyConsentAccepted  = "consent_accepted"
	KeyConsentRejected  = "consent_rejected"
	KeyInterestCaptured = "interest_captured"
	KeyLastDismissed    = "interest_last_dismissed"
)

// Repository persists State through a key/value store.
type Repository struct {
	store kv.Store
}

// NewRepository wraps a key/value store.
func NewRepository(store kv.Store) *Repository {
	return &Repository{store: store}
}

// Load reads the current state. Missing keys read as false or absent; an
// unparseable dismissal timestamp is treated as absent.
func (r *Repository) Load() (State, error) {
	var s State
	var err error
	if s.Accepted, err = r.flag(KeyConsentAccepted); err != nil {
		return State{}, err
	}
	if s.Rejected, err = r.flag(KeyConsentRejected); err != nil {
		return State{}, err
	}
	if s.Captured, err = r.flag(KeyInterestCaptured); err != nil {
		return State{}, err
	}

	raw, found, err := r.store.Get(KeyLastDismissed)
	if err != nil {
		return State{}, fmt.Errorf("failed to read %s: %w", KeyLastDismissed, err)
	}
	if found {
		ts, perr := time.Parse(time.RFC3339Nano, raw)
		if perr != nil {
			log.Printf("Warning: ignoring malformed %s value %q: %v", KeyLastDismissed, raw, perr)
		} else {
			s.LastDismissedAt = ts
		}
	}

	// Both flags set can only come from an outside writer; accepted wins.
	if s.Accepted && s.Rejected {
		s.Rejected = false
	}
	return s, nil
}

// Save writes s. Each consent flag is written together with its complement
// so the two never disagree.
func (r *Repository) Save(s State) error {
	if err := r.setFlag(KeyConsentAccepted, s.Accepted); err != nil {
		return err
	}
	if err := r.setFlag(KeyConsentRejected, s.Rejected); err != nil {
		return err
	}
	if err := r.setFlag(KeyInterestCaptured, s.Captured); err != nil {
		return err
	}
	if s.LastDismissedAt.IsZero() {
		if err := r.store.Remove(KeyLastDismissed); err != nil {
			return fmt.Errorf("failed to clear %s: %w", KeyLastDismissed, err)
		}
		return nil
	}
	if err := r.store.Set(KeyLastDismissed, s.LastDismissedAt.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("failed to write %s: %w", KeyLastDismissed, err)
	}
	return nil
}

// Update loads the state, applies ev and saves the result.
func (r *Repository) Update(ev Event, now time.Time) (State, error) {
	s, err := r.Load()
	if err != nil {
		return State{}, err
	}
	s = s.Apply(ev, now)
	if err := r.Save(s); err != nil {
		return State{}, err
	}
	return s, nil
}

func (r *Repository) flag(key string) (bool, error) {
	raw, found, err := r.store.Get(key)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if !found {
		return false, nil
	}
	v, _ := strconv.ParseBool(raw)
	return v, nil
}

func (r *Repository) setFlag(key string, v bool) error {
	if !v {
		if err := r.store.Remove(key); err != nil {
			return fmt.Errorf("failed to clear %s: %w", key, err)
		}
		return nil
	}
	if err := r.store.Set(key, "true"); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}
