// Package session runs one visitor's navigation controller, engagement
// scheduler and lead forms together, the way a single browser tab would.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"headroom-havens-backend/internal/catalog"
	"headroom-havens-backend/internal/engagement"
	"headroom-havens-backend/internal/kv"
	"headroom-havens-backend/internal/lead"
	"headroom-havens-backend/internal/model"
	"headroom-havens-backend/internal/navigation"
	"headroom-havens-backend/internal/render"
	"headroom-havens-backend/internal/store"
)

// FormKind names one of the lead-capturing forms.
type FormKind string

const (
	FormInterest FormKind = "interest"
	FormBooking  FormKind = "booking"
	FormReview   FormKind = "review"
	FormContact  FormKind = "contact"
)

var formKinds = []FormKind{FormInterest, FormBooking, FormReview, FormContact}

// FormKinds lists every form a session accepts.
func FormKinds() []FormKind {
	return append([]FormKind(nil), formKinds...)
}

var (
	// ErrUnknownForm is returned for a form name that is not one of FormKind.
	ErrUnknownForm = errors.New("unknown form")
	// ErrNotOffered is returned for an interest submission while neither the
	// interstitial nor the call-to-action is showing, e.g. after capture or
	// before a consent decision.
	ErrNotOffered = errors.New("interest form not offered")
)

// Dispatcher queues operator alerts for recorded leads.
type Dispatcher interface {
	Dispatch(leadID string)
}

// Deps are the collaborators shared by every session.
type Deps struct {
	Catalog    *catalog.Catalog
	Store      store.Store // nil keeps visitor storage in memory and skips the lead log
	Submitter  lead.Submitter
	Alerts     Dispatcher // may be nil
	Engagement engagement.Options
	BookingURL string
}

// Outcome is what follows a successful submission.
type Outcome struct {
	Form         FormKind `json:"form"`
	LeadID       string   `json:"leadId"`
	RedirectURL  string   `json:"redirectUrl,omitempty"`
	Confirmation string   `json:"confirmation,omitempty"`
}

// Snapshot is the full render state of a session.
type Snapshot struct {
	ID         string              `json:"id"`
	VisitorID  string              `json:"visitorId"`
	Page       render.Page         `json:"page"`
	Engagement engagement.Snapshot `json:"engagement"`
	Submitting []FormKind          `json:"submitting,omitempty"`
	Notice     string              `json:"notice,omitempty"`
}

// Session is one visitor tab.
type Session struct {
	ID        string
	VisitorID string

	deps    Deps
	history *navigation.MemoryHistory
	nav     *navigation.Controller
	sched   *engagement.Scheduler
	forms   map[FormKind]*lead.Form

	// navMu serialises history moves with location updates.
	navMu sync.Mutex

	mu     sync.Mutex
	filter catalog.Filter
	notice string
}

func newSession(id, visitorID, path string, deps Deps) (*Session, error) {
	var storage kv.Store
	if deps.Store != nil {
		storage = deps.Store.KV(visitorID)
	} else {
		storage = kv.NewMemoryStore()
	}

	s := &Session{
		ID:        id,
		VisitorID: visitorID,
		deps:      deps,
		history:   navigation.NewMemoryHistory(path),
		forms:     make(map[FormKind]*lead.Form, len(formKinds)),
	}

	opts := deps.Engagement
	onPresent := opts.OnPresent
	opts.OnPresent = func() {
		log.Printf("Session %s: presenting interest interstitial", id)
		if onPresent != nil {
			onPresent()
		}
	}
	s.sched = engagement.NewScheduler(engagement.NewRepository(storage), opts)
	s.nav = navigation.NewController(s.history, s.sched, nil)
	for _, kind := range formKinds {
		s.forms[kind] = lead.NewForm(string(kind), deps.Submitter)
	}

	if err := s.sched.Mount(); err != nil {
		return nil, fmt.Errorf("failed to mount scheduler: %w", err)
	}
	if _, err := s.nav.Load(path); err != nil {
		s.setNotice(err)
	}
	return s, nil
}

// Close cancels the session's pending timer.
func (s *Session) Close() {
	s.sched.Unmount()
}

// Navigate moves to view. A refused navigation leaves the location unchanged
// and sets the blocking notice.
func (s *Session) Navigate(view navigation.View, entityID int64) error {
	s.navMu.Lock()
	defer s.navMu.Unlock()
	_, err := s.nav.Navigate(view, entityID)
	s.setNotice(err)
	return err
}

// Back goes one history entry back. It reports false at the first entry.
func (s *Session) Back() bool {
	s.navMu.Lock()
	defer s.navMu.Unlock()
	state, ok := s.history.Back()
	if ok {
		s.nav.PopState(state)
		s.setNotice(nil)
	}
	return ok
}

// Forward goes one history entry forward.
func (s *Session) Forward() bool {
	s.navMu.Lock()
	defer s.navMu.Unlock()
	state, ok := s.history.Forward()
	if ok {
		s.nav.PopState(state)
		s.setNotice(nil)
	}
	return ok
}

// SetFilter changes the listings view filter.
func (s *Session) SetFilter(f catalog.Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = f
}

// Accept records accepted consent.
func (s *Session) Accept() error {
	_, err := s.sched.Accept()
	if err == nil {
		s.setNotice(nil)
	}
	return err
}

// Reject records rejected consent.
func (s *Session) Reject() error {
	_, err := s.sched.Reject()
	return err
}

// OpenInterest opens the interstitial from the call-to-action button.
func (s *Session) OpenInterest() (bool, error) {
	return s.sched.Open()
}

// DismissInterest closes the interstitial without submitting.
func (s *Session) DismissInterest() error {
	return s.sched.Dismiss()
}

// Submit sends a form through the lead gateway and applies the form's
// follow-up on success. A failed attempt changes nothing and may be retried.
func (s *Session) Submit(ctx context.Context, kind FormKind, fields lead.Fields) (Outcome, error) {
	form, ok := s.forms[kind]
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownForm, kind)
	}
	if kind == FormInterest {
		offered, err := s.sched.Offered()
		if err != nil {
			return Outcome{}, err
		}
		if !offered {
			return Outcome{}, ErrNotOffered
		}
	}

	payload := make(lead.Fields, len(fields)+1)
	for k, v := range fields {
		payload[k] = v
	}

	var listingID *int64
	if kind == FormBooking || kind == FormReview {
		l := s.listingFor(fields)
		id := l.ID
		listingID = &id
		payload["listingId"] = id
		payload["listingName"] = l.Name
	}

	if err := form.Submit(ctx, payload); err != nil {
		return Outcome{}, err
	}

	out := Outcome{Form: kind, LeadID: s.recordLead(ctx, kind, listingID, payload)}
	switch kind {
	case FormInterest:
		if err := s.sched.Capture(); err != nil {
			return out, fmt.Errorf("failed to record capture: %w", err)
		}
		out.Confirmation = "Thanks! We'll be in touch with new havens."
	case FormBooking:
		out.RedirectURL = s.bookingURL(*listingID)
	case FormReview:
		out.Confirmation = "Thanks for your review!"
	case FormContact:
		out.Confirmation = "Thanks for getting in touch. We'll reply soon."
	}
	return out, nil
}

// Snapshot returns everything the render layer needs.
func (s *Session) Snapshot() (Snapshot, error) {
	eng, err := s.sched.Snapshot()
	if err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	filter := s.filter
	notice := s.notice
	s.mu.Unlock()

	var submitting []FormKind
	for _, kind := range formKinds {
		if s.forms[kind].Submitting() {
			submitting = append(submitting, kind)
		}
	}

	return Snapshot{
		ID:         s.ID,
		VisitorID:  s.VisitorID,
		Page:       render.Select(s.nav.Current(), s.deps.Catalog, filter),
		Engagement: eng,
		Submitting: submitting,
		Notice:     notice,
	}, nil
}

// listingFor picks the listing a booking or review is about: an explicit
// listingId field, else the listing in view, else the first catalog entry.
func (s *Session) listingFor(fields lead.Fields) catalog.Listing {
	id := s.nav.Current().EntityID
	if raw, ok := fields["listingId"]; ok {
		if n, ok := toInt64(raw); ok {
			id = n
		}
	}
	if l, err := s.deps.Catalog.Resolve(id); err == nil {
		return l
	}
	first, _ := s.deps.Catalog.First()
	return first
}

func (s *Session) bookingURL(listingID int64) string {
	u, err := url.Parse(s.deps.BookingURL)
	if err != nil || s.deps.BookingURL == "" {
		return ""
	}
	q := u.Query()
	q.Set("listing", strconv.FormatInt(listingID, 10))
	u.RawQuery = q.Encode()
	return u.String()
}

func (s *Session) recordLead(ctx context.Context, kind FormKind, listingID *int64, payload lead.Fields) string {
	id := uuid.Must(uuid.NewV7()).String()
	if s.deps.Store == nil {
		return id
	}
	rec := &model.Lead{
		ID:        id,
		SessionID: s.ID,
		FormName:  string(kind),
		ListingID: listingID,
		Payload:   lead.Encode(string(kind), payload),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.deps.Store.RecordLead(ctx, rec); err != nil {
		log.Printf("Error recording lead %s: %v", id, err)
		return id
	}
	if s.deps.Alerts != nil {
		s.deps.Alerts.Dispatch(id)
	}
	return id
}

func (s *Session) setNotice(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if errors.Is(err, navigation.ErrConsentRequired) {
		s.notice = navigation.ConsentNotice
		return
	}
	s.notice = ""
}

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int64:
		return x, true
	case float64:
		return int64(x), true
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		return n, err == nil
	}
	return 0, false
}
