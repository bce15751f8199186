package engagement

import (
	"log"
	"sync"
	"time"
)

// DefaultDelay is how long an eligible visitor browses before the
// interstitial is shown.
const DefaultDelay = 5 * time.Second

// Phase is the scheduler's observable state.
type Phase string

const (
	PhaseDormant    Phase = "dormant"
	PhaseEligible   Phase = "eligible"
	PhasePresenting Phase = "presenting"
	PhaseDismissed  Phase = "dismissed"
	PhaseCaptured   Phase = "captured"
)

// Options configures a Scheduler. Zero values take the defaults.
type Options struct {
	Delay    time.Duration
	Cooldown time.Duration
	Now      func() time.Time
	// OnPresent is called, outside the scheduler lock, when the timer shows
	// the interstitial.
	OnPresent func()
}

// Snapshot is what the render layer needs to draw engagement UI.
type Snapshot struct {
	Phase             Phase         `json:"phase"`
	Consent           Consent       `json:"consent"`
	Presenting        bool          `json:"presenting"`
	ShowCallToAction  bool          `json:"showCallToAction"`
	Captured          bool          `json:"captured"`
	CooldownRemaining time.Duration `json:"cooldownRemaining"`
}

// Scheduler decides when to present the interest interstitial. It owns at
// most one pending timer; every state change cancels it and re-arms from a
// fresh eligibility check.
type Scheduler struct {
	mu        sync.Mutex
	repo      *Repository
	delay     time.Duration
	cooldown  time.Duration
	now       func() time.Time
	onPresent func()

	mounted    bool
	presenting bool
	timer      *time.Timer
	gen        uint64
}

// NewScheduler creates an unmounted scheduler.
func NewScheduler(repo *Repository, opts Options) *Scheduler {
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = DefaultCooldown
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scheduler{
		repo:      repo,
		delay:     opts.Delay,
		cooldown:  opts.Cooldown,
		now:       opts.Now,
		onPresent: opts.OnPresent,
	}
}

// Mount evaluates eligibility once and arms the timer if eligible.
func (s *Scheduler) Mount() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mounted = true
	return s.rearmLocked()
}

// Unmount cancels any pending timer.
func (s *Scheduler) Unmount() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mounted = false
	s.cancelLocked()
}

// Accept records accepted consent and re-evaluates eligibility.
func (s *Scheduler) Accept() (State, error) {
	return s.consent(EventAccept)
}

// Reject records rejected consent and re-evaluates eligibility.
func (s *Scheduler) Reject() (State, error) {
	return s.consent(EventReject)
}

func (s *Scheduler) consent(ev Event) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before, err := s.repo.Load()
	if err != nil {
		return State{}, err
	}
	after, err := s.repo.Update(ev, s.now())
	if err != nil {
		return State{}, err
	}
	if before.Consent() != after.Consent() {
		if err := s.rearmLocked(); err != nil {
			return after, err
		}
	}
	return after, nil
}

// ConsentAccepted reports whether consent is currently accepted. Storage
// errors read as not accepted.
func (s *Scheduler) ConsentAccepted() bool {
	st, err := s.repo.Load()
	if err != nil {
		log.Printf("Error loading consent state: %v", err)
		return false
	}
	return st.Accepted
}

// Open shows the interstitial from the call-to-action button. It is a no-op
// while already presenting and refuses once captured or before a consent
// decision.
func (s *Scheduler) Open() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.presenting {
		return true, nil
	}
	st, err := s.repo.Load()
	if err != nil {
		return false, err
	}
	if !st.ShowCallToAction(false) {
		return false, nil
	}
	s.cancelLocked()
	s.presenting = true
	return true, nil
}

// Offered reports whether the interest form may be submitted: the
// interstitial is showing or the call-to-action is visible.
func (s *Scheduler) Offered() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.presenting {
		return true, nil
	}
	st, err := s.repo.Load()
	if err != nil {
		return false, err
	}
	return st.ShowCallToAction(false), nil
}

// Dismiss closes the interstitial without a submission and starts the
// cooldown. It does nothing when the interstitial is not showing.
func (s *Scheduler) Dismiss() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.presenting {
		return nil
	}
	if _, err := s.repo.Update(EventDismiss, s.now()); err != nil {
		return err
	}
	s.presenting = false
	return s.rearmLocked()
}

// Capture records a successful interest submission. The interstitial and the
// call-to-action never show again.
func (s *Scheduler) Capture() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.repo.Update(EventCapture, s.now()); err != nil {
		return err
	}
	s.presenting = false
	s.cancelLocked()
	return nil
}

// Snapshot reports the current phase and UI flags.
func (s *Scheduler) Snapshot() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.repo.Load()
	if err != nil {
		return Snapshot{}, err
	}
	remaining := st.CooldownRemaining(s.now(), s.cooldown)

	phase := PhaseDormant
	switch {
	case st.Captured:
		phase = PhaseCaptured
	case s.presenting:
		phase = PhasePresenting
	case !st.Decided():
	case remaining > 0:
		phase = PhaseDismissed
	case s.timer != nil:
		phase = PhaseEligible
	}

	return Snapshot{
		Phase:             phase,
		Consent:           st.Consent(),
		Presenting:        s.presenting,
		ShowCallToAction:  st.ShowCallToAction(s.presenting),
		Captured:          st.Captured,
		CooldownRemaining: remaining,
	}, nil
}

func (s *Scheduler) rearmLocked() error {
	s.cancelLocked()
	if !s.mounted || s.presenting {
		return nil
	}
	st, err := s.repo.Load()
	if err != nil {
		return err
	}
	if !st.Decided() || st.Captured {
		return nil
	}
	s.armLocked(st.CooldownRemaining(s.now(), s.cooldown) + s.delay)
	return nil
}

func (s *Scheduler) armLocked(wait time.Duration) {
	s.gen++
	gen := s.gen
	s.timer = time.AfterFunc(wait, func() { s.fire(gen) })
}

// cancelLocked stops the pending timer. Bumping gen makes a callback that
// already started bail out.
func (s *Scheduler) cancelLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || !s.mounted || s.presenting {
		s.mu.Unlock()
		return
	}
	s.timer = nil

	st, err := s.repo.Load()
	if err != nil {
		s.mu.Unlock()
		log.Printf("Error loading engagement state at fire time: %v", err)
		return
	}
	if !st.Eligible(s.now(), s.cooldown) {
		if err := s.rearmLocked(); err != nil {
			log.Printf("Error re-arming engagement timer: %v", err)
		}
		s.mu.Unlock()
		return
	}

	s.presenting = true
	cb := s.onPresent
	s.mu.Unlock()

	if cb != nil {
		cb()
	}
}
