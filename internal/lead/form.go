package lead

import (
	"context"
	"sync"
)

// Form is one lead-capturing form instance. While a submission is pending
// the form is disabled and further submits return ErrInFlight without
// reaching the collector.
type Form struct {
	name string
	sub  Submitter

	mu         sync.Mutex
	submitting bool
}

// NewForm binds a form name to a submitter.
func NewForm(name string, sub Submitter) *Form {
	return &Form{name: name, sub: sub}
}

// Name returns the form name sent as form-name.
func (f *Form) Name() string {
	return f.name
}

// Submitting reports whether a submission is pending.
func (f *Form) Submitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitting
}

// Submit sends fields once. The form is re-enabled when the attempt
// finishes, whatever the outcome, so the visitor can retry by hand.
func (f *Form) Submit(ctx context.Context, fields Fields) error {
	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return ErrInFlight
	}
	f.submitting = true
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.submitting = false
		f.mu.Unlock()
	}()

	return f.sub.Submit(ctx, f.name, fields)
}
