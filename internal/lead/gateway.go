// Package lead posts lead forms to the remote form collector.
package lead

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// FormNameField is the discriminator the collector uses to route a submission.
const FormNameField = "form-name"

var (
	// ErrInFlight is returned when a form is submitted while a previous
	// submission of the same form is still pending.
	ErrInFlight = errors.New("submission already in progress")
	// ErrRejected is returned when the collector answers with a non-2xx status.
	ErrRejected = errors.New("collector rejected submission")
)

// Fields are the submitted values. Values must be strings, booleans, integers
// or floats; anything else is formatted with %v.
type Fields map[string]any

// Submitter sends one form submission.
type Submitter interface {
	Submit(ctx context.Context, formName string, fields Fields) error
}

// Gateway posts url-encoded submissions to a single collector endpoint. It
// makes exactly one attempt per call.
type Gateway struct {
	endpoint string
	client   *http.Client
}

// NewGateway creates a gateway for endpoint. A nil client uses a client with
// no timeout beyond the transport defaults.
func NewGateway(endpoint string, client *http.Client) *Gateway {
	if client == nil {
		client = &http.Client{}
	}
	return &Gateway{endpoint: endpoint, client: client}
}

// Submit posts the fields plus form-name. Any transport error or non-2xx
// status is a failure; the body is not read.
func (g *Gateway) Submit(ctx context.Context, formName string, fields Fields) error {
	body := Encode(formName, fields)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	}
	return nil
}

// Encode renders fields as an application/x-www-form-urlencoded body with
// form-name always set to formName. Keys are sorted.
func Encode(formName string, fields Fields) string {
	values := url.Values{}
	for k, v := range fields {
		if k == FormNameField {
			continue
		}
		values.Set(k, formatValue(v))
	}
	values.Set(FormNameField, formName)
	return values.Encode()
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

// SortedKeys returns the field names in order, for logging.
func (f Fields) SortedKeys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
