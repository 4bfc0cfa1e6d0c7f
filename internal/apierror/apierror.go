// Package apierror turns failed calls to the books API into messages the UI
// can show: a map of per-field errors plus an optional form-level message.
package apierror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
)

const (
	MsgOffline = "You appear to be offline. Check your connection and try again."
	MsgTimeout = "The request timed out. Please try again."
	MsgNetwork = "Network error. Please try again."
)

// Kind classifies a transport failure.
type Kind int

const (
	KindNetwork Kind = iota
	KindTimeout
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindCanceled:
		return "canceled"
	default:
		return "network"
	}
}

// Failure is either a TransportFailure or an HTTPFailure.
type Failure interface {
	error
	failure()
}

// TransportFailure means no response was received.
type TransportFailure struct {
	Kind Kind
	Err  error
}

func (f *TransportFailure) failure() {}

func (f *TransportFailure) Error() string {
	if f.Err == nil {
		return "transport failure: " + f.Kind.String()
	}
	return fmt.Sprintf("transport failure (%s): %v", f.Kind, f.Err)
}

func (f *TransportFailure) Unwrap() error { return f.Err }

// HTTPFailure is a completed response with a non-success status. Body is
// consumed by Parse; it is read at most once.
type HTTPFailure struct {
	Status int
	Body   io.Reader
}

func (f *HTTPFailure) failure() {}

func (f *HTTPFailure) Error() string {
	return fmt.Sprintf("unexpected status %d", f.Status)
}

// Parsed is the normalized error. FormError is nil when there is no
// form-level message.
type Parsed struct {
	FieldErrors map[string]string
	FormError   *string
}

// Message returns the form error or def when there is none.
func (p Parsed) Message(def string) string {
	if p.FormError == nil {
		return def
	}
	return *p.FormError
}

// Connectivity reports whether the network path to the books API is up.
type Connectivity interface {
	Online() bool
}

// Normalizer converts Failures into Parsed values.
type Normalizer struct {
	Connectivity Connectivity
}

// NewNormalizer returns a Normalizer; a nil Connectivity is treated as always online.
func NewNormalizer(c Connectivity) *Normalizer {
	return &Normalizer{Connectivity: c}
}

// Parse never panics and always returns a complete value.
func (n *Normalizer) Parse(f Failure) Parsed {
	switch v := f.(type) {
	case *TransportFailure:
		return n.parseTransport(v)
	case *HTTPFailure:
		return parseHTTP(v)
	default:
		return formOnly(MsgNetwork)
	}
}

// ParseError accepts any error; non-Failure errors are classified with FromError.
func (n *Normalizer) ParseError(err error) Parsed {
	var f Failure
	if errors.As(err, &f) {
		return n.Parse(f)
	}
	return n.Parse(FromError(err))
}

func (n *Normalizer) online() bool {
	if n == nil || n.Connectivity == nil {
		return true
	}
	return n.Connectivity.Online()
}

func (n *Normalizer) parseTransport(f *TransportFailure) Parsed {
	// offline wins over the timeout classification
	if !n.online() {
		return formOnly(MsgOffline)
	}
	// a cancelled call is reported like a timeout
	if f.Kind == KindTimeout || f.Kind == KindCanceled {
		return formOnly(MsgTimeout)
	}
	return formOnly(MsgNetwork)
}

func parseHTTP(f *HTTPFailure) Parsed {
	fallback := fmt.Sprintf("Unexpected error (%d)", f.Status)

	var raw []byte
	if f.Body != nil {
		b, err := io.ReadAll(f.Body)
		if err == nil {
			raw = b
		}
	}

	if len(strings.TrimSpace(string(raw))) == 0 {
		return formOnly(fallback)
	}

	if !json.Valid(raw) {
		return formOnly(string(raw))
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		// valid JSON that is not an object
		return formOnly(fallback)
	}

	if present(top, "FieldErrors") || present(top, "Errors") {
		// keys are matched exactly
		var (
			fieldErrs map[string]string
			errs      []string
		)
		_ = json.Unmarshal(top["FieldErrors"], &fieldErrs)
		_ = json.Unmarshal(top["Errors"], &errs)
		out := Parsed{FieldErrors: map[string]string{}}
		for k, v := range fieldErrs {
			out.FieldErrors[k] = v
		}
		if len(errs) > 0 {
			msg := errs[0]
			out.FormError = &msg
		}
		return out
	}

	if rawMsg, ok := top["Error"]; ok {
		var msg string
		if err := json.Unmarshal(rawMsg, &msg); err == nil {
			return formOnly(msg)
		}
	}

	return formOnly(fallback)
}

// present reports a key that exists and is not JSON null.
func present(m map[string]json.RawMessage, key string) bool {
	v, ok := m[key]
	return ok && strings.TrimSpace(string(v)) != "null"
}

func formOnly(msg string) Parsed {
	return Parsed{FieldErrors: map[string]string{}, FormError: &msg}
}

// FromResponse wraps a non-success response. The caller still owns resp.Body.
func FromResponse(resp *http.Response) Failure {
	return &HTTPFailure{Status: resp.StatusCode, Body: resp.Body}
}

// FromError classifies an error returned by an HTTP client call.
func FromError(err error) Failure {
	var f Failure
	if errors.As(err, &f) {
		return f
	}
	kind := KindNetwork
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.Is(err, context.Canceled):
		kind = KindCanceled
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = KindTimeout
	}
	return &TransportFailure{Kind: kind, Err: err}
}

// IsStatus reports whether err is an HTTPFailure with the given status.
func IsStatus(err error, status int) bool {
	var hf *HTTPFailure
	return errors.As(err, &hf) && hf.Status == status
}
