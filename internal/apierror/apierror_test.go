package apierror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedConn bool

func (c fixedConn) Online() bool { return bool(c) }

// countingReader fails the test if it is read after reaching EOF.
type countingReader struct {
	r     *strings.Reader
	reads int
	eof   bool
	t     *testing.T
}

func (c *countingReader) Read(p []byte) (int, error) {
	if c.eof {
		c.t.Fatalf("body read again after EOF")
	}
	c.reads++
	n, err := c.r.Read(p)
	if err != nil {
		c.eof = true
	}
	return n, err
}

func httpFailure(status int, body string) *HTTPFailure {
	return &HTTPFailure{Status: status, Body: strings.NewReader(body)}
}

func TestParse_HTTPBodies(t *testing.T) {
	n := NewNormalizer(fixedConn(true))

	tests := []struct {
		name       string
		status     int
		body       string
		wantFields map[string]string
		wantForm   *string
	}{
		{
			name:       "validation failure",
			status:     http.StatusUnprocessableEntity,
			body:       `{"FieldErrors":{"title":"required"},"Errors":["validation failed"]}`,
			wantFields: map[string]string{"title": "required"},
			wantForm:   ptr("validation failed"),
		},
		{
			name:       "field errors without errors list",
			status:     http.StatusUnprocessableEntity,
			body:       `{"FieldErrors":{"year":"must be a positive number"}}`,
			wantFields: map[string]string{"year": "must be a positive number"},
		},
		{
			name:       "empty errors list only",
			status:     http.StatusUnprocessableEntity,
			body:       `{"Errors":[]}`,
			wantFields: map[string]string{},
		},
		{
			name:       "single error message",
			status:     http.StatusNotFound,
			body:       `{"Error":"book not found"}`,
			wantFields: map[string]string{},
			wantForm:   ptr("book not found"),
		},
		{
			name:       "field errors win over error string",
			status:     http.StatusUnprocessableEntity,
			body:       `{"FieldErrors":{"author":"required"},"Error":"ignored"}`,
			wantFields: map[string]string{"author": "required"},
		},
		{
			name:       "keys are case sensitive",
			status:     http.StatusUnprocessableEntity,
			body:       `{"FieldErrors":{"a":"b"},"errors":["lower"],"fieldErrors":{"c":"d"}}`,
			wantFields: map[string]string{"a": "b"},
		},
		{
			name:       "null field errors fall through to error string",
			status:     http.StatusBadRequest,
			body:       `{"FieldErrors":null,"Error":"bad input"}`,
			wantFields: map[string]string{},
			wantForm:   ptr("bad input"),
		},
		{
			name:       "empty body",
			status:     http.StatusInternalServerError,
			body:       "",
			wantFields: map[string]string{},
			wantForm:   ptr("Unexpected error (500)"),
		},
		{
			name:       "malformed json",
			status:     http.StatusBadGateway,
			body:       "upstream exploded",
			wantFields: map[string]string{},
			wantForm:   ptr("upstream exploded"),
		},
		{
			name:       "unknown object shape",
			status:     http.StatusTeapot,
			body:       `{"message":"nope"}`,
			wantFields: map[string]string{},
			wantForm:   ptr("Unexpected error (418)"),
		},
		{
			name:       "non-string error field",
			status:     http.StatusBadRequest,
			body:       `{"Error":42}`,
			wantFields: map[string]string{},
			wantForm:   ptr("Unexpected error (400)"),
		},
		{
			name:       "json scalar",
			status:     http.StatusBadRequest,
			body:       `"just a string"`,
			wantFields: map[string]string{},
			wantForm:   ptr("Unexpected error (400)"),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := n.Parse(httpFailure(tc.status, tc.body))
			assert.Equal(t, tc.wantFields, got.FieldErrors)
			if tc.wantForm == nil {
				assert.Nil(t, got.FormError)
				return
			}
			require.NotNil(t, got.FormError)
			assert.Equal(t, *tc.wantForm, *got.FormError)
		})
	}
}

func TestParse_EmptyBodyEmbedsStatus(t *testing.T) {
	got := NewNormalizer(nil).Parse(&HTTPFailure{Status: 503})
	require.NotNil(t, got.FormError)
	assert.Contains(t, *got.FormError, "503")
	assert.Empty(t, got.FieldErrors)
}

func TestParse_ReadsBodyOnce(t *testing.T) {
	for _, body := range []string{
		`{"FieldErrors":{"title":"required"},"Errors":["x"]}`,
		`{"Error":"boom"}`,
		`not json`,
		``,
	} {
		cr := &countingReader{r: strings.NewReader(body), t: t}
		NewNormalizer(nil).Parse(&HTTPFailure{Status: 400, Body: cr})
		assert.True(t, cr.eof, "body %q not fully consumed", body)
	}
}

func TestParse_Transport(t *testing.T) {
	tests := []struct {
		name   string
		online bool
		kind   Kind
		want   string
	}{
		{"offline beats timeout", false, KindTimeout, MsgOffline},
		{"offline network", false, KindNetwork, MsgOffline},
		{"online timeout", true, KindTimeout, MsgTimeout},
		{"online network", true, KindNetwork, MsgNetwork},
		{"offline canceled", false, KindCanceled, MsgOffline},
		{"online canceled", true, KindCanceled, MsgTimeout},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			n := NewNormalizer(fixedConn(tc.online))
			got := n.Parse(&TransportFailure{Kind: tc.kind})
			require.NotNil(t, got.FormError)
			assert.Equal(t, tc.want, *got.FormError)
			assert.Empty(t, got.FieldErrors)
		})
	}
}

func TestFromError_Classifies(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"deadline", fmt.Errorf("do: %w", context.DeadlineExceeded), KindTimeout},
		{"canceled", context.Canceled, KindCanceled},
		{"other", errors.New("connection refused"), KindNetwork},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := FromError(tc.err)
			tf, ok := f.(*TransportFailure)
			require.True(t, ok)
			assert.Equal(t, tc.want, tf.Kind)
			assert.ErrorIs(t, tf, tc.err)
		})
	}
}

func TestFromError_KeepsExistingFailure(t *testing.T) {
	hf := httpFailure(404, `{"Error":"book not found"}`)
	wrapped := fmt.Errorf("get book: %w", hf)

	assert.Same(t, hf, FromError(wrapped))
	assert.True(t, IsStatus(wrapped, http.StatusNotFound))
	assert.False(t, IsStatus(wrapped, http.StatusInternalServerError))

	got := NewNormalizer(nil).ParseError(wrapped)
	assert.Equal(t, "book not found", got.Message(""))
}

func TestFromResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"FieldErrors":{"year":"must be a valid year"},"Errors":[]}`)
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	f := FromResponse(resp)
	assert.True(t, IsStatus(f, http.StatusUnprocessableEntity))

	got := NewNormalizer(nil).Parse(f)
	assert.Equal(t, map[string]string{"year": "must be a valid year"}, got.FieldErrors)
	assert.Nil(t, got.FormError)
}

func TestParsed_MessageDefault(t *testing.T) {
	assert.Equal(t, "fallback", Parsed{}.Message("fallback"))
}

func ptr(s string) *string { return &s }
