package endpoint

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

type Endpoint struct {
	ID        int64             `json:"id"`
	Name      string            `json:"name"`
	URL       string            `json:"url"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers"`
	Timeout   time.Duration     `json:"timeout"`
	Active    bool              `json:"active"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

var (
	ErrNameRequired = errors.New("endpoint name is required")
	ErrURLRequired  = errors.New("endpoint url is required")
	ErrBadMethod    = errors.New("unsupported http method")
	ErrBadTimeout   = errors.New("timeout must be positive")
)

var knownMethods = map[string]struct{}{
	http.MethodGet:     {},
	http.MethodHead:    {},
	http.MethodPost:    {},
	http.MethodPut:     {},
	http.MethodPatch:   {},
	http.MethodDelete:  {},
	http.MethodOptions: {},
}

// Normalize validates boundary input and fills defaults. defaultTimeout is
// applied when the endpoint does not override its own.
func (e *Endpoint) Normalize(defaultTimeout time.Duration) error {
	e.Name = strings.TrimSpace(e.Name)
	e.URL = strings.TrimSpace(e.URL)
	if e.Name == "" {
		return ErrNameRequired
	}
	if e.URL == "" {
		return ErrURLRequired
	}
	if !strings.HasPrefix(e.URL, "http://") && !strings.HasPrefix(e.URL, "https://") {
		e.URL = "http://" + e.URL
	}
	if e.Method == "" {
		e.Method = http.MethodGet
	}
	e.Method = strings.ToUpper(e.Method)
	if _, ok := knownMethods[e.Method]; !ok {
		return ErrBadMethod
	}
	if e.Headers == nil {
		e.Headers = map[string]string{}
	}
	if e.Timeout == 0 {
		e.Timeout = defaultTimeout
	}
	if e.Timeout < 0 {
		return ErrBadTimeout
	}
	return nil
}
