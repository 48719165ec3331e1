package enrich

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// ErrEmptyResponse is returned when the provider answers with no text.
var ErrEmptyResponse = eris.New("enrich: empty response")

// ConfigError means enrichment cannot work until configuration changes, such
// as a missing or rejected credential. Callers abort the batch.
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("enrich: %s: %v", e.Reason, e.Err)
	}
	return "enrich: " + e.Reason
}

func (e *ConfigError) Unwrap() error { return e.Err }

// TransportError covers network failures, timeouts and non-2xx responses.
type TransportError struct {
	Provider   string
	StatusCode int
	Timeout    bool
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("enrich: %s: timeout: %v", e.Provider, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("enrich: %s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("enrich: %s: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Retryable marks transport failures as worth a later retry.
func (e *TransportError) Retryable() bool { return true }
