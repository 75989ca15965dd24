package result

import "time"

// CheckResult is one probe outcome. Records are append-only: created once
// per probe, never mutated.
type CheckResult struct {
	ID           int64     `json:"id"`
	EndpointID   int64     `json:"endpoint_id"`
	Timestamp    time.Time `json:"timestamp"`
	ResponseTime int64     `json:"response_time"` // milliseconds
	StatusCode   int       `json:"status_code"`   // 0 when no response was received
	Success      bool      `json:"success"`
	ErrorMessage string    `json:"error_message,omitempty"`
	ResponseSize int64     `json:"response_size"`
}
