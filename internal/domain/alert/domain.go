package alert

import "time"

type Kind string

const (
	KindDown        Kind = "down"
	KindHighLatency Kind = "high_latency"
)

// Alert is a standing fault condition for an endpoint. At most one
// unresolved alert may exist per (endpoint, kind) pair. Alerts are never
// deleted, only marked resolved.
type Alert struct {
	ID               int64      `json:"id"`
	EndpointID       int64      `json:"endpoint_id"`
	Kind             Kind       `json:"kind"`
	Message          string     `json:"message"`
	CreatedAt        time.Time  `json:"created_at"`
	Resolved         bool       `json:"resolved"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty"`
	NotificationSent bool       `json:"notification_sent"`
}

type EventType string

const (
	EventOpened   EventType = "opened"
	EventResolved EventType = "resolved"
)

// Event is one alert state transition produced by an evaluation.
type Event struct {
	Type  EventType `json:"type"`
	Alert *Alert    `json:"alert"`
}
