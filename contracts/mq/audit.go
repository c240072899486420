package mq

import "time"

const RoutingKeyAuditRecorded = "audit.recorded"

// AuditRecordedPayload is published once per committed audit row.
type AuditRecordedPayload struct {
	AuditID   int64     `json:"audit_id"`
	EntityID  int       `json:"entity_id"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp"`
	TraceID   string    `json:"trace_id,omitempty"`
}

// AuditRelayFailedPayload is what lands in the DLQ when delivery gives up.
type AuditRelayFailedPayload struct {
	AuditID    int64  `json:"audit_id"`
	Error      string `json:"error"`
	RetryCount int64  `json:"retry_count"`
}
