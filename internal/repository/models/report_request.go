package models

import "time"

// RequestStatus is the report request state machine tag.
type RequestStatus string

const (
	StatusPending    RequestStatus = "PENDING"
	StatusProcessing RequestStatus = "PROCESSING"
	StatusCompleted  RequestStatus = "COMPLETED"
	StatusFailed     RequestStatus = "FAILED"
	StatusCancelled  RequestStatus = "CANCELLED"
)

// Terminal reports whether the status admits no further transitions except
// a retry sweep reset of a transient failure.
func (s RequestStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// FailureKind classifies a failed request for the retry sweep: transient
// failures are retry-eligible, permanent ones are not.
type FailureKind string

const (
	FailureNone      FailureKind = ""
	FailureTransient FailureKind = "transient"
	FailurePermanent FailureKind = "permanent"
)

// Priority tiers. Lower number drains first; FIFO within a tier.
const (
	PriorityHigh   = 1
	PriorityNormal = 2
	PriorityLow    = 3
)

// ReportRequest is one unit of queued report generation work. The request
// store is the single source of truth for its state; all mutation goes
// through the repository.
type ReportRequest struct {
	ID           string
	Requester    string
	ReportType   string
	OutputFormat string
	Parameters   map[string]string
	Priority     int
	Status       RequestStatus
	CreatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
	ArtifactRef  string
	ErrorMessage string
	FailureKind  FailureKind
	RetryCount   int
	MaxRetries   int
}

// PendingRef is the (id, priority) pair needed to re-enqueue a request.
type PendingRef struct {
	ID       string
	Priority int
}
