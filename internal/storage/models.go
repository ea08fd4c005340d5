package storage

import "time"

// PromptTemplate is one stored template body keyed by use case.
type PromptTemplate struct {
	UseCase   string
	Body      string
	UpdatedAt time.Time
}

// Insight is the synthesized result for a completed interview.
type Insight struct {
	InterviewID string
	Objective   string
	Insights    string
	Status      string
	LastError   string
	UpdatedAt   time.Time
}

// Insight statuses.
const (
	InsightPending = "pending"
	InsightRunning = "running"
	InsightDone    = "done"
	InsightFailed  = "failed"
)

// AuditEntry records an administrative mutation. MetaJSON never contains
// plaintext secrets.
type AuditEntry struct {
	Actor    string
	Action   string
	MetaJSON string
}
