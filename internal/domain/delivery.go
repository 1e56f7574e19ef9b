// Package domain defines the persistence models for delivery requests, jobs,
// submission attempts, and the congressional office directory. These types are
// mapped with GORM and form the core data layer of the advocacy backend.
package domain

import "time"

// Chamber identifies which side of Congress an office belongs to.
type Chamber string

// Chamber values.
const (
	ChamberHouse  Chamber = "house"
	ChamberSenate Chamber = "senate"
)

// JobState is the lifecycle state of a delivery job.
type JobState string

// Job lifecycle states. A job starts queued, moves to processing when the
// first attempt lands, and settles in exactly one of the three terminal
// states. Terminal states are never left.
const (
	JobStateQueued     JobState = "queued"
	JobStateProcessing JobState = "processing"
	JobStateCompleted  JobState = "completed"
	JobStatePartial    JobState = "partial"
	JobStateFailed     JobState = "failed"
)

// Terminal reports whether s is a terminal job state.
func (s JobState) Terminal() bool {
	switch s {
	case JobStateCompleted, JobStatePartial, JobStateFailed:
		return true
	default:
		return false
	}
}

// AttemptOutcome classifies the result of a single per-office submission.
type AttemptOutcome string

// Attempt outcomes.
const (
	OutcomeSuccess     AttemptOutcome = "success"
	OutcomeRateLimited AttemptOutcome = "rate_limited"
	OutcomeDuplicate   AttemptOutcome = "duplicate"
	OutcomeError       AttemptOutcome = "error"
)

// DeliveryRequest represents one accepted advocacy message trigger. Rows are
// immutable once created: there is no update path and no soft delete.
//
// Exactly one of UserID / SessionToken is set: authenticated senders carry a
// user id, guest senders carry the session token recovered from the routing
// address (enforced by DB constraint).
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - TemplateID: identifier of the advocacy template being sent; indexed.
//   - UserID: sender identifier for authenticated requests; nil for guests.
//   - SessionToken: guest session token; nil for authenticated requests.
//   - Subject / Body: already-personalized message content.
//   - RoutingAddress: the raw routing token the request arrived with.
//   - CreatedAt: insertion timestamp managed by GORM.
type DeliveryRequest struct {
	ID             string    `json:"id"              gorm:"type:char(36);primaryKey"`
	TemplateID     string    `json:"template_id"     gorm:"type:varchar(128);not null;index:idx_delivery_template"`
	UserID         *string   `json:"user_id,omitempty" gorm:"type:varchar(64);index:idx_delivery_user;check:chk_delivery_sender,(user_id IS NULL) != (session_token IS NULL)"`
	SessionToken   *string   `json:"-"               gorm:"type:varchar(128);index:idx_delivery_session"`
	Subject        string    `json:"subject"         gorm:"type:varchar(255);not null"`
	Body           string    `json:"body"            gorm:"type:text;not null"`
	RoutingAddress string    `json:"routing_address" gorm:"type:varchar(255);not null"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName returns the database table name for DeliveryRequest.
func (DeliveryRequest) TableName() string { return "delivery_requests" }

// SenderID returns the identity the request should be attributed to: the user
// id for authenticated senders, otherwise the guest session token.
func (d DeliveryRequest) SenderID() string {
	if d.UserID != nil && *d.UserID != "" {
		return *d.UserID
	}
	if d.SessionToken != nil {
		return *d.SessionToken
	}
	return ""
}

// Job tracks the fan-out of one DeliveryRequest to its resolved offices. Jobs
// are never deleted; they only move forward through the state machine.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - DeliveryRequestID: foreign key to the originating request; unique, so a
//     request trigger owns at most one job.
//   - State: current lifecycle state (enforced by DB constraint).
//   - ExpectedCount: number of offices the dispatcher fans out to; fixed at
//     creation time.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - CompletedAt: set exactly once, when the job reaches a terminal state.
//   - DeliveryRequest / Attempts: FK associations.
type Job struct {
	ID                string     `json:"id"             gorm:"type:char(36);primaryKey"`
	DeliveryRequestID string     `json:"delivery_request_id" gorm:"type:char(36);not null;uniqueIndex:ux_job_delivery_request"`
	State             JobState   `json:"state"          gorm:"type:varchar(16);not null;default:'queued';index:idx_job_state;check:state IN ('queued','processing','completed','partial','failed')"`
	ExpectedCount     int        `json:"expected_count" gorm:"not null"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`

	// DeliveryRequest is the trigger this job belongs to.
	DeliveryRequest DeliveryRequest     `json:"-" gorm:"foreignKey:DeliveryRequestID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Attempts        []SubmissionAttempt `json:"-" gorm:"foreignKey:JobID"`
}

// TableName returns the database table name for Job.
func (Job) TableName() string { return "jobs" }

// SubmissionAttempt records the outcome of one per-office submission within a
// job. Rows are append-only: they are never updated or deleted, so the table
// is a faithful audit trail of what the dispatcher did.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - JobID: foreign key to the owning job (indexed with CreatedAt for
//     ordered reads).
//   - OfficeID: directory id of the targeted office (e.g. "H-CA-12").
//   - Chamber: house or senate (enforced by DB constraint).
//   - Outcome: attempt classification (enforced by DB constraint).
//   - ExternalMessageID: upstream receipt id; only present on success.
//   - ErrorDetail: short diagnostic text; only present on error outcomes.
//   - RetryAfterMS: suggested wait in milliseconds; only present on
//     rate_limited outcomes.
//   - CreatedAt: insertion timestamp managed by GORM.
type SubmissionAttempt struct {
	ID                string         `json:"id"        gorm:"type:char(36);primaryKey"`
	JobID             string         `json:"job_id"    gorm:"type:char(36);not null;index:idx_job_attempts,priority:1"`
	OfficeID          string         `json:"office_id" gorm:"type:varchar(32);not null"`
	Chamber           Chamber        `json:"chamber"   gorm:"type:varchar(8);not null;check:chamber IN ('house','senate')"`
	Outcome           AttemptOutcome `json:"outcome"   gorm:"type:varchar(16);not null;check:outcome IN ('success','rate_limited','duplicate','error')"`
	ExternalMessageID *string        `json:"external_message_id,omitempty" gorm:"type:varchar(128)"`
	ErrorDetail       *string        `json:"error_detail,omitempty"        gorm:"type:text"`
	RetryAfterMS      *int64         `json:"retry_after_ms,omitempty"`
	CreatedAt         time.Time      `json:"created_at" gorm:"index:idx_job_attempts,priority:2"`

	// Job is the owning fan-out. Attempts ride along if a job row is ever
	// removed by an operator.
	Job Job `json:"-" gorm:"foreignKey:JobID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for SubmissionAttempt.
func (SubmissionAttempt) TableName() string { return "submission_attempts" }
