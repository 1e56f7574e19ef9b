// Package cwc is the boundary to the congressional intake endpoints. It
// submits one constituent message to one office and normalizes whatever
// the upstream answers into a typed SubmissionResult, so the rest of the
// pipeline never sees the upstream's loosely-structured JSON.
//
// Submissions are single-shot: the intake side may have processed a
// request whose response was lost, so retrying here could deliver twice.
// Callers that want another try must go back through admission control.
package cwc

import (
	"context"

	"github.com/tbourn/go-advocacy-backend/internal/domain"
)

// Message is the personalized content for one office.
type Message struct {
	TemplateID    string
	RecipientName string
	Subject       string
	Body          string
}

// SubmissionResult is the normalized verdict for one submission.
type SubmissionResult struct {
	// Accepted reports whether the intake acknowledged the message.
	Accepted bool
	// MessageID is the upstream's receipt identifier. May be empty even
	// for accepted messages when the upstream omits it.
	MessageID string
	// Err describes the rejection in the upstream's words. Empty when
	// Accepted.
	Err string
}

// Submitter performs one external submission. The returned error covers
// transport-level failures (connect, timeout); upstream rejections arrive
// as a SubmissionResult with Accepted=false.
type Submitter interface {
	Submit(ctx context.Context, chamber domain.Chamber, officeID string, msg Message) (SubmissionResult, error)
}
