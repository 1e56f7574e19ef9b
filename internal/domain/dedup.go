package domain

import "time"

// DedupDayFormat is the layout of SubmissionDedup.Day values.
const DedupDayFormat = "2006-01-02"

// DedupDay returns the UTC calendar day t falls in, formatted for the
// submission dedup tuple. All dedup windows are computed in UTC so that the
// "once per day" rule does not depend on server or sender timezones.
func DedupDay(t time.Time) string { return t.UTC().Format(DedupDayFormat) }

// SubmissionDedup is the per-office duplicate suppression record. One row
// exists per (template, office, sender, UTC day) tuple; the unique index makes
// the insert an atomic test-and-set, so concurrent submissions of the same
// tuple admit exactly one.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - TemplateID / OfficeID / UserID / Day: the dedup tuple. UserID holds the
//     session token for guest senders.
//   - Day: UTC calendar day in DedupDayFormat.
//   - CreatedAt: insertion timestamp managed by GORM.
type SubmissionDedup struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	TemplateID string    `json:"template_id" gorm:"type:varchar(128);not null;uniqueIndex:ux_submission_dedup,priority:1"`
	OfficeID   string    `json:"office_id"   gorm:"type:varchar(32);not null;uniqueIndex:ux_submission_dedup,priority:2"`
	UserID     string    `json:"user_id"     gorm:"type:varchar(128);not null;uniqueIndex:ux_submission_dedup,priority:3"`
	Day        string    `json:"day"         gorm:"type:char(10);not null;uniqueIndex:ux_submission_dedup,priority:4"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName returns the database table name for SubmissionDedup.
func (SubmissionDedup) TableName() string { return "submission_dedup" }
