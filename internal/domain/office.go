package domain

import "time"

// Office is one row of the congressional office directory. The directory is
// read-mostly reference data: rows are seeded or synced from an upstream
// source and looked up by jurisdiction when resolving recipients.
//
// Fields:
//   - OfficeID: stable directory id and primary key, e.g. "H-CA-12" for a
//     House district office or "S-CA-1" for a Senate seat.
//   - Chamber: house or senate (enforced by DB constraint).
//   - State: two-letter USPS state or territory code.
//   - District: congressional district number for House offices; 0 for
//     at-large seats and non-voting delegates. Always 0 for Senate offices.
//   - DisplayName: human-readable office name for UI and logs.
//   - Active: inactive offices (vacant seats, transitions) are excluded from
//     recipient resolution but kept for attempt history.
type Office struct {
	OfficeID    string    `json:"office_id"    gorm:"type:varchar(32);primaryKey"`
	Chamber     Chamber   `json:"chamber"      gorm:"type:varchar(8);not null;index:idx_office_lookup,priority:2;check:chamber IN ('house','senate')"`
	State       string    `json:"state"        gorm:"type:char(2);not null;index:idx_office_lookup,priority:1"`
	District    int       `json:"district"     gorm:"not null;default:0;index:idx_office_lookup,priority:3"`
	DisplayName string    `json:"display_name" gorm:"type:varchar(255);not null"`
	Active      bool      `json:"active"       gorm:"not null;default:true"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for Office.
func (Office) TableName() string { return "offices" }

// UserOffice links an authenticated user to one of their resolved offices.
// Rows act as the "offices on file" cache consulted before any geographic
// resolution; they are replaced wholesale when a user's address changes.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - UserID: owner of the mapping (unique together with OfficeID).
//   - OfficeID: foreign key into the office directory.
//   - ResolvedAt: when the mapping was established.
//   - Office: FK association for eager loading.
type UserOffice struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	UserID     string    `json:"user_id"     gorm:"type:varchar(64);not null;index;uniqueIndex:ux_user_office,priority:1"`
	OfficeID   string    `json:"office_id"   gorm:"type:varchar(32);not null;uniqueIndex:ux_user_office,priority:2"`
	ResolvedAt time.Time `json:"resolved_at" gorm:"not null"`

	// Office is the directory row this mapping points at. Mappings go away
	// with the office if the directory row is ever removed.
	Office Office `json:"-" gorm:"foreignKey:OfficeID;references:OfficeID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for UserOffice.
func (UserOffice) TableName() string { return "user_offices" }
