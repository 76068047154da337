package store

import (
	"errors"
	"time"
)

var (
	// ErrNotFound marks an operation whose target row no longer exists in
	// the active table.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a write that matched zero rows because another
	// actor changed the row first.
	ErrConflict = errors.New("conflict")
)

// Report lifecycle. A report starts Pending; Validated is terminal;
// Rejected rows stay visible in the active table with an archive copy
// alongside.
const (
	ReportPending   = "Pending"
	ReportValidated = "Validated"
	ReportRejected  = "Rejected"
)

// Evidence verification lifecycle. Rejected evidence is removed from the
// active table entirely, so only Pending and Verified rows are ever listed.
const (
	EvidencePending  = "Pending"
	EvidenceVerified = "Verified"
	EvidenceRejected = "Rejected"
)

// Perpetrator threat levels.
const (
	ThreatUnderReview = "UnderReview"
	ThreatSuspected   = "Suspected"
	ThreatMalicious   = "Malicious"
	ThreatCleared     = "Cleared"
)

// Victim account statuses.
const (
	AccountActive    = "Active"
	AccountFlagged   = "Flagged"
	AccountSuspended = "Suspended"
)

// Administrator roles, enforced through the rbac package.
const (
	RoleReviewer = "reviewer"
	RoleManager  = "manager"
)

type Victim struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	ContactEmail  string    `json:"contact_email"`
	PasswordHash  string    `json:"-"`
	AccountStatus string    `json:"account_status"`
	CreatedAt     time.Time `json:"created_at"`
}

type Administrator struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	ContactEmail string    `json:"contact_email"`
	PasswordHash string    `json:"-"`
	DateAssigned time.Time `json:"date_assigned"`
}

type Perpetrator struct {
	ID               int64     `json:"id"`
	Identifier       string    `json:"identifier"`
	IdentifierType   string    `json:"identifier_type"`
	AssociatedName   string    `json:"associated_name,omitempty"`
	ThreatLevel      string    `json:"threat_level"`
	LastIncidentDate time.Time `json:"last_incident_date"`
}

type AttackType struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	SeverityLevel string `json:"severity_level"`
}

type IncidentReport struct {
	ID            int64     `json:"id"`
	VictimID      int64     `json:"victim_id"`
	PerpetratorID int64     `json:"perpetrator_id"`
	AttackTypeID  int64     `json:"attack_type_id"`
	AdminID       *int64    `json:"admin_id,omitempty"`
	DateReported  time.Time `json:"date_reported"`
	Description   string    `json:"description"`
	Status        string    `json:"status"`
}

type Evidence struct {
	ID             int64     `json:"id"`
	IncidentID     int64     `json:"incident_id"`
	EvidenceType   string    `json:"evidence_type"`
	FilePath       string    `json:"file_path"`
	SubmissionDate time.Time `json:"submission_date"`
	VerifiedStatus string    `json:"verified_status"`
	AdminID        *int64    `json:"admin_id,omitempty"`
}

// ArchivedReport is a full snapshot of a rejected report plus rejection
// metadata. BinID is its own key; the incident ID is carried as data so the
// same report can be archived, restored and re-archived without collision.
type ArchivedReport struct {
	BinID             int64     `json:"bin_id"`
	IncidentID        int64     `json:"incident_id"`
	VictimID          int64     `json:"victim_id"`
	PerpetratorID     int64     `json:"perpetrator_id"`
	AttackTypeID      int64     `json:"attack_type_id"`
	DateReported      time.Time `json:"date_reported"`
	Description       string    `json:"description"`
	OriginalStatus    string    `json:"original_status"`
	AdminAssignedID   *int64    `json:"admin_assigned_id,omitempty"`
	RejectedByAdminID int64     `json:"rejected_by_admin_id"`
	ArchiveReason     string    `json:"archive_reason"`
	ArchivedAt        time.Time `json:"archived_at"`
}

type ArchivedEvidence struct {
	BinID             int64     `json:"bin_id"`
	EvidenceID        int64     `json:"evidence_id"`
	IncidentID        int64     `json:"incident_id"`
	EvidenceType      string    `json:"evidence_type"`
	FilePath          string    `json:"file_path"`
	SubmissionDate    time.Time `json:"submission_date"`
	OriginalStatus    string    `json:"original_status"`
	AdminAssignedID   *int64    `json:"admin_assigned_id,omitempty"`
	RejectedByAdminID int64     `json:"rejected_by_admin_id"`
	ArchiveReason     string    `json:"archive_reason"`
	ArchivedAt        time.Time `json:"archived_at"`
}

type ThreatLevelLog struct {
	ID            int64     `json:"id"`
	PerpetratorID int64     `json:"perpetrator_id"`
	OldLevel      string    `json:"old_level"`
	NewLevel      string    `json:"new_level"`
	ChangeDate    time.Time `json:"change_date"`
	AdminID       *int64    `json:"admin_id,omitempty"`
}

type VictimStatusLog struct {
	ID         int64     `json:"id"`
	VictimID   int64     `json:"victim_id"`
	OldStatus  string    `json:"old_status"`
	NewStatus  string    `json:"new_status"`
	ChangeDate time.Time `json:"change_date"`
	AdminID    *int64    `json:"admin_id,omitempty"`
}

type EvaluationNote struct {
	IncidentID  int64     `json:"incident_id"`
	Notes       string    `json:"notes"`
	AdminID     *int64    `json:"admin_id,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
}

type SessionRecord struct {
	ID         string    `json:"id"`
	SubjectID  int64     `json:"subject_id"`
	Kind       string    `json:"kind"` // "victim" or "admin"
	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}
