package schema

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Workflow stages. A project moves allocation -> processing -> QA -> complete,
// with a lateral QA -> processing edge on rework.
const (
	PendingAllocation = "Pending Allocation"
	WithProcessor     = "With Processor"
	WithQA            = "With QA"
	Completed         = "Completed"
)

// Processor-side fine statuses.
const (
	ProcessingPending          = "Pending"
	ProcessingOnHold           = "On Hold"
	ProcessingRework           = "Re-Work"
	ProcessingProcessed        = "Processed"
	ProcessingNTP              = "NTP"
	ProcessingClientQuery      = "Client Query"
	ProcessingAlreadyProcessed = "Already Processed"
)

// QA-side fine statuses.
const (
	QAPending          = "Pending"
	QAComplete         = "Complete"
	QANTP              = "NTP"
	QAClientQuery      = "Client Query"
	QAAlreadyProcessed = "Already Processed"
)

const (
	RoleAdmin       = "admin"
	RoleManager     = "manager"
	RoleQA          = "qa"
	RoleCaseManager = "case_manager"
	RoleProcessor   = "processor"
)

// rolePrecedence orders roles from highest to lowest. The highest role a user
// holds selects their default dashboard view and query scope.
var rolePrecedence = []string{RoleAdmin, RoleManager, RoleQA, RoleCaseManager, RoleProcessor}

var workflowStatuses = []string{PendingAllocation, WithProcessor, WithQA, Completed}

var processingStatuses = []string{
	ProcessingPending, ProcessingOnHold, ProcessingRework, ProcessingProcessed,
	ProcessingNTP, ProcessingClientQuery, ProcessingAlreadyProcessed,
}

var qaStatuses = []string{QAPending, QAComplete, QANTP, QAClientQuery, QAAlreadyProcessed}

func CheckValidWorkflowStatus(status string) error {
	if !slices.Contains(workflowStatuses, status) {
		return fmt.Errorf("invalid workflow status '%v'", status)
	}
	return nil
}

func CheckValidProcessingStatus(status string) error {
	if !slices.Contains(processingStatuses, status) {
		return fmt.Errorf("invalid processing status '%v'", status)
	}
	return nil
}

func CheckValidQAStatus(status string) error {
	if !slices.Contains(qaStatuses, status) {
		return fmt.Errorf("invalid qa status '%v'", status)
	}
	return nil
}

func CheckValidRole(role string) error {
	if !slices.Contains(rolePrecedence, role) {
		return fmt.Errorf("invalid role '%v'", role)
	}
	return nil
}

type Project struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	// Human-facing sequential reference, e.g. PF2400001. Assigned once at
	// creation by the sequencer, never reassigned.
	RowNumber string `gorm:"unique;size:20;not null"`

	ClientName   string `gorm:"size:200"`
	Process      string `gorm:"size:100"`
	Country      string `gorm:"size:100"`
	DocumentType string `gorm:"size:100"`
	RenewalAgent string `gorm:"size:200"`

	Processor   string `gorm:"size:100;index"`
	QAOperator  string `gorm:"size:100;index"`
	CaseManager string `gorm:"size:100;index"`

	SubjectLine      string
	Remarks          string
	ErrorDescription string
	ReworkReason     string

	WorkflowStatus   string `gorm:"size:50;not null;default:'Pending Allocation'"`
	ProcessingStatus string `gorm:"size:50;not null;default:'Pending'"`
	QAStatus         string `gorm:"size:50;not null;default:'Pending'"`

	ReceivedDate       *time.Time
	AllocationDate     *time.Time
	ProcessingDate     *time.Time
	QADate             *time.Time
	ReportOutDate      *time.Time
	ClientResponseDate *time.Time

	Entries []ProjectEntry `gorm:"constraint:OnDelete:CASCADE"`
}

// ProjectEntry is one matter derived from a single intake email/subject. A
// project may own several when one email covers multiple filings.
type ProjectEntry struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProjectId uuid.UUID `gorm:"type:uuid;not null;index"`

	ApplicationNumber string `gorm:"size:100"`
	PatentNumber      string `gorm:"size:100"`
	Country           string `gorm:"size:100"`
	Status            string `gorm:"size:100"`
	Notes             string
}

type User struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	Username string `gorm:"unique;size:50;not null"`
	Email    string `gorm:"unique;size:254;not null"`
	Password []byte

	Roles []UserRole `gorm:"constraint:OnDelete:CASCADE"`
}

type UserRole struct {
	UserId uuid.UUID `gorm:"type:uuid;primaryKey"`
	Role   string    `gorm:"size:50;primaryKey"`
}

func (u *User) RoleNames() []string {
	roles := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		roles = append(roles, r.Role)
	}
	return roles
}

func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r.Role == role {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool {
	return u.HasRole(RoleAdmin)
}

// HighestRole resolves the user's role set to a single role using the fixed
// precedence admin > manager > qa > case_manager > processor.
func (u *User) HighestRole() string {
	for _, role := range rolePrecedence {
		if u.HasRole(role) {
			return role
		}
	}
	return RoleProcessor
}

// Metadata kinds for LookupItem. Each kind backs one dropdown.
const (
	LookupClient       = "client"
	LookupProcess      = "process"
	LookupCountry      = "country"
	LookupDocumentType = "document_type"
	LookupRenewalAgent = "renewal_agent"
)

var lookupKinds = []string{LookupClient, LookupProcess, LookupCountry, LookupDocumentType, LookupRenewalAgent}

func CheckValidLookupKind(kind string) error {
	if !slices.Contains(lookupKinds, kind) {
		return fmt.Errorf("invalid metadata kind '%v'", kind)
	}
	return nil
}

// LookupItem backs the five metadata collections (client, process, country,
// document_type, renewal_agent); each is an (id, name) pair per kind.
type LookupItem struct {
	Id   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Kind string    `gorm:"size:50;not null;uniqueIndex:idx_lookup_kind_name"`
	Name string    `gorm:"size:200;not null;uniqueIndex:idx_lookup_kind_name"`
}

// RowCounter holds the last assigned row-number sequence for one 2-digit year
// prefix. Incremented with a relative UPDATE inside the insert transaction so
// concurrent batches serialize on the row lock.
type RowCounter struct {
	Year    int `gorm:"primaryKey"`
	LastSeq int `gorm:"not null"`
}
