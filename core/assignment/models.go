package assignment

import (
	"sort"
	"strings"
	"time"

	"github.com/caseload/caseload/core"
)

type Status string

const (
	StatusNotStarted Status = "Not Started"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

var Statuses = []Status{StatusNotStarted, StatusInProgress, StatusCompleted}

func (s Status) Valid() bool {
	for _, st := range Statuses {
		if s == st {
			return true
		}
	}
	return false
}

// ParseStatus accepts the canonical values and their loose spellings ("completed", "in-progress", "NotStarted"...).
func ParseStatus(s string) (Status, bool) {
	key := looseKey(s)
	for _, st := range Statuses {
		if looseKey(string(st)) == key {
			return st, true
		}
	}
	return "", false
}

type Type string

const (
	TypeThirtyDay        Type = "30-day"
	TypeTriennial        Type = "Triennial"
	TypeAnnualReviewPlan Type = "Annual Review Plan"
)

var Types = []Type{TypeThirtyDay, TypeTriennial, TypeAnnualReviewPlan}

func (t Type) Valid() bool {
	for _, typ := range Types {
		if t == typ {
			return true
		}
	}
	return false
}

// ParseType accepts the canonical values and their loose spellings ("30day", "triennial", "AnnualReviewPlan"...).
func ParseType(s string) (Type, bool) {
	key := looseKey(s)
	if key == "thirtyday" {
		return TypeThirtyDay, true
	}
	for _, typ := range Types {
		if looseKey(string(typ)) == key {
			return typ, true
		}
	}
	return "", false
}

func looseKey(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '_':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(s)))
}

// Assignment is a trackable student review with a due date, a status and sign-off fields.
type Assignment struct {
	ID            string    `json:"id"`
	DueDate       Date      `json:"dueDate"`
	Name          string    `json:"name"`
	SchoolSite    string    `json:"schoolSite"`
	Status        Status    `json:"status"`
	Type          Type      `json:"assignmentType"`
	APSigned      bool      `json:"apSigned"`
	APDateSigned  Date      `json:"apDateSigned"`
	IEPSigned     bool      `json:"iepSigned"`
	IEPDateSigned Date      `json:"iepDateSigned"`
	Priority      bool      `json:"priority"`
	CreatedBy     string    `json:"createdBy"`
	CreatedAt     time.Time `json:"createdAt"` // UTC
	UpdatedAt     time.Time `json:"updatedAt"` // UTC
}

func (a Assignment) IsCompleted() bool { return a.Status == StatusCompleted }

// SignedAPDate returns the AP signature date, or the zero Date when AP is not signed.
func (a Assignment) SignedAPDate() Date {
	if !a.APSigned {
		return Date{}
	}
	return a.APDateSigned
}

// SignedIEPDate returns the IEP affirmation date, or the zero Date when the IEP is not affirmed.
func (a Assignment) SignedIEPDate() Date {
	if !a.IEPSigned {
		return Date{}
	}
	return a.IEPDateSigned
}

// Less orders assignments by ascending due date. Ties are broken by name then ID so that the order is total.
func Less(a, b Assignment) bool {
	if c := a.DueDate.Compare(b.DueDate); c != 0 {
		return c < 0
	}
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.ID < b.ID
}

// SortByDueDate sorts list in place, see Less.
func SortByDueDate(list []Assignment) {
	sort.SliceStable(list, func(i, j int) bool { return Less(list[i], list[j]) })
}

// NewAssignment contains information needed to create a new Assignment.
type NewAssignment struct {
	DueDate       Date   `json:"dueDate" validate:"required"`
	Name          string `json:"name" validate:"required"`
	SchoolSite    string `json:"schoolSite"`
	Status        Status `json:"status" validate:"omitempty,assignment_status"`
	Type          Type   `json:"assignmentType" validate:"omitempty,assignment_type"`
	APSigned      bool   `json:"apSigned"`
	APDateSigned  Date   `json:"apDateSigned"`
	IEPSigned     bool   `json:"iepSigned"`
	IEPDateSigned Date   `json:"iepDateSigned"`
	Priority      bool   `json:"priority"`
}

// Validate cleans na and checks it. Field errors are returned as a *core.ValidationError.
func (na *NewAssignment) Validate() error {
	na.Name = core.CleanString(na.Name)
	na.SchoolSite = core.CleanString(na.SchoolSite)
	return core.TranslateErrors(core.Validate.Struct(na))
}

// UpdateAssignment defines what information may be provided to modify an existing Assignment.
// nil fields are left untouched. A zero signature date clears it.
type UpdateAssignment struct {
	DueDate       *Date   `json:"dueDate,omitempty"`
	Name          *string `json:"name,omitempty"`
	SchoolSite    *string `json:"schoolSite,omitempty"`
	Status        *Status `json:"status,omitempty" validate:"omitempty,assignment_status"`
	Type          *Type   `json:"assignmentType,omitempty" validate:"omitempty,assignment_type"`
	APSigned      *bool   `json:"apSigned,omitempty"`
	APDateSigned  *Date   `json:"apDateSigned,omitempty"`
	IEPSigned     *bool   `json:"iepSigned,omitempty"`
	IEPDateSigned *Date   `json:"iepDateSigned,omitempty"`
	Priority      *bool   `json:"priority,omitempty"`
}

// Validate cleans ua and checks it. Field errors are returned as a *core.ValidationError.
func (ua *UpdateAssignment) Validate() error {
	if ua.Name != nil {
		name := core.CleanString(*ua.Name)
		ua.Name = &name
	}
	if ua.SchoolSite != nil {
		site := core.CleanString(*ua.SchoolSite)
		ua.SchoolSite = &site
	}
	return core.TranslateErrors(core.Validate.Struct(ua))
}

// IsEmpty reports whether ua changes nothing.
func (ua UpdateAssignment) IsEmpty() bool {
	return ua.DueDate == nil && ua.Name == nil && ua.SchoolSite == nil && ua.Status == nil && ua.Type == nil &&
		ua.APSigned == nil && ua.APDateSigned == nil && ua.IEPSigned == nil && ua.IEPDateSigned == nil && ua.Priority == nil
}

// Apply merges the set fields of ua into a.
func (ua UpdateAssignment) Apply(a *Assignment) {
	if ua.DueDate != nil {
		a.DueDate = *ua.DueDate
	}
	if ua.Name != nil {
		a.Name = *ua.Name
	}
	if ua.SchoolSite != nil {
		a.SchoolSite = *ua.SchoolSite
	}
	if ua.Status != nil && *ua.Status != "" {
		a.Status = *ua.Status
	}
	if ua.Type != nil {
		a.Type = *ua.Type
	}
	if ua.APSigned != nil {
		a.APSigned = *ua.APSigned
	}
	if ua.APDateSigned != nil {
		a.APDateSigned = *ua.APDateSigned
	}
	if ua.IEPSigned != nil {
		a.IEPSigned = *ua.IEPSigned
	}
	if ua.IEPDateSigned != nil {
		a.IEPDateSigned = *ua.IEPDateSigned
	}
	if ua.Priority != nil {
		a.Priority = *ua.Priority
	}
}

type QueryFilter struct {
	CreatedBy string
	Statuses  []Status
}

// Match reports whether a satisfies every set field of qf.
func (qf QueryFilter) Match(a Assignment) bool {
	if qf.CreatedBy != "" && a.CreatedBy != qf.CreatedBy {
		return false
	}
	if len(qf.Statuses) == 0 {
		return true
	}
	for _, st := range qf.Statuses {
		if a.Status == st {
			return true
		}
	}
	return false
}
