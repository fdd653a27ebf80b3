package patient

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/casework/casework/internal/platform/apperr"
	"github.com/casework/casework/internal/platform/validate"
)

const (
	maxDiagnoses = 10
	maxTags      = 20
	maxNotes     = 2000
	maxAge       = 120
)

const (
	StatusActive = "active"
	StatusPaused = "paused"
	StatusClosed = "closed"
)

// Date is a calendar date carried as YYYY-MM-DD on the wire. RFC 3339
// timestamps are accepted on input and truncated to the day.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(dateLayout))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, s); err != nil {
			return err
		}
	}
	d.Time = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return nil
}

type EmergencyContact struct {
	Name         string `json:"name,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Relationship string `json:"relationship,omitempty"`
}

type Contact struct {
	Phone            string            `json:"phone,omitempty"`
	Email            string            `json:"email,omitempty"`
	Address          string            `json:"address,omitempty"`
	EmergencyContact *EmergencyContact `json:"emergencyContact,omitempty"`
}

// UserRef is the name and email of a referenced user, filled on reads.
type UserRef struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

type Patient struct {
	ID                uuid.UUID  `json:"id"`
	Name              string     `json:"name"`
	DOB               Date       `json:"dob"`
	Contact           Contact    `json:"contact"`
	Diagnoses         []string   `json:"diagnoses"`
	Tags              []string   `json:"tags"`
	AssignedTherapist *uuid.UUID `json:"assignedTherapist"`
	Supervisor        *uuid.UUID `json:"supervisor"`
	CaseStatus        string     `json:"caseStatus"`
	Priority          string     `json:"priority"`
	Notes             string     `json:"notes"`
	LastSessionDate   *time.Time `json:"lastSessionDate,omitempty"`
	NextAppointment   *time.Time `json:"nextAppointment,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`

	TherapistInfo  *UserRef `json:"therapistInfo,omitempty"`
	SupervisorInfo *UserRef `json:"supervisorInfo,omitempty"`
}

// now is swapped in tests.
var now = time.Now

// Age is the patient's age in whole years on the given day.
func (p *Patient) Age(on time.Time) int {
	return validate.AgeOn(p.DOB.Time, on)
}

func (p Patient) MarshalJSON() ([]byte, error) {
	type plain Patient
	var age *int
	if !p.DOB.IsZero() {
		a := p.Age(now())
		age = &a
	}
	return json.Marshal(struct {
		plain
		Age *int `json:"age"`
	}{plain(p), age})
}

// Normalize lowercases tags, trims diagnoses without changing case and
// fills the enum defaults.
func (p *Patient) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.Tags = validate.LowerList(p.Tags)
	p.Diagnoses = validate.TrimList(p.Diagnoses)
	p.Contact.Email = validate.NormalizeEmail(p.Contact.Email)
	p.Contact.Phone = strings.TrimSpace(p.Contact.Phone)
	p.Contact.Address = strings.TrimSpace(p.Contact.Address)
	p.CaseStatus = strings.ToLower(strings.TrimSpace(p.CaseStatus))
	if p.CaseStatus == "" {
		p.CaseStatus = StatusActive
	}
	p.Priority = strings.ToLower(strings.TrimSpace(p.Priority))
	if p.Priority == "" {
		p.Priority = "medium"
	}
}

// Validate checks the field rules. References to users are checked by the
// service.
func (p *Patient) Validate(today time.Time) error {
	var c apperr.Collector
	c.Check(p.Name != "", "name is required")
	c.Check(p.Name == "" || validate.NameLength(p.Name), "name must be between 2 and 100 characters")
	if p.DOB.IsZero() {
		c.Addf("dob is required")
	} else if age := p.Age(today); age < 0 || age > maxAge {
		c.Addf("dob must give an age between 0 and %d", maxAge)
	}

	ct := p.Contact
	c.Check(ct.Phone != "" || ct.Email != "", "contact is required")
	c.Check(ct.Phone == "" || validate.Phone(ct.Phone), "contact.phone must contain 10-15 digits")
	c.Check(ct.Email == "" || validate.Email(ct.Email), "contact.email must be a valid email address")
	if ec := ct.EmergencyContact; ec != nil && ec.Phone != "" {
		c.Check(validate.Phone(ec.Phone), "contact.emergencyContact.phone must contain 10-15 digits")
	}

	if len(p.Diagnoses) > maxDiagnoses {
		c.Addf("diagnoses cannot have more than %d entries", maxDiagnoses)
	}
	if len(p.Tags) > maxTags {
		c.Addf("tags cannot have more than %d entries", maxTags)
	}
	c.Check(validate.OneOf(p.CaseStatus, StatusActive, StatusPaused, StatusClosed), "caseStatus must be one of active, paused, closed")
	c.Check(validate.OneOf(p.Priority, "low", "medium", "high", "urgent"), "priority must be one of low, medium, high, urgent")
	if n := len([]rune(p.Notes)); n > maxNotes {
		c.Addf("notes cannot exceed %d characters", maxNotes)
	}
	return c.Err()
}

// MatchTerms is the union of diagnoses and tags, as stored, used by the
// allocator to score specialty overlap. Diagnoses keep their case, so
// "PTSD" does not match a "ptsd" specialty.
func (p *Patient) MatchTerms() map[string]struct{} {
	terms := make(map[string]struct{}, len(p.Diagnoses)+len(p.Tags))
	for _, s := range append(append([]string{}, p.Diagnoses...), p.Tags...) {
		if s != "" {
			terms[s] = struct{}{}
		}
	}
	return terms
}

// WriteRequest is the POST and PUT body. On PUT, absent fields keep their
// stored value.
type WriteRequest struct {
	Name              *string    `json:"name"`
	DOB               *Date      `json:"dob"`
	Contact           *Contact   `json:"contact"`
	Diagnoses         *[]string  `json:"diagnoses"`
	Tags              *[]string  `json:"tags"`
	AssignedTherapist *uuid.UUID `json:"assignedTherapist"`
	Supervisor        *uuid.UUID `json:"supervisor"`
	CaseStatus        *string    `json:"caseStatus"`
	Priority          *string    `json:"priority"`
	Notes             *string    `json:"notes"`
	LastSessionDate   *time.Time `json:"lastSessionDate"`
	NextAppointment   *time.Time `json:"nextAppointment"`
}

func (r WriteRequest) Apply(p *Patient) {
	if r.Name != nil {
		p.Name = *r.Name
	}
	if r.DOB != nil {
		p.DOB = *r.DOB
	}
	if r.Contact != nil {
		p.Contact = *r.Contact
	}
	if r.Diagnoses != nil {
		p.Diagnoses = *r.Diagnoses
	}
	if r.Tags != nil {
		p.Tags = *r.Tags
	}
	if r.AssignedTherapist != nil {
		p.AssignedTherapist = r.AssignedTherapist
	}
	if r.Supervisor != nil {
		p.Supervisor = r.Supervisor
	}
	if r.CaseStatus != nil {
		p.CaseStatus = *r.CaseStatus
	}
	if r.Priority != nil {
		p.Priority = *r.Priority
	}
	if r.Notes != nil {
		p.Notes = *r.Notes
	}
	if r.LastSessionDate != nil {
		p.LastSessionDate = r.LastSessionDate
	}
	if r.NextAppointment != nil {
		p.NextAppointment = r.NextAppointment
	}
}
