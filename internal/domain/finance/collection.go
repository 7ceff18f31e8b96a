package finance

import (
	"time"

	"github.com/estudiomd/backoffice/internal/domain/shared"
	"github.com/google/uuid"
)

// CollectionStatus tracks the outcome of a follow-up on an unpaid balance
type CollectionStatus string

const (
	CollectionPending     CollectionStatus = "pending"
	CollectionContacted   CollectionStatus = "contacted"
	CollectionPromised    CollectionStatus = "promised"
	CollectionPaid        CollectionStatus = "paid"
	CollectionUnreachable CollectionStatus = "unreachable"
)

func (s CollectionStatus) IsValid() bool {
	switch s {
	case CollectionPending, CollectionContacted, CollectionPromised, CollectionPaid, CollectionUnreachable:
		return true
	}
	return false
}

// ContactMethod is the channel used to reach the client
type ContactMethod string

const (
	ContactPhone    ContactMethod = "phone"
	ContactEmail    ContactMethod = "email"
	ContactWhatsApp ContactMethod = "whatsapp"
	ContactVisit    ContactMethod = "visit"
	ContactOther    ContactMethod = "other"
)

func (m ContactMethod) IsValid() bool {
	switch m {
	case ContactPhone, ContactEmail, ContactWhatsApp, ContactVisit, ContactOther:
		return true
	}
	return false
}

// CollectionRecord is a logged contact attempt about an overdue account
type CollectionRecord struct {
	shared.BaseEntity
	ClientID         uuid.UUID
	MonthlyPaymentID *uuid.UUID
	Status           CollectionStatus
	ContactDate      time.Time
	ContactMethod    ContactMethod
	Notes            string
	NextContactDate  *time.Time
	CreatedBy        uuid.UUID
}

// CollectionInput carries the editable fields of a collection record
type CollectionInput struct {
	MonthlyPaymentID *uuid.UUID
	Status           CollectionStatus
	ContactDate      time.Time
	ContactMethod    ContactMethod
	Notes            string
	NextContactDate  *time.Time
}

// NewCollectionRecord validates and creates a record
func NewCollectionRecord(clientID, createdBy uuid.UUID, in CollectionInput) (*CollectionRecord, error) {
	if in.Status == "" {
		in.Status = CollectionPending
	}
	if in.ContactDate.IsZero() {
		in.ContactDate = time.Now()
	}
	if err := validateCollection(in); err != nil {
		return nil, err
	}
	r := &CollectionRecord{
		BaseEntity: shared.NewBaseEntity(),
		ClientID:   clientID,
		CreatedBy:  createdBy,
	}
	r.apply(in)
	return r, nil
}

// Input returns the current editable fields
func (r *CollectionRecord) Input() CollectionInput {
	return CollectionInput{
		MonthlyPaymentID: r.MonthlyPaymentID,
		Status:           r.Status,
		ContactDate:      r.ContactDate,
		ContactMethod:    r.ContactMethod,
		Notes:            r.Notes,
		NextContactDate:  r.NextContactDate,
	}
}

// Update replaces the editable fields
func (r *CollectionRecord) Update(in CollectionInput) error {
	if err := validateCollection(in); err != nil {
		return err
	}
	r.apply(in)
	r.Touch()
	return nil
}

func (r *CollectionRecord) apply(in CollectionInput) {
	r.MonthlyPaymentID = in.MonthlyPaymentID
	r.Status = in.Status
	r.ContactDate = in.ContactDate
	r.ContactMethod = in.ContactMethod
	r.Notes = in.Notes
	r.NextContactDate = in.NextContactDate
}

func validateCollection(in CollectionInput) error {
	verr := shared.NewValidationError()
	if !in.Status.IsValid() {
		verr.Add("status", "Invalid status.")
	}
	if !in.ContactMethod.IsValid() {
		verr.Add("contact_method", "Invalid contact method.")
	}
	if in.NextContactDate != nil && in.NextContactDate.Before(truncateDay(in.ContactDate)) {
		verr.Add("next_contact_date", "Next contact date cannot be before the contact date.")
	}
	return verr.Err()
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
