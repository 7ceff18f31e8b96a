package operational

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/estudiomd/backoffice/internal/domain/shared"
	"github.com/google/uuid"
)

// AdditionalPDT is a filing outside the monthly calendar
type AdditionalPDT struct {
	shared.BaseEntity
	ControlID        uuid.UUID
	PDTType          PDTType
	PDTName          string
	OrderNumber      string
	PresentationDate *time.Time
	Status           DeclarationStatus
	PDFKey           string
	Notes            string
	CreatedBy        uuid.UUID
}

// AdditionalInput carries the fields of an additional PDT
type AdditionalInput struct {
	PDTType          PDTType
	PDTName          string
	OrderNumber      string
	PresentationDate *time.Time
	Status           DeclarationStatus
	PDFKey           string
	Notes            string
}

// AdditionalPatch is a partial update; nil fields are left unchanged
type AdditionalPatch struct {
	PDTType          *PDTType
	PDTName          *string
	OrderNumber      *string
	PresentationDate *time.Time
	Status           *DeclarationStatus
	PDFKey           *string
	Notes            *string
}

// DisplayName is the custom name for OTHER filings and the form name otherwise
func (a *AdditionalPDT) DisplayName() string {
	if a.PDTType == PDTOther {
		return a.PDTName
	}
	return a.PDTType.Display()
}

// AddAdditionalPDT registers an ad hoc filing
func (c *OperationalControl) AddAdditionalPDT(in AdditionalInput, actor uuid.UUID) (*AdditionalPDT, error) {
	if in.Status == "" {
		in.Status = StatusPending
	}
	in.PDTName = strings.TrimSpace(in.PDTName)
	if err := validateAdditional(in); err != nil {
		return nil, err
	}
	a := &AdditionalPDT{
		BaseEntity: shared.NewBaseEntity(),
		ControlID:  c.ID,
		CreatedBy:  actor,
	}
	a.apply(in)
	c.AdditionalPDTs = append(c.AdditionalPDTs, a)
	c.Touch()
	return a, nil
}

// AdditionalPDT returns the filing with id or ErrNotFound
func (c *OperationalControl) AdditionalPDT(id uuid.UUID) (*AdditionalPDT, error) {
	for _, a := range c.AdditionalPDTs {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, shared.ErrNotFound
}

// UpdateAdditionalPDT applies a partial update
func (c *OperationalControl) UpdateAdditionalPDT(id uuid.UUID, p AdditionalPatch) (*AdditionalPDT, error) {
	a, err := c.AdditionalPDT(id)
	if err != nil {
		return nil, err
	}
	in := AdditionalInput{
		PDTType: a.PDTType, PDTName: a.PDTName, OrderNumber: a.OrderNumber,
		PresentationDate: a.PresentationDate, Status: a.Status, PDFKey: a.PDFKey, Notes: a.Notes,
	}
	if p.PDTType != nil {
		in.PDTType = *p.PDTType
	}
	if p.PDTName != nil {
		in.PDTName = strings.TrimSpace(*p.PDTName)
	}
	if p.OrderNumber != nil {
		in.OrderNumber = *p.OrderNumber
	}
	if p.PresentationDate != nil {
		in.PresentationDate = p.PresentationDate
	}
	if p.Status != nil {
		in.Status = *p.Status
	}
	if p.PDFKey != nil {
		in.PDFKey = *p.PDFKey
	}
	if p.Notes != nil {
		in.Notes = *p.Notes
	}
	if err := validateAdditional(in); err != nil {
		return nil, err
	}
	a.apply(in)
	a.Touch()
	c.Touch()
	return a, nil
}

// RemoveAdditionalPDT detaches the filing and returns it
func (c *OperationalControl) RemoveAdditionalPDT(id uuid.UUID) (*AdditionalPDT, error) {
	for i, a := range c.AdditionalPDTs {
		if a.ID == id {
			c.AdditionalPDTs = append(c.AdditionalPDTs[:i], c.AdditionalPDTs[i+1:]...)
			c.Touch()
			return a, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (a *AdditionalPDT) apply(in AdditionalInput) {
	a.PDTType = in.PDTType
	a.PDTName = in.PDTName
	a.OrderNumber = in.OrderNumber
	if in.PresentationDate != nil {
		day := dateOnly(*in.PresentationDate)
		a.PresentationDate = &day
	} else {
		a.PresentationDate = nil
	}
	a.Status = in.Status
	a.PDFKey = in.PDFKey
	a.Notes = in.Notes
}

func validateAdditional(in AdditionalInput) error {
	verr := shared.NewValidationError()
	if !in.PDTType.IsValidAdditional() {
		verr.Add("pdt_type", "\""+string(in.PDTType)+"\" is not a valid choice.")
	}
	if in.PDTType == PDTOther && in.PDTName == "" {
		verr.Add("pdt_name", "This field is required when pdt_type is OTHER.")
	}
	if utf8.RuneCountInString(in.PDTName) > 100 {
		verr.Add("pdt_name", "Ensure this field has no more than 100 characters.")
	}
	if !in.Status.IsValid() {
		verr.Add("status", "\""+string(in.Status)+"\" is not a valid choice.")
	}
	if utf8.RuneCountInString(in.OrderNumber) > 50 {
		verr.Add("order_number", "Ensure this field has no more than 50 characters.")
	}
	return verr.Err()
}
