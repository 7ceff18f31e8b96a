package operational

import (
	"time"
	"unicode/utf8"

	"github.com/estudiomd/backoffice/internal/domain/shared"
	"github.com/estudiomd/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// OperationalControl tracks the tax filings of one client for one fiscal year
type OperationalControl struct {
	shared.BaseAggregateRoot
	ClientID       uuid.UUID
	Year           int
	Declarations   []*MonthlyDeclaration
	AdditionalPDTs []*AdditionalPDT
}

// MonthlyDeclaration is the filing slot of one fiscal month
type MonthlyDeclaration struct {
	shared.BaseEntity
	ControlID        uuid.UUID
	Month            valueobject.Month
	PresentationDate *time.Time
	TaxDeclarations  []*TaxDeclaration
}

// TaxDeclaration is a PDT filed against a monthly declaration
type TaxDeclaration struct {
	shared.BaseEntity
	DeclarationID uuid.UUID
	PDTType       PDTType
	OrderNumber   string
	Status        DeclarationStatus
	PDFKey        string
	Notes         string
	CreatedBy     uuid.UUID
}

// TaxInput carries the fields of a new filing
type TaxInput struct {
	PDTType     PDTType
	OrderNumber string
	Status      DeclarationStatus
	PDFKey      string
	Notes       string
}

// TaxPatch is a partial update of a filing
type TaxPatch struct {
	PDTType     *PDTType
	OrderNumber *string
	Status      *DeclarationStatus
	PDFKey      *string
	Notes       *string
}

// NewOperationalControl opens a fiscal year with its 13 declaration slots
func NewOperationalControl(clientID uuid.UUID, year int) (*OperationalControl, error) {
	if clientID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CLIENT", "Client ID cannot be empty")
	}
	if err := valueobject.ValidateFiscalYear(year); err != nil {
		return nil, err
	}
	c := &OperationalControl{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ClientID:          clientID,
		Year:              year,
	}
	for _, m := range valueobject.AllMonths() {
		c.Declarations = append(c.Declarations, &MonthlyDeclaration{
			BaseEntity: shared.NewBaseEntity(),
			ControlID:  c.ID,
			Month:      m,
		})
	}
	c.AddDomainEvent(NewControlOpenedEvent(c))
	return c, nil
}

// DeclarationByMonth returns the slot for m, creating it when missing
func (c *OperationalControl) DeclarationByMonth(m valueobject.Month) *MonthlyDeclaration {
	for _, d := range c.Declarations {
		if d.Month == m {
			return d
		}
	}
	d := &MonthlyDeclaration{BaseEntity: shared.NewBaseEntity(), ControlID: c.ID, Month: m}
	c.Declarations = append(c.Declarations, d)
	return d
}

// DeclarationByID returns the slot with id or ErrNotFound
func (c *OperationalControl) DeclarationByID(id uuid.UUID) (*MonthlyDeclaration, error) {
	for _, d := range c.Declarations {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, shared.ErrNotFound
}

// SetPresentationDate records when the declaration of month was presented.
// A nil date leaves the slot unchanged.
func (c *OperationalControl) SetPresentationDate(month valueobject.Month, date *time.Time) (*MonthlyDeclaration, error) {
	if !month.IsValid() {
		return nil, shared.NewFieldError("month", "El mes es requerido")
	}
	d := c.DeclarationByMonth(month)
	if date != nil {
		day := dateOnly(*date)
		d.PresentationDate = &day
		d.Touch()
		c.Touch()
	}
	return d, nil
}

// FileTaxDeclaration attaches a PDT filing to the declaration slot
func (c *OperationalControl) FileTaxDeclaration(declarationID uuid.UUID, in TaxInput, actor uuid.UUID) (*TaxDeclaration, error) {
	d, err := c.DeclarationByID(declarationID)
	if err != nil {
		return nil, err
	}
	if in.Status == "" {
		in.Status = StatusPending
	}
	if err := validateTax(in); err != nil {
		return nil, err
	}
	td := &TaxDeclaration{
		BaseEntity:    shared.NewBaseEntity(),
		DeclarationID: d.ID,
		PDTType:       in.PDTType,
		OrderNumber:   in.OrderNumber,
		Status:        in.Status,
		PDFKey:        in.PDFKey,
		Notes:         in.Notes,
		CreatedBy:     actor,
	}
	d.TaxDeclarations = append(d.TaxDeclarations, td)
	c.Touch()
	c.AddDomainEvent(NewTaxDeclarationFiledEvent(c, d, td))
	return td, nil
}

// TaxDeclaration returns the filing taxID of declaration declarationID
func (c *OperationalControl) TaxDeclaration(declarationID, taxID uuid.UUID) (*TaxDeclaration, error) {
	d, err := c.DeclarationByID(declarationID)
	if err != nil {
		return nil, err
	}
	for _, td := range d.TaxDeclarations {
		if td.ID == taxID {
			return td, nil
		}
	}
	return nil, shared.ErrNotFound
}

// UpdateTaxDeclaration applies a partial update to a filing
func (c *OperationalControl) UpdateTaxDeclaration(declarationID, taxID uuid.UUID, p TaxPatch) (*TaxDeclaration, error) {
	td, err := c.TaxDeclaration(declarationID, taxID)
	if err != nil {
		return nil, err
	}
	in := TaxInput{PDTType: td.PDTType, OrderNumber: td.OrderNumber, Status: td.Status, PDFKey: td.PDFKey, Notes: td.Notes}
	if p.PDTType != nil {
		in.PDTType = *p.PDTType
	}
	if p.OrderNumber != nil {
		in.OrderNumber = *p.OrderNumber
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
	if err := validateTax(in); err != nil {
		return nil, err
	}
	td.PDTType = in.PDTType
	td.OrderNumber = in.OrderNumber
	td.Status = in.Status
	td.PDFKey = in.PDFKey
	td.Notes = in.Notes
	td.Touch()
	c.Touch()
	return td, nil
}

// RemoveTaxDeclaration detaches a filing and returns it
func (c *OperationalControl) RemoveTaxDeclaration(declarationID, taxID uuid.UUID) (*TaxDeclaration, error) {
	d, err := c.DeclarationByID(declarationID)
	if err != nil {
		return nil, err
	}
	for i, td := range d.TaxDeclarations {
		if td.ID == taxID {
			d.TaxDeclarations = append(d.TaxDeclarations[:i], d.TaxDeclarations[i+1:]...)
			c.Touch()
			c.AddDomainEvent(NewTaxDeclarationRemovedEvent(c, d, td))
			return td, nil
		}
	}
	return nil, shared.ErrNotFound
}

// PendingDeclarations counts declaration slots with no filing attached
func (c *OperationalControl) PendingDeclarations() int {
	n := 0
	for _, d := range c.Declarations {
		if len(d.TaxDeclarations) == 0 {
			n++
		}
	}
	return n
}

func validateTax(in TaxInput) error {
	verr := shared.NewValidationError()
	if !in.PDTType.IsValidMonthly() {
		verr.Add("pdt_type", "\""+string(in.PDTType)+"\" is not a valid choice.")
	}
	if !in.Status.IsValid() {
		verr.Add("status", "\""+string(in.Status)+"\" is not a valid choice.")
	}
	if utf8.RuneCountInString(in.OrderNumber) > 50 {
		verr.Add("order_number", "Ensure this field has no more than 50 characters.")
	}
	return verr.Err()
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
