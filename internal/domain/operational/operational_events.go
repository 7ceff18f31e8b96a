package operational

import (
	"github.com/estudiomd/backoffice/internal/domain/shared"
	"github.com/google/uuid"
)

const AggregateTypeOperationalControl = "OperationalControl"

const (
	EventTypeControlOpened         = "operational.control_opened"
	EventTypeTaxDeclarationFiled   = "operational.tax_declaration_filed"
	EventTypeTaxDeclarationRemoved = "operational.tax_declaration_removed"
)

// ControlOpenedEvent is published when a fiscal year gets its declaration slots
type ControlOpenedEvent struct {
	shared.BaseDomainEvent
	ClientID uuid.UUID `json:"client_id"`
	Year     int       `json:"year"`
}

func NewControlOpenedEvent(c *OperationalControl) *ControlOpenedEvent {
	return &ControlOpenedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeControlOpened, AggregateTypeOperationalControl, c.ID),
		ClientID:        c.ClientID,
		Year:            c.Year,
	}
}

// TaxDeclarationFiledEvent is published when a PDT is attached to a month
type TaxDeclarationFiledEvent struct {
	shared.BaseDomainEvent
	ClientID         uuid.UUID `json:"client_id"`
	Year             int       `json:"year"`
	Month            int       `json:"month"`
	TaxDeclarationID uuid.UUID `json:"tax_declaration_id"`
	PDTType          PDTType   `json:"pdt_type"`
}

func NewTaxDeclarationFiledEvent(c *OperationalControl, d *MonthlyDeclaration, td *TaxDeclaration) *TaxDeclarationFiledEvent {
	return &TaxDeclarationFiledEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeTaxDeclarationFiled, AggregateTypeOperationalControl, c.ID),
		ClientID:         c.ClientID,
		Year:             c.Year,
		Month:            d.Month.Int(),
		TaxDeclarationID: td.ID,
		PDTType:          td.PDTType,
	}
}

// TaxDeclarationRemovedEvent is published when a filing is detached, which
// puts its month back among the pending declarations
type TaxDeclarationRemovedEvent struct {
	shared.BaseDomainEvent
	ClientID         uuid.UUID `json:"client_id"`
	Year             int       `json:"year"`
	Month            int       `json:"month"`
	TaxDeclarationID uuid.UUID `json:"tax_declaration_id"`
}

func NewTaxDeclarationRemovedEvent(c *OperationalControl, d *MonthlyDeclaration, td *TaxDeclaration) *TaxDeclarationRemovedEvent {
	return &TaxDeclarationRemovedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeTaxDeclarationRemoved, AggregateTypeOperationalControl, c.ID),
		ClientID:         c.ClientID,
		Year:             c.Year,
		Month:            d.Month.Int(),
		TaxDeclarationID: td.ID,
	}
}

// YearOf returns the fiscal year an operational event belongs to
func YearOf(event shared.DomainEvent) (int, bool) {
	switch e := event.(type) {
	case *ControlOpenedEvent:
		return e.Year, true
	case *TaxDeclarationFiledEvent:
		return e.Year, true
	case *TaxDeclarationRemovedEvent:
		return e.Year, true
	}
	return 0, false
}
