package models

import (
	"sort"

	"github.com/estudiomd/backoffice/internal/domain/operational"
	"github.com/estudiomd/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// OperationalControlModel is the persistence model for the OperationalControl aggregate
type OperationalControlModel struct {
	AggregateModel
	ClientID       uuid.UUID                 `gorm:"type:uuid;not null;uniqueIndex:idx_operational_client_year,priority:1"`
	Year           int                       `gorm:"not null;uniqueIndex:idx_operational_client_year,priority:2"`
	Declarations   []MonthlyDeclarationModel `gorm:"foreignKey:ControlID;constraint:OnDelete:CASCADE"`
	AdditionalPDTs []AdditionalPDTModel      `gorm:"foreignKey:ControlID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (OperationalControlModel) TableName() string {
	return "operational_controls"
}

// MonthlyDeclarationModel is the persistence model for a monthly declaration slot
type MonthlyDeclarationModel struct {
	BaseModel
	ControlID        uuid.UUID             `gorm:"type:uuid;not null;uniqueIndex:idx_declaration_control_month,priority:1"`
	Month            int                   `gorm:"not null;uniqueIndex:idx_declaration_control_month,priority:2"`
	PresentationDate *datatypes.Date       `gorm:"type:date"`
	TaxDeclarations  []TaxDeclarationModel `gorm:"foreignKey:DeclarationID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (MonthlyDeclarationModel) TableName() string {
	return "monthly_declarations"
}

// TaxDeclarationModel is the persistence model for a PDT filing
type TaxDeclarationModel struct {
	BaseModel
	DeclarationID uuid.UUID                     `gorm:"type:uuid;not null;index"`
	PDTType       operational.PDTType           `gorm:"column:pdt_type;type:varchar(20);not null"`
	OrderNumber   string                        `gorm:"type:varchar(50)"`
	Status        operational.DeclarationStatus `gorm:"type:varchar(20);not null;default:'pending'"`
	PDFKey        string                        `gorm:"column:pdf_key;type:varchar(255)"`
	Notes         string                        `gorm:"type:text"`
	CreatedBy     uuid.UUID                     `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (TaxDeclarationModel) TableName() string {
	return "tax_declarations"
}

// AdditionalPDTModel is the persistence model for a filing outside the monthly calendar
type AdditionalPDTModel struct {
	BaseModel
	ControlID        uuid.UUID                     `gorm:"type:uuid;not null;index"`
	PDTType          operational.PDTType           `gorm:"column:pdt_type;type:varchar(20);not null"`
	PDTName          string                        `gorm:"column:pdt_name;type:varchar(100)"`
	OrderNumber      string                        `gorm:"type:varchar(50)"`
	PresentationDate *datatypes.Date               `gorm:"type:date"`
	Status           operational.DeclarationStatus `gorm:"type:varchar(20);not null;default:'pending'"`
	PDFKey           string                        `gorm:"column:pdf_key;type:varchar(255)"`
	Notes            string                        `gorm:"type:text"`
	CreatedBy        uuid.UUID                     `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (AdditionalPDTModel) TableName() string {
	return "additional_pdts"
}

// ToDomain converts the persistence model to a domain OperationalControl
func (m *OperationalControlModel) ToDomain() *operational.OperationalControl {
	c := &operational.OperationalControl{
		BaseAggregateRoot: m.ToAggregateRoot(),
		ClientID:          m.ClientID,
		Year:              m.Year,
		Declarations:      make([]*operational.MonthlyDeclaration, 0, len(m.Declarations)),
		AdditionalPDTs:    make([]*operational.AdditionalPDT, 0, len(m.AdditionalPDTs)),
	}
	for i := range m.Declarations {
		c.Declarations = append(c.Declarations, m.Declarations[i].ToDomain())
	}
	sort.Slice(c.Declarations, func(i, j int) bool { return c.Declarations[i].Month < c.Declarations[j].Month })
	for i := range m.AdditionalPDTs {
		c.AdditionalPDTs = append(c.AdditionalPDTs, m.AdditionalPDTs[i].ToDomain())
	}
	sort.SliceStable(c.AdditionalPDTs, func(i, j int) bool {
		return c.AdditionalPDTs[i].CreatedAt.After(c.AdditionalPDTs[j].CreatedAt)
	})
	return c
}

// FromDomain populates the control row only; children are synchronized by the repository
func (m *OperationalControlModel) FromDomain(c *operational.OperationalControl) {
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	m.ClientID = c.ClientID
	m.Year = c.Year
}

// ToDomain converts the persistence model to a domain MonthlyDeclaration
func (m *MonthlyDeclarationModel) ToDomain() *operational.MonthlyDeclaration {
	d := &operational.MonthlyDeclaration{
		BaseEntity:       m.BaseModel.ToDomain(),
		ControlID:        m.ControlID,
		Month:            valueobject.Month(m.Month),
		PresentationDate: datePtrToTime(m.PresentationDate),
		TaxDeclarations:  make([]*operational.TaxDeclaration, 0, len(m.TaxDeclarations)),
	}
	for i := range m.TaxDeclarations {
		d.TaxDeclarations = append(d.TaxDeclarations, m.TaxDeclarations[i].ToDomain())
	}
	sort.SliceStable(d.TaxDeclarations, func(i, j int) bool {
		return d.TaxDeclarations[i].CreatedAt.Before(d.TaxDeclarations[j].CreatedAt)
	})
	return d
}

// FromDomain populates the persistence model from a domain MonthlyDeclaration
func (m *MonthlyDeclarationModel) FromDomain(d *operational.MonthlyDeclaration) {
	m.FromDomainBaseEntity(d.BaseEntity)
	m.ControlID = d.ControlID
	m.Month = d.Month.Int()
	m.PresentationDate = timeToDatePtr(d.PresentationDate)
}

// ToDomain converts the persistence model to a domain TaxDeclaration
func (m *TaxDeclarationModel) ToDomain() *operational.TaxDeclaration {
	return &operational.TaxDeclaration{
		BaseEntity:    m.BaseModel.ToDomain(),
		DeclarationID: m.DeclarationID,
		PDTType:       m.PDTType,
		OrderNumber:   m.OrderNumber,
		Status:        m.Status,
		PDFKey:        m.PDFKey,
		Notes:         m.Notes,
		CreatedBy:     m.CreatedBy,
	}
}

// FromDomain populates the persistence model from a domain TaxDeclaration
func (m *TaxDeclarationModel) FromDomain(t *operational.TaxDeclaration) {
	m.FromDomainBaseEntity(t.BaseEntity)
	m.DeclarationID = t.DeclarationID
	m.PDTType = t.PDTType
	m.OrderNumber = t.OrderNumber
	m.Status = t.Status
	m.PDFKey = t.PDFKey
	m.Notes = t.Notes
	m.CreatedBy = t.CreatedBy
}

// ToDomain converts the persistence model to a domain AdditionalPDT
func (m *AdditionalPDTModel) ToDomain() *operational.AdditionalPDT {
	return &operational.AdditionalPDT{
		BaseEntity:       m.BaseModel.ToDomain(),
		ControlID:        m.ControlID,
		PDTType:          m.PDTType,
		PDTName:          m.PDTName,
		OrderNumber:      m.OrderNumber,
		PresentationDate: datePtrToTime(m.PresentationDate),
		Status:           m.Status,
		PDFKey:           m.PDFKey,
		Notes:            m.Notes,
		CreatedBy:        m.CreatedBy,
	}
}

// FromDomain populates the persistence model from a domain AdditionalPDT
func (m *AdditionalPDTModel) FromDomain(a *operational.AdditionalPDT) {
	m.FromDomainBaseEntity(a.BaseEntity)
	m.ControlID = a.ControlID
	m.PDTType = a.PDTType
	m.PDTName = a.PDTName
	m.OrderNumber = a.OrderNumber
	m.PresentationDate = timeToDatePtr(a.PresentationDate)
	m.Status = a.Status
	m.PDFKey = a.PDFKey
	m.Notes = a.Notes
	m.CreatedBy = a.CreatedBy
}
