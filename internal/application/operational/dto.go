package operational

import (
	"io"
	"time"

	"github.com/estudiomd/backoffice/internal/domain/operational"
	"github.com/estudiomd/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// Upload is a PDF received with a filing
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// PresentationDateRequest upserts the presentation date of a month
type PresentationDateRequest struct {
	Year             int               `json:"year" binding:"required,min=2000,max=2100"`
	Month            int               `json:"month" binding:"required,min=1,max=13"`
	PresentationDate *valueobject.Date `json:"presentation_date"`
}

// FileTaxRequest files a PDT against a monthly declaration. It arrives as
// multipart form data next to an optional pdf_file.
type FileTaxRequest struct {
	PDTType     string `form:"pdt_type" json:"pdt_type" binding:"required,pdt_type"`
	OrderNumber string `form:"order_number" json:"order_number" binding:"max=50"`
	Status      string `form:"status" json:"status" binding:"omitempty,oneof=pending presented observed accepted"`
	Notes       string `form:"notes" json:"notes" binding:"max=2000"`
}

// UpdateTaxRequest is a partial update of a filing
type UpdateTaxRequest struct {
	PDTType     *string `form:"pdt_type" json:"pdt_type" binding:"omitempty,pdt_type"`
	OrderNumber *string `form:"order_number" json:"order_number" binding:"omitempty,max=50"`
	Status      *string `form:"status" json:"status" binding:"omitempty,oneof=pending presented observed accepted"`
	Notes       *string `form:"notes" json:"notes" binding:"omitempty,max=2000"`
}

// AdditionalPDTRequest registers an additional PDT for a fiscal year
type AdditionalPDTRequest struct {
	Year             int               `form:"year" json:"year" binding:"required,min=2000,max=2100"`
	PDTType          string            `form:"pdt_type" json:"pdt_type" binding:"required,pdt_type"`
	PDTName          string            `form:"pdt_name" json:"pdt_name" binding:"max=100"`
	OrderNumber      string            `form:"order_number" json:"order_number" binding:"max=50"`
	PresentationDate *valueobject.Date `form:"presentation_date" json:"presentation_date"`
	Status           string            `form:"status" json:"status" binding:"omitempty,oneof=pending presented observed accepted"`
	Notes            string            `form:"notes" json:"notes" binding:"max=2000"`
}

// UpdateAdditionalPDTRequest is a partial update of an additional PDT
type UpdateAdditionalPDTRequest struct {
	PDTType          *string           `form:"pdt_type" json:"pdt_type" binding:"omitempty,pdt_type"`
	PDTName          *string           `form:"pdt_name" json:"pdt_name" binding:"omitempty,max=100"`
	OrderNumber      *string           `form:"order_number" json:"order_number" binding:"omitempty,max=50"`
	PresentationDate *valueobject.Date `form:"presentation_date" json:"presentation_date"`
	Status           *string           `form:"status" json:"status" binding:"omitempty,oneof=pending presented observed accepted"`
	Notes            *string           `form:"notes" json:"notes" binding:"omitempty,max=2000"`
}

// TaxDeclarationResponse represents a filed PDT
type TaxDeclarationResponse struct {
	ID             uuid.UUID `json:"id"`
	PDTType        string    `json:"pdt_type"`
	PDTTypeDisplay string    `json:"pdt_type_display"`
	OrderNumber    string    `json:"order_number"`
	Status         string    `json:"status"`
	StatusDisplay  string    `json:"status_display"`
	PDFFile        *string   `json:"pdf_file"`
	Notes          string    `json:"notes"`
	CreatedBy      uuid.UUID `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// MonthlyDeclarationResponse represents one declaration slot
type MonthlyDeclarationResponse struct {
	ID               uuid.UUID                `json:"id"`
	Month            int                      `json:"month"`
	MonthName        string                   `json:"month_name"`
	PresentationDate *valueobject.Date        `json:"presentation_date"`
	TaxDeclarations  []TaxDeclarationResponse `json:"tax_declarations"`
}

// OperationalResponse represents a client's operational control for a year
type OperationalResponse struct {
	ID                  uuid.UUID                    `json:"id"`
	ClientID            uuid.UUID                    `json:"client"`
	Year                int                          `json:"year"`
	MonthlyDeclarations []MonthlyDeclarationResponse `json:"monthly_declarations"`
	PendingDeclarations int                          `json:"pending_declarations"`
	CreatedAt           time.Time                    `json:"created_at"`
	UpdatedAt           time.Time                    `json:"updated_at"`
}

// AdditionalPDTResponse represents an additional PDT
type AdditionalPDTResponse struct {
	ID               uuid.UUID         `json:"id"`
	Year             int               `json:"year"`
	PDTType          string            `json:"pdt_type"`
	PDTTypeDisplay   string            `json:"pdt_type_display"`
	PDTName          string            `json:"pdt_name"`
	DisplayName      string            `json:"display_name"`
	OrderNumber      string            `json:"order_number"`
	PresentationDate *valueobject.Date `json:"presentation_date"`
	Status           string            `json:"status"`
	StatusDisplay    string            `json:"status_display"`
	PDFFile          *string           `json:"pdf_file"`
	Notes            string            `json:"notes"`
	CreatedBy        uuid.UUID         `json:"created_by"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// linker resolves a stored PDF key to a download link, nil when there is none
type linker func(key string) *string

func toTaxDeclarationResponse(td *operational.TaxDeclaration, link linker) TaxDeclarationResponse {
	return TaxDeclarationResponse{
		ID:             td.ID,
		PDTType:        string(td.PDTType),
		PDTTypeDisplay: td.PDTType.Display(),
		OrderNumber:    td.OrderNumber,
		Status:         string(td.Status),
		StatusDisplay:  td.Status.Display(),
		PDFFile:        link(td.PDFKey),
		Notes:          td.Notes,
		CreatedBy:      td.CreatedBy,
		CreatedAt:      td.CreatedAt,
		UpdatedAt:      td.UpdatedAt,
	}
}

func toOperationalResponse(c *operational.OperationalControl, link linker) OperationalResponse {
	resp := OperationalResponse{
		ID:                  c.ID,
		ClientID:            c.ClientID,
		Year:                c.Year,
		MonthlyDeclarations: make([]MonthlyDeclarationResponse, len(c.Declarations)),
		PendingDeclarations: c.PendingDeclarations(),
		CreatedAt:           c.CreatedAt,
		UpdatedAt:           c.UpdatedAt,
	}
	for i, d := range c.Declarations {
		md := MonthlyDeclarationResponse{
			ID:               d.ID,
			Month:            d.Month.Int(),
			MonthName:        d.Month.Name(),
			PresentationDate: valueobject.DatePtr(d.PresentationDate),
			TaxDeclarations:  make([]TaxDeclarationResponse, len(d.TaxDeclarations)),
		}
		for j, td := range d.TaxDeclarations {
			md.TaxDeclarations[j] = toTaxDeclarationResponse(td, link)
		}
		resp.MonthlyDeclarations[i] = md
	}
	return resp
}

func toAdditionalPDTResponse(year int, a *operational.AdditionalPDT, link linker) AdditionalPDTResponse {
	return AdditionalPDTResponse{
		ID:               a.ID,
		Year:             year,
		PDTType:          string(a.PDTType),
		PDTTypeDisplay:   a.PDTType.Display(),
		PDTName:          a.PDTName,
		DisplayName:      a.DisplayName(),
		OrderNumber:      a.OrderNumber,
		PresentationDate: valueobject.DatePtr(a.PresentationDate),
		Status:           string(a.Status),
		StatusDisplay:    a.Status.Display(),
		PDFFile:          link(a.PDFKey),
		Notes:            a.Notes,
		CreatedBy:        a.CreatedBy,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}
