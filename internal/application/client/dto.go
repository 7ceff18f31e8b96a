package client

import (
	"time"

	"github.com/estudiomd/backoffice/internal/domain/client"
	"github.com/google/uuid"
)

// CreateClientRequest represents a request to register a client
type CreateClientRequest struct {
	Name        string `json:"name" binding:"required,max=255"`
	DNI         string `json:"dni" binding:"omitempty,max=8"`
	CompanyName string `json:"company_name" binding:"max=255"`
	CompanyRUC  string `json:"company_ruc" binding:"omitempty,max=11"`
	Email       string `json:"email" binding:"required,email,max=254"`
	Phone       string `json:"phone" binding:"max=20"`
	Address     string `json:"address" binding:"max=500"`
	City        string `json:"city" binding:"max=100"`
	State       string `json:"state" binding:"max=100"`
}

// UpdateClientRequest is a partial update; absent fields are unchanged.
// PUT requests are bound into the same struct.
type UpdateClientRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=255"`
	DNI         *string `json:"dni" binding:"omitempty,max=8"`
	CompanyName *string `json:"company_name" binding:"omitempty,max=255"`
	CompanyRUC  *string `json:"company_ruc" binding:"omitempty,max=11"`
	Email       *string `json:"email" binding:"omitempty,email,max=254"`
	Phone       *string `json:"phone" binding:"omitempty,max=20"`
	Address     *string `json:"address" binding:"omitempty,max=500"`
	City        *string `json:"city" binding:"omitempty,max=100"`
	State       *string `json:"state" binding:"omitempty,max=100"`
}

// ClientListFilter represents list query parameters
type ClientListFilter struct {
	Search   string `form:"search"`
	City     string `form:"city"`
	State    string `form:"state"`
	Ordering string `form:"ordering" binding:"omitempty,oneof=name -name created_at -created_at"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// ClientResponse represents a client in API responses
type ClientResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	DNI         string    `json:"dni"`
	CompanyName string    `json:"company_name"`
	CompanyRUC  string    `json:"company_ruc"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Address     string    `json:"address"`
	City        string    `json:"city"`
	State       string    `json:"state"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ToClientResponse converts a domain Client to ClientResponse
func ToClientResponse(c *client.Client) ClientResponse {
	return ClientResponse{
		ID:          c.ID,
		Name:        c.Name,
		DNI:         c.DNI,
		CompanyName: c.CompanyName,
		CompanyRUC:  c.CompanyRUC,
		Email:       c.Email,
		Phone:       c.Phone,
		Address:     c.Address,
		City:        c.City,
		State:       c.State,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}
