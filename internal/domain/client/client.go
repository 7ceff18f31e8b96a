package client

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/estudiomd/backoffice/internal/domain/shared"
)

// Client is a customer of the firm and the aggregate root of the client context.
// Finance and operational records hang off it per fiscal year.
type Client struct {
	shared.BaseAggregateRoot
	Name        string
	DNI         string
	CompanyName string
	CompanyRUC  string
	Email       string
	Phone       string
	Address     string
	City        string
	State       string
}

// Details holds the editable attributes of a client
type Details struct {
	Name        string
	DNI         string
	CompanyName string
	CompanyRUC  string
	Email       string
	Phone       string
	Address     string
	City        string
	State       string
}

// Patch is a partial update; nil fields are left unchanged
type Patch struct {
	Name        *string
	DNI         *string
	CompanyName *string
	CompanyRUC  *string
	Email       *string
	Phone       *string
	Address     *string
	City        *string
	State       *string
}

// NewClient creates a client from validated details
func NewClient(d Details) (*Client, error) {
	d = normalize(d)
	if err := validate(d); err != nil {
		return nil, err
	}

	c := &Client{BaseAggregateRoot: shared.NewBaseAggregateRoot()}
	c.apply(d)
	c.AddDomainEvent(NewClientCreatedEvent(c))
	return c, nil
}

// Details returns the current attributes
func (c *Client) Details() Details {
	return Details{
		Name:        c.Name,
		DNI:         c.DNI,
		CompanyName: c.CompanyName,
		CompanyRUC:  c.CompanyRUC,
		Email:       c.Email,
		Phone:       c.Phone,
		Address:     c.Address,
		City:        c.City,
		State:       c.State,
	}
}

// Update applies p on top of the current attributes
func (c *Client) Update(p Patch) error {
	d := c.Details()
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&d.Name, p.Name)
	set(&d.DNI, p.DNI)
	set(&d.CompanyName, p.CompanyName)
	set(&d.CompanyRUC, p.CompanyRUC)
	set(&d.Email, p.Email)
	set(&d.Phone, p.Phone)
	set(&d.Address, p.Address)
	set(&d.City, p.City)
	set(&d.State, p.State)

	d = normalize(d)
	if err := validate(d); err != nil {
		return err
	}

	c.apply(d)
	c.Touch()
	c.IncrementVersion()
	c.AddDomainEvent(NewClientUpdatedEvent(c))
	return nil
}

// MarkDeleted records the deletion event; removal itself is done by the repository
func (c *Client) MarkDeleted() {
	c.AddDomainEvent(NewClientDeletedEvent(c))
}

// DisplayName prefers the company name when the client is a business
func (c *Client) DisplayName() string {
	if c.CompanyName != "" {
		return c.CompanyName
	}
	return c.Name
}

func (c *Client) apply(d Details) {
	c.Name = d.Name
	c.DNI = d.DNI
	c.CompanyName = d.CompanyName
	c.CompanyRUC = d.CompanyRUC
	c.Email = d.Email
	c.Phone = d.Phone
	c.Address = d.Address
	c.City = d.City
	c.State = d.State
}

func normalize(d Details) Details {
	d.Name = strings.TrimSpace(d.Name)
	d.DNI = strings.TrimSpace(d.DNI)
	d.CompanyName = strings.TrimSpace(d.CompanyName)
	d.CompanyRUC = strings.TrimSpace(d.CompanyRUC)
	d.Email = strings.ToLower(strings.TrimSpace(d.Email))
	d.Phone = strings.TrimSpace(d.Phone)
	d.Address = strings.TrimSpace(d.Address)
	d.City = strings.TrimSpace(d.City)
	d.State = strings.TrimSpace(d.State)
	return d
}

func validate(d Details) error {
	verr := shared.NewValidationError()
	if d.Name == "" {
		verr.Add("name", "This field may not be blank.")
	} else if utf8.RuneCountInString(d.Name) > 255 {
		verr.Add("name", "Ensure this field has no more than 255 characters.")
	}
	if d.Email == "" {
		verr.Add("email", "This field may not be blank.")
	} else if _, err := mail.ParseAddress(d.Email); err != nil {
		verr.Add("email", "Enter a valid email address.")
	}
	if d.DNI != "" && !isDigits(d.DNI, 8) {
		verr.Add("dni", "DNI must have 8 digits.")
	}
	if d.CompanyRUC != "" && !isDigits(d.CompanyRUC, 11) {
		verr.Add("company_ruc", "RUC must have 11 digits.")
	}
	return verr.Err()
}

func isDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
