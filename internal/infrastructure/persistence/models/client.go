package models

import (
	"github.com/estudiomd/backoffice/internal/domain/client"
)

// ClientModel is the persistence model for the Client aggregate
type ClientModel struct {
	AggregateModel
	Name        string `gorm:"type:varchar(255);not null;index"`
	DNI         string `gorm:"column:dni;type:varchar(8)"`
	CompanyName string `gorm:"type:varchar(255)"`
	CompanyRUC  string `gorm:"column:company_ruc;type:varchar(11)"`
	Email       string `gorm:"type:varchar(254);not null;uniqueIndex"`
	Phone       string `gorm:"type:varchar(20)"`
	Address     string `gorm:"type:text"`
	City        string `gorm:"type:varchar(100);index"`
	State       string `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (ClientModel) TableName() string {
	return "clients"
}

// ToDomain converts the persistence model to a domain Client
func (m *ClientModel) ToDomain() *client.Client {
	return &client.Client{
		BaseAggregateRoot: m.ToAggregateRoot(),
		Name:              m.Name,
		DNI:               m.DNI,
		CompanyName:       m.CompanyName,
		CompanyRUC:        m.CompanyRUC,
		Email:             m.Email,
		Phone:             m.Phone,
		Address:           m.Address,
		City:              m.City,
		State:             m.State,
	}
}

// FromDomain populates the persistence model from a domain Client
func (m *ClientModel) FromDomain(c *client.Client) {
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	m.Name = c.Name
	m.DNI = c.DNI
	m.CompanyName = c.CompanyName
	m.CompanyRUC = c.CompanyRUC
	m.Email = c.Email
	m.Phone = c.Phone
	m.Address = c.Address
	m.City = c.City
	m.State = c.State
}

// ClientModelFromDomain creates a new persistence model from a domain Client
func ClientModelFromDomain(c *client.Client) *ClientModel {
	m := &ClientModel{}
	m.FromDomain(c)
	return m
}
