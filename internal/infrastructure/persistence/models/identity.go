package models

import (
	"time"

	"github.com/estudiomd/backoffice/internal/domain/identity"
)

// UserModel is the persistence model for staff users
type UserModel struct {
	AggregateModel
	Email          string        `gorm:"type:varchar(254);not null;uniqueIndex"`
	FullName       string        `gorm:"type:varchar(150)"`
	Role           identity.Role `gorm:"type:varchar(20);not null;default:'worker'"`
	PasswordHash   string        `gorm:"type:varchar(255);not null"`
	Active         bool          `gorm:"not null;default:true"`
	FailedAttempts int           `gorm:"not null;default:0"`
	LockedUntil    *time.Time
	LastLoginAt    *time.Time
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the persistence model to a domain User
func (m *UserModel) ToDomain() *identity.User {
	return &identity.User{
		BaseAggregateRoot: m.ToAggregateRoot(),
		Email:             m.Email,
		FullName:          m.FullName,
		Role:              m.Role,
		PasswordHash:      m.PasswordHash,
		Active:            m.Active,
		FailedAttempts:    m.FailedAttempts,
		LockedUntil:       m.LockedUntil,
		LastLoginAt:       m.LastLoginAt,
	}
}

// FromDomain populates the persistence model from a domain User
func (m *UserModel) FromDomain(u *identity.User) {
	m.FromDomainAggregateRoot(u.BaseAggregateRoot)
	m.Email = u.Email
	m.FullName = u.FullName
	m.Role = u.Role
	m.PasswordHash = u.PasswordHash
	m.Active = u.Active
	m.FailedAttempts = u.FailedAttempts
	m.LockedUntil = u.LockedUntil
	m.LastLoginAt = u.LastLoginAt
}
