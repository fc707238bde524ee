package models

import (
	"github.com/erp/invoicing/internal/domain/partner"
)

// ClientModel is the persistence model for the Client aggregate root
type ClientModel struct {
	TenantAggregateModel
	CompanyName string `gorm:"type:varchar(200);not null;index"`
	ContactName string `gorm:"type:varchar(100)"`
	Email       string `gorm:"type:varchar(200)"`
	Phone       string `gorm:"type:varchar(50)"`
	Address     string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (ClientModel) TableName() string {
	return "clients"
}

// ToDomain converts the persistence model to a domain Client
func (m *ClientModel) ToDomain() *partner.Client {
	return &partner.Client{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		CompanyName:         m.CompanyName,
		ContactName:         m.ContactName,
		Email:               m.Email,
		Phone:               m.Phone,
		Address:             m.Address,
	}
}

// FromDomain populates the model from a domain Client
func (m *ClientModel) FromDomain(c *partner.Client) {
	m.FromDomainTenantAggregateRoot(c.TenantAggregateRoot)
	m.CompanyName = c.CompanyName
	m.ContactName = c.ContactName
	m.Email = c.Email
	m.Phone = c.Phone
	m.Address = c.Address
}

// ClientModelFromDomain creates a new ClientModel from a domain Client
func ClientModelFromDomain(c *partner.Client) *ClientModel {
	m := &ClientModel{}
	m.FromDomain(c)
	return m
}

// ProfileModel is the persistence model for a staff Profile
type ProfileModel struct {
	TenantAggregateModel
	FullName     string              `gorm:"type:varchar(100);not null"`
	Email        string              `gorm:"type:varchar(200);not null;uniqueIndex"`
	Role         partner.ProfileRole `gorm:"type:varchar(20);not null;default:'staff'"`
	PasswordHash string              `gorm:"type:varchar(100);not null"`
}

// TableName returns the table name for GORM
func (ProfileModel) TableName() string {
	return "profiles"
}

// ToDomain converts the persistence model to a domain Profile
func (m *ProfileModel) ToDomain() *partner.Profile {
	return &partner.Profile{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		FullName:            m.FullName,
		Email:               m.Email,
		Role:                m.Role,
		PasswordHash:        m.PasswordHash,
	}
}

// FromDomain populates the model from a domain Profile
func (m *ProfileModel) FromDomain(p *partner.Profile) {
	m.FromDomainTenantAggregateRoot(p.TenantAggregateRoot)
	m.FullName = p.FullName
	m.Email = p.Email
	m.Role = p.Role
	m.PasswordHash = p.PasswordHash
}

// ProfileModelFromDomain creates a new ProfileModel from a domain Profile
func ProfileModelFromDomain(p *partner.Profile) *ProfileModel {
	m := &ProfileModel{}
	m.FromDomain(p)
	return m
}
