package partner

import (
	"net/mail"
	"strings"

	"github.com/erp/invoicing/internal/domain/shared"
)

const AggregateTypeClient = "Client"

const EventTypeClientCreated = "ClientCreated"

// Client is a billed company. One client has many invoices.
type Client struct {
	shared.TenantAggregateRoot
	CompanyName string
	ContactName string
	Email       string
	Phone       string
	Address     string
}

// NewClient creates a client; only the company name is required
func NewClient(actor shared.AuthContext, companyName string) (*Client, error) {
	companyName = strings.TrimSpace(companyName)
	if companyName == "" {
		return nil, shared.NewDomainError("INVALID_COMPANY_NAME", "Company name cannot be empty")
	}
	if len(companyName) > 200 {
		return nil, shared.NewDomainError("INVALID_COMPANY_NAME", "Company name cannot exceed 200 characters")
	}

	c := &Client{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(actor),
		CompanyName:         companyName,
	}
	c.AddDomainEvent(&ClientCreatedEvent{
		EventHeader: shared.NewEventHeader(EventTypeClientCreated, AggregateTypeClient, c.ID, c.TenantID),
		CompanyName: companyName,
	})
	return c, nil
}

// SetContact sets contact details. Email is optional but must be valid when present.
func (c *Client) SetContact(contactName, email, phone, address string) error {
	email = strings.TrimSpace(email)
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
		}
	}
	c.ContactName = strings.TrimSpace(contactName)
	c.Email = strings.ToLower(email)
	c.Phone = strings.TrimSpace(phone)
	c.Address = strings.TrimSpace(address)
	c.Touch()
	return nil
}

// ClientCreatedEvent is raised when a client is added
type ClientCreatedEvent struct {
	shared.EventHeader
	CompanyName string `json:"company_name"`
}
