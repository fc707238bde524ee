package partner

import (
	"testing"

	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	actor := shared.NewAuthContext(uuid.New(), uuid.New(), "tester")

	t.Run("creates client", func(t *testing.T) {
		c, err := NewClient(actor, " Acme Corp ")
		require.NoError(t, err)
		assert.Equal(t, "Acme Corp", c.CompanyName)
		assert.Equal(t, actor.TenantID, c.TenantID)
		assert.True(t, c.OwnedBy(actor.UserID))
		require.Len(t, c.GetDomainEvents(), 1)
		assert.Equal(t, EventTypeClientCreated, c.GetDomainEvents()[0].EventType())
	})

	t.Run("rejects empty company", func(t *testing.T) {
		_, err := NewClient(actor, "")
		assert.Error(t, err)
	})
}

func TestClient_SetContact(t *testing.T) {
	c, err := NewClient(shared.NewAuthContext(uuid.New(), uuid.New(), ""), "Acme")
	require.NoError(t, err)

	t.Run("normalizes email", func(t *testing.T) {
		require.NoError(t, c.SetContact("Jane", "Jane@Acme.COM", "555-0100", "1 Main St"))
		assert.Equal(t, "jane@acme.com", c.Email)
		assert.Equal(t, "Jane", c.ContactName)
	})

	t.Run("allows empty email", func(t *testing.T) {
		require.NoError(t, c.SetContact("Jane", "", "", ""))
		assert.Empty(t, c.Email)
	})

	t.Run("rejects malformed email", func(t *testing.T) {
		assert.Error(t, c.SetContact("Jane", "not-an-email", "", ""))
	})
}

func TestNewProfile(t *testing.T) {
	tenantID := uuid.New()

	p, err := NewProfile(tenantID, "Jane Doe", "JANE@example.com", ProfileRoleStaff, "hash")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", p.Email)
	require.NotNil(t, p.CreatedBy)
	assert.Equal(t, p.ID, *p.CreatedBy)

	_, err = NewProfile(tenantID, "Jane", "jane@example.com", ProfileRole("owner"), "hash")
	assert.Error(t, err)

	_, err = NewProfile(tenantID, "Jane", "jane@example.com", ProfileRoleAdmin, "")
	assert.Error(t, err)
}
