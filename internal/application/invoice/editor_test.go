package invoice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/invoicing/internal/domain/inventory"
	"github.com/erp/invoicing/internal/domain/invoice"
	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testActor() shared.AuthContext {
	return shared.NewAuthContext(uuid.New(), uuid.New(), "tester")
}

func newStockItem(t *testing.T, actor shared.AuthContext, name, price string, available int64) *inventory.InventoryItem {
	t.Helper()
	item, err := inventory.NewInventoryItem(actor, name, decimal.RequireFromString(price), available)
	require.NoError(t, err)
	return item
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestEditor_SteelBeamScenario(t *testing.T) {
	beam := newStockItem(t, testActor(), "Steel Beam", "100.00", 5)

	e := NewEditor()
	e.Open(nil)

	require.NoError(t, e.SelectInventoryItem(0, beam))
	line := e.Line(0)
	assert.Equal(t, int64(1), line.Quantity)
	assert.True(t, line.UnitPrice.Equal(dec("100.00")))
	assert.True(t, line.LineTotal.Equal(dec("100.00")))
	assert.Equal(t, "Steel Beam", line.Description)

	warning := e.EditQuantity(0, 10)
	require.NotNil(t, warning)
	assert.Equal(t, NotificationWarning, warning.Level)
	assert.Contains(t, warning.Message, "Steel Beam")
	assert.Contains(t, warning.Message, "5")
	assert.Equal(t, int64(5), line.Quantity)
	assert.True(t, line.LineTotal.Equal(dec("500.00")))
}

func TestEditor_EditQuantity(t *testing.T) {
	t.Run("within stock is accepted silently", func(t *testing.T) {
		e := NewEditor()
		e.Open(nil)
		require.NoError(t, e.SelectInventoryItem(0, newStockItem(t, testActor(), "Bolt", "2.50", 100)))

		assert.Nil(t, e.EditQuantity(0, 40))
		assert.Equal(t, int64(40), e.Line(0).Quantity)
		assert.True(t, e.Line(0).LineTotal.Equal(dec("100")))
	})

	t.Run("unbound line is never clamped", func(t *testing.T) {
		e := NewEditor()
		e.Open(nil)
		e.EditUnitPrice(0, dec("3"))

		assert.Nil(t, e.EditQuantity(0, 1000))
		assert.True(t, e.Line(0).LineTotal.Equal(dec("3000")))
	})

	t.Run("selection clamps an existing quantity", func(t *testing.T) {
		e := NewEditor()
		e.Open(nil)
		e.EditQuantity(0, 9)
		require.NoError(t, e.SelectInventoryItem(0, newStockItem(t, testActor(), "Pipe", "10", 3)))

		assert.Equal(t, int64(3), e.Line(0).Quantity)
		assert.True(t, e.Line(0).LineTotal.Equal(dec("30")))
	})

	t.Run("out of range index is ignored", func(t *testing.T) {
		e := NewEditor()
		e.Open(nil)
		assert.Nil(t, e.EditQuantity(5, 1))
		assert.Error(t, e.SelectInventoryItem(5, newStockItem(t, testActor(), "Pipe", "10", 3)))
	})
}

func TestEditor_EditUnitPrice(t *testing.T) {
	e := NewEditor()
	e.Open(nil)
	require.NoError(t, e.SelectInventoryItem(0, newStockItem(t, testActor(), "Steel Beam", "100", 5)))
	e.EditQuantity(0, 2)

	e.EditUnitPrice(0, dec("-12.5"))
	assert.True(t, e.Line(0).LineTotal.Equal(dec("-25")))

	e.EditUnitPrice(0, dec("99.99"))
	assert.True(t, e.Line(0).LineTotal.Equal(dec("199.98")))
}

func TestEditor_Totals(t *testing.T) {
	e := NewEditor()
	e.Open(nil)
	e.EditUnitPrice(0, dec("150.00"))
	idx := e.AddLine()
	e.EditUnitPrice(idx, dec("125.00"))
	e.EditQuantity(idx, 2)

	totals := e.Totals()
	assert.True(t, totals.Subtotal.Equal(dec("400.00")))
	assert.True(t, totals.TotalAmount.Equal(dec("400.00")))
	assert.True(t, totals.TaxAmount.IsZero())
}

func TestEditor_SelectInventoryItem_Nil(t *testing.T) {
	e := NewEditor()
	e.Open(nil)

	err := e.SelectInventoryItem(0, nil)
	require.Error(t, err)
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "INVALID_LINE", de.Code)
	assert.False(t, e.Line(0).Bound())
}

func TestEditor_AddRemoveLine(t *testing.T) {
	e := NewEditor()
	e.Open(nil)
	require.Len(t, e.Lines(), 1)

	assert.False(t, e.RemoveLine(0), "last line cannot be removed")
	assert.Len(t, e.Lines(), 1)

	e.AddLine()
	e.EditUnitPrice(1, dec("7"))
	assert.Len(t, e.Lines(), 2)

	assert.True(t, e.RemoveLine(0))
	require.Len(t, e.Lines(), 1)
	assert.True(t, e.Line(0).UnitPrice.Equal(dec("7")))
	assert.False(t, e.RemoveLine(3))
}

func TestEditor_Validate(t *testing.T) {
	actor := testActor()
	ready := func(t *testing.T) *Editor {
		e := NewEditor()
		e.Open(nil)
		e.ClientID = uuid.New()
		require.NoError(t, e.SelectInventoryItem(0, newStockItem(t, actor, "Steel Beam", "100", 5)))
		return e
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, ready(t).Validate())
	})

	t.Run("missing client", func(t *testing.T) {
		e := ready(t)
		e.ClientID = uuid.Nil
		err := e.Validate()
		require.Error(t, err)
		assert.Equal(t, msgSelectClient, err.Error())
	})

	cases := []struct {
		name  string
		apply func(e *Editor)
	}{
		{"unbound line", func(e *Editor) { e.AddLine() }},
		{"empty description", func(e *Editor) { e.EditDescription(0, "  ") }},
		{"zero quantity", func(e *Editor) { e.EditQuantity(0, 0) }},
		{"negative quantity", func(e *Editor) { e.EditQuantity(0, -1) }},
		{"zero price", func(e *Editor) { e.EditUnitPrice(0, decimal.Zero) }},
		{"negative price", func(e *Editor) { e.EditUnitPrice(0, dec("-1")) }},
		{"price rounds to zero", func(e *Editor) { e.EditUnitPrice(0, dec("0.00004")) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := ready(t)
			tc.apply(e)
			err := e.Validate()
			require.Error(t, err)
			var de *shared.DomainError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, "INVALID_LINE_ITEMS", de.Code)
		})
	}

	t.Run("stock violation names the item", func(t *testing.T) {
		e := ready(t)
		e.restoreLine(0, newStockItem(t, actor, "Copper Pipe", "4", 2), "Copper Pipe", 3, dec("4"))
		err := e.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
		assert.Contains(t, err.Error(), "Copper Pipe")
	})

	t.Run("smallest storable price is accepted", func(t *testing.T) {
		e := ready(t)
		e.EditUnitPrice(0, dec("0.00005"))
		assert.NoError(t, e.Validate())
	})

	t.Run("lines for one item share its stock", func(t *testing.T) {
		e := ready(t)
		pipe := newStockItem(t, actor, "Copper Pipe", "4", 5)
		require.NoError(t, e.SelectInventoryItem(0, pipe))
		e.EditQuantity(0, 3)
		e.AddLine()
		require.NoError(t, e.SelectInventoryItem(1, pipe))
		e.EditQuantity(1, 2)
		require.NoError(t, e.Validate())

		e.EditQuantity(1, 3)
		err := e.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
		assert.Contains(t, err.Error(), "Copper Pipe: only 5 available")
	})

	t.Run("edits skip line checks", func(t *testing.T) {
		inv := existingInvoice(t, actor)
		e := NewEditor()
		e.Open(inv)
		assert.NoError(t, e.Validate())
	})
}

func existingInvoice(t *testing.T, actor shared.AuthContext) *invoice.Invoice {
	t.Helper()
	issue := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	inv, err := invoice.NewInvoice(actor, "INV-2024-00007", uuid.New(), issue, issue.AddDate(0, 1, 0))
	require.NoError(t, err)
	_, err = inv.AddItem(uuid.New(), "Steel Beam", 3, dec("100"))
	require.NoError(t, err)
	require.NoError(t, inv.Finalize())
	inv.ClearDomainEvents()
	inv.SetNotes("first batch")
	return inv
}

func TestEditor_OpenPrefilled(t *testing.T) {
	inv := existingInvoice(t, testActor())

	e := NewEditor()
	e.Open(inv)

	assert.Equal(t, EditorStateOpen, e.State())
	assert.True(t, e.IsEditing())
	assert.Equal(t, inv.ClientID, e.ClientID)
	assert.Equal(t, "first batch", e.Notes)
	require.Len(t, e.Lines(), 1)
	placeholder := e.Line(0)
	assert.False(t, placeholder.Bound())
	assert.True(t, placeholder.LineTotal.Equal(dec("300")))
	assert.True(t, e.Totals().TotalAmount.Equal(dec("300")))

	e.Open(nil)
	assert.False(t, e.IsEditing())
	assert.Equal(t, uuid.Nil, e.ClientID)
	require.Len(t, e.Lines(), 1)
	assert.False(t, e.Line(0).Bound())
	assert.True(t, e.Line(0).LineTotal.IsZero())
}

type mockEditorSubmitter struct {
	mock.Mock
}

func (m *mockEditorSubmitter) Create(ctx context.Context, actor shared.AuthContext, req CreateInvoiceRequest) (*InvoiceResponse, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*InvoiceResponse), args.Error(1)
}

func (m *mockEditorSubmitter) UpdateHeader(ctx context.Context, actor shared.AuthContext, id uuid.UUID, req UpdateInvoiceRequest) (*InvoiceResponse, error) {
	args := m.Called(ctx, actor, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*InvoiceResponse), args.Error(1)
}

func TestEditor_Submit(t *testing.T) {
	ctx := context.Background()
	actor := testActor()

	t.Run("closed editor refuses", func(t *testing.T) {
		_, err := NewEditor().Submit(ctx, actor, &mockEditorSubmitter{})
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})

	t.Run("validation failure makes no call and stays open", func(t *testing.T) {
		submitter := &mockEditorSubmitter{}
		e := NewEditor()
		e.Open(nil)

		_, err := e.Submit(ctx, actor, submitter)
		require.Error(t, err)
		assert.Equal(t, EditorStateOpen, e.State())
		require.Len(t, e.Errors(), 1)
		submitter.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("new invoice dispatches create and closes", func(t *testing.T) {
		submitter := &mockEditorSubmitter{}
		beam := newStockItem(t, actor, "Steel Beam", "100", 5)
		e := NewEditor()
		e.Open(nil)
		e.ClientID = uuid.New()
		require.NoError(t, e.SelectInventoryItem(0, beam))
		e.EditQuantity(0, 2)

		submitter.On("Create", ctx, actor, mock.MatchedBy(func(req CreateInvoiceRequest) bool {
			return len(req.Items) == 1 &&
				*req.Items[0].InventoryItemID == beam.ID &&
				req.Items[0].Quantity == 2 &&
				req.Items[0].UnitPrice.Equal(dec("100"))
		})).Return(&InvoiceResponse{InvoiceNumber: "INV-1"}, nil)

		resp, err := e.Submit(ctx, actor, submitter)
		require.NoError(t, err)
		assert.Equal(t, "INV-1", resp.InvoiceNumber)
		assert.Equal(t, EditorStateClosed, e.State())
		submitter.AssertExpectations(t)
	})

	t.Run("edit dispatches header update only", func(t *testing.T) {
		submitter := &mockEditorSubmitter{}
		inv := existingInvoice(t, actor)
		e := NewEditor()
		e.Open(inv)
		e.Notes = "revised"

		submitter.On("UpdateHeader", ctx, actor, inv.ID, mock.MatchedBy(func(req UpdateInvoiceRequest) bool {
			return *req.Notes == "revised" && *req.Version == inv.Version
		})).Return(&InvoiceResponse{ID: inv.ID}, nil)

		_, err := e.Submit(ctx, actor, submitter)
		require.NoError(t, err)
		submitter.AssertExpectations(t)
		submitter.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("remote failure returns to open", func(t *testing.T) {
		submitter := &mockEditorSubmitter{}
		inv := existingInvoice(t, actor)
		e := NewEditor()
		e.Open(inv)
		submitter.On("UpdateHeader", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.New("connection reset"))

		_, err := e.Submit(ctx, actor, submitter)
		require.Error(t, err)
		assert.Equal(t, EditorStateOpen, e.State())
		assert.Equal(t, "connection reset", e.Errors()[0].Message)
	})
}
