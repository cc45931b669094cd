package biz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCustomerRepo struct {
	matches []*Customer
	err     error
}

func (r *stubCustomerRepo) FindBy(context.Context, IdentifierField, string) ([]*Customer, error) {
	return r.matches, r.err
}

type stubOrderRepo struct {
	order     *Order
	orders    []*Order
	cancelled bool
	err       error
}

func (r *stubOrderRepo) GetByID(context.Context, string) (*Order, error) {
	return r.order, r.err
}

func (r *stubOrderRepo) ListByCustomer(context.Context, string) ([]*Order, error) {
	return r.orders, r.err
}

func (r *stubOrderRepo) CancelIfProcessing(context.Context, string) (bool, error) {
	return r.cancelled, r.err
}

func TestLookupCustomer(t *testing.T) {
	alice := &Customer{ID: "c-1", Email: "alice@example.com"}

	tests := []struct {
		name    string
		field   IdentifierField
		value   string
		matches []*Customer
		repoErr error
		want    *Customer
		wantErr bool
	}{
		{
			name:    "single match",
			field:   IdentifierEmail,
			value:   "alice@example.com",
			matches: []*Customer{alice},
			want:    alice,
		},
		{
			name:  "no match is not an error",
			field: IdentifierEmail,
			value: "nobody@example.com",
		},
		{
			name:    "ambiguous match is treated as not found",
			field:   IdentifierPhone,
			value:   "+1-555-0100",
			matches: []*Customer{alice, {ID: "c-2"}},
		},
		{
			name:    "unsupported field",
			field:   "ssn",
			value:   "x",
			wantErr: true,
		},
		{
			name:    "empty value",
			field:   IdentifierUsername,
			wantErr: true,
		},
		{
			name:    "repo failure propagates",
			field:   IdentifierEmail,
			value:   "alice@example.com",
			repoErr: errors.New("db down"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := NewSupportUseCase(
				&stubCustomerRepo{matches: tt.matches, err: tt.repoErr},
				&stubOrderRepo{},
			)

			got, err := uc.LookupCustomer(context.Background(), tt.field, tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetOrder(t *testing.T) {
	order := &Order{ID: "o-1", Status: OrderStatusShipped}
	uc := NewSupportUseCase(&stubCustomerRepo{}, &stubOrderRepo{order: order})

	got, err := uc.GetOrder(context.Background(), "o-1")
	require.NoError(t, err)
	assert.Equal(t, order, got)

	_, err = uc.GetOrder(context.Background(), "")
	assert.Error(t, err)

	uc = NewSupportUseCase(&stubCustomerRepo{}, &stubOrderRepo{})
	got, err = uc.GetOrder(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got, "absent order returns nil without error")
}

func TestListOrders(t *testing.T) {
	uc := NewSupportUseCase(&stubCustomerRepo{}, &stubOrderRepo{orders: []*Order{{ID: "o-1"}}})

	orders, err := uc.ListOrders(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	_, err = uc.ListOrders(context.Background(), "")
	assert.Error(t, err)
}

func TestCancelOrder(t *testing.T) {
	t.Run("processing order is cancelled", func(t *testing.T) {
		uc := NewSupportUseCase(&stubCustomerRepo{}, &stubOrderRepo{cancelled: true})

		result, err := uc.CancelOrder(context.Background(), "o-1")
		require.NoError(t, err)
		assert.True(t, result.Cancelled)
		assert.Equal(t, OrderStatusCancelled, result.Status)
		assert.Empty(t, result.Reason)
	})

	t.Run("non-processing order is refused with its current status", func(t *testing.T) {
		uc := NewSupportUseCase(&stubCustomerRepo{}, &stubOrderRepo{
			order: &Order{ID: "o-1", Status: OrderStatusDelivered},
		})

		result, err := uc.CancelOrder(context.Background(), "o-1")
		require.NoError(t, err, "a refusal is a result, not an error")
		assert.False(t, result.Cancelled)
		assert.Equal(t, OrderStatusDelivered, result.Status)
		assert.Contains(t, result.Reason, "only processing orders")
	})

	t.Run("missing order", func(t *testing.T) {
		uc := NewSupportUseCase(&stubCustomerRepo{}, &stubOrderRepo{})

		result, err := uc.CancelOrder(context.Background(), "missing")
		require.NoError(t, err)
		assert.False(t, result.Cancelled)
		assert.Contains(t, result.Reason, "not found")
	})

	t.Run("repo failure propagates", func(t *testing.T) {
		uc := NewSupportUseCase(&stubCustomerRepo{}, &stubOrderRepo{err: errors.New("db down")})

		_, err := uc.CancelOrder(context.Background(), "o-1")
		assert.Error(t, err)
	})
}
