package biz

import (
	"context"
	"fmt"
	"time"
)

// Order status values. Only processing orders may be cancelled.
const (
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// IdentifierField selects which customer attribute to look up by.
type IdentifierField string

const (
	IdentifierEmail    IdentifierField = "email"
	IdentifierPhone    IdentifierField = "phone"
	IdentifierUsername IdentifierField = "username"
)

// Customer is a support-facing customer record.
type Customer struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
}

// Order is one customer order.
type Order struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customer_id"`
	Status     string    `json:"status"`
	Items      []string  `json:"items"`
	TotalCents int64     `json:"total_cents"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CancelResult reports the outcome of a cancellation attempt. A refusal is an
// ordinary result, not an error: the model relays the reason to the user.
type CancelResult struct {
	OrderID   string `json:"order_id"`
	Cancelled bool   `json:"cancelled"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
}

// CustomerRepo is the customer persistence interface.
type CustomerRepo interface {
	// FindBy returns every customer matching the identifier value.
	FindBy(ctx context.Context, field IdentifierField, value string) ([]*Customer, error)
}

// OrderRepo is the order persistence interface.
type OrderRepo interface {
	// GetByID returns nil without error when no order exists.
	GetByID(ctx context.Context, id string) (*Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]*Order, error)
	// CancelIfProcessing flips status to cancelled in a single conditional
	// update guarded by status = processing, and reports whether a row changed.
	CancelIfProcessing(ctx context.Context, id string) (bool, error)
}

// SupportUseCase exposes the operations the tool executor dispatches to.
type SupportUseCase struct {
	customers CustomerRepo
	orders    OrderRepo
}

// NewSupportUseCase creates the use case.
func NewSupportUseCase(customers CustomerRepo, orders OrderRepo) *SupportUseCase {
	return &SupportUseCase{customers: customers, orders: orders}
}

// LookupCustomer finds a customer by exactly one identifier. No match and an
// ambiguous match (multiple rows) both return nil without error.
func (uc *SupportUseCase) LookupCustomer(ctx context.Context, field IdentifierField, value string) (*Customer, error) {
	switch field {
	case IdentifierEmail, IdentifierPhone, IdentifierUsername:
	default:
		return nil, fmt.Errorf("unsupported identifier field: %q", field)
	}
	if value == "" {
		return nil, fmt.Errorf("identifier value is required")
	}

	matches, err := uc.customers.FindBy(ctx, field, value)
	if err != nil {
		return nil, fmt.Errorf("failed to look up customer: %w", err)
	}

	if len(matches) != 1 {
		return nil, nil
	}
	return matches[0], nil
}

// GetOrder returns the order or nil when absent.
func (uc *SupportUseCase) GetOrder(ctx context.Context, id string) (*Order, error) {
	if id == "" {
		return nil, fmt.Errorf("order id is required")
	}

	order, err := uc.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

// ListOrders returns every order for a customer. An empty slice is a valid
// result.
func (uc *SupportUseCase) ListOrders(ctx context.Context, customerID string) ([]*Order, error) {
	if customerID == "" {
		return nil, fmt.Errorf("customer id is required")
	}

	orders, err := uc.orders.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// CancelOrder cancels a processing order. The status guard travels in the
// repo's conditional update, so concurrent cancellations serialize on the
// database row rather than on a read-then-write in application code.
func (uc *SupportUseCase) CancelOrder(ctx context.Context, id string) (*CancelResult, error) {
	if id == "" {
		return nil, fmt.Errorf("order id is required")
	}

	changed, err := uc.orders.CancelIfProcessing(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}

	if changed {
		return &CancelResult{
			OrderID:   id,
			Cancelled: true,
			Status:    OrderStatusCancelled,
		}, nil
	}

	order, err := uc.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read order after refused cancel: %w", err)
	}
	if order == nil {
		return &CancelResult{
			OrderID: id,
			Reason:  "order not found",
		}, nil
	}

	return &CancelResult{
		OrderID: id,
		Status:  order.Status,
		Reason:  fmt.Sprintf("only processing orders can be cancelled; this order is %s", order.Status),
	}, nil
}
