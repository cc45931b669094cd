package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/liubx8864/supportloop/internal/llm"
	"github.com/liubx8864/supportloop/internal/support/biz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCustomerRepo struct {
	customers []*biz.Customer
}

func (r *fakeCustomerRepo) FindBy(_ context.Context, field biz.IdentifierField, value string) ([]*biz.Customer, error) {
	var matches []*biz.Customer
	for _, c := range r.customers {
		switch field {
		case biz.IdentifierEmail:
			if c.Email == value {
				matches = append(matches, c)
			}
		case biz.IdentifierPhone:
			if c.Phone == value {
				matches = append(matches, c)
			}
		case biz.IdentifierUsername:
			if c.Username == value {
				matches = append(matches, c)
			}
		}
	}
	return matches, nil
}

type fakeOrderRepo struct {
	orders map[string]*biz.Order
}

func (r *fakeOrderRepo) GetByID(_ context.Context, id string) (*biz.Order, error) {
	return r.orders[id], nil
}

func (r *fakeOrderRepo) ListByCustomer(_ context.Context, customerID string) ([]*biz.Order, error) {
	var out []*biz.Order
	for _, o := range r.orders {
		if o.CustomerID == customerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) CancelIfProcessing(_ context.Context, id string) (bool, error) {
	o, ok := r.orders[id]
	if !ok || o.Status != biz.OrderStatusProcessing {
		return false, nil
	}
	o.Status = biz.OrderStatusCancelled
	return true, nil
}

func supportExecutor(t *testing.T) (*Executor, *fakeOrderRepo) {
	t.Helper()

	customers := &fakeCustomerRepo{customers: []*biz.Customer{
		{ID: "c-1", Email: "kaya@example.com", Username: "kaya"},
	}}
	orders := &fakeOrderRepo{orders: map[string]*biz.Order{
		"o-1": {ID: "o-1", CustomerID: "c-1", Status: biz.OrderStatusProcessing},
		"o-2": {ID: "o-2", CustomerID: "c-1", Status: biz.OrderStatusShipped},
	}}

	registry := NewRegistry()
	require.NoError(t, RegisterSupportTools(registry, biz.NewSupportUseCase(customers, orders)))
	return NewExecutor(registry, testLogger()), orders
}

func execute(t *testing.T, executor *Executor, name string, input map[string]interface{}) map[string]interface{} {
	t.Helper()

	result, err := executor.Execute(context.Background(), &llm.ToolUseBlock{
		ID:    "toolu_test",
		Name:  name,
		Input: input,
	})
	require.NoError(t, err)

	res := result.ToolResult()
	require.NotNil(t, res)
	require.False(t, res.IsError, "unexpected error result: %s", res.Content)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(res.Content), &payload))
	return payload
}

func TestSupportToolDefinitions(t *testing.T) {
	registry := NewRegistry()
	customers := &fakeCustomerRepo{}
	orders := &fakeOrderRepo{orders: map[string]*biz.Order{}}
	require.NoError(t, RegisterSupportTools(registry, biz.NewSupportUseCase(customers, orders)))

	defs := registry.Definitions()
	names := make([]string, 0, len(defs))
	for _, def := range defs {
		names = append(names, def.Name)
		assert.NotEmpty(t, def.Description)
		assert.Equal(t, "object", def.InputSchema["type"])
	}
	assert.Equal(t, []string{ToolCancelOrder, ToolGetOrder, ToolListOrders, ToolLookupCustomer}, names)
}

func TestLookupCustomerTool(t *testing.T) {
	executor, _ := supportExecutor(t)

	payload := execute(t, executor, ToolLookupCustomer, map[string]interface{}{
		"identifier_type": "email",
		"value":           "kaya@example.com",
	})
	assert.Equal(t, true, payload["found"])

	payload = execute(t, executor, ToolLookupCustomer, map[string]interface{}{
		"identifier_type": "email",
		"value":           "nobody@example.com",
	})
	assert.Equal(t, false, payload["found"])
	assert.Contains(t, payload["message"], "no customer found")
}

func TestGetOrderTool(t *testing.T) {
	executor, _ := supportExecutor(t)

	payload := execute(t, executor, ToolGetOrder, map[string]interface{}{"order_id": "o-1"})
	assert.Equal(t, true, payload["found"])

	payload = execute(t, executor, ToolGetOrder, map[string]interface{}{"order_id": "missing"})
	assert.Equal(t, false, payload["found"])
}

func TestListOrdersTool(t *testing.T) {
	executor, _ := supportExecutor(t)

	payload := execute(t, executor, ToolListOrders, map[string]interface{}{"customer_id": "c-1"})
	assert.Equal(t, float64(2), payload["count"])

	payload = execute(t, executor, ToolListOrders, map[string]interface{}{"customer_id": "c-none"})
	assert.Equal(t, float64(0), payload["count"])
}

func TestCancelOrderTool(t *testing.T) {
	executor, orders := supportExecutor(t)

	payload := execute(t, executor, ToolCancelOrder, map[string]interface{}{"order_id": "o-1"})
	assert.Equal(t, true, payload["cancelled"])
	assert.Equal(t, biz.OrderStatusCancelled, orders.orders["o-1"].Status)

	// A shipped order is refused with a reason, not an error.
	payload = execute(t, executor, ToolCancelOrder, map[string]interface{}{"order_id": "o-2"})
	assert.NotEqual(t, true, payload["cancelled"])
	assert.Contains(t, payload["reason"], "only processing orders")
	assert.Equal(t, biz.OrderStatusShipped, orders.orders["o-2"].Status)

	payload = execute(t, executor, ToolCancelOrder, map[string]interface{}{"order_id": "missing"})
	assert.Contains(t, payload["reason"], "not found")
}
