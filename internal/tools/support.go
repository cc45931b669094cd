package tools

import (
	"context"
	"fmt"

	"github.com/liubx8864/supportloop/internal/llm"
	"github.com/liubx8864/supportloop/internal/support/biz"
)

// Tool names declared to the model.
const (
	ToolLookupCustomer = "lookup_customer"
	ToolGetOrder       = "get_order"
	ToolListOrders     = "list_orders"
	ToolCancelOrder    = "cancel_order"
)

// notFound is the payload returned when a lookup matches nothing. The model
// explains it to the user; it is never an error.
type notFound struct {
	Found   bool   `json:"found"`
	Message string `json:"message"`
}

// RegisterSupportTools wires the support use case into a registry as the
// four customer-service tools.
func RegisterSupportTools(registry *Registry, uc *biz.SupportUseCase) error {
	defs := []struct {
		def     llm.Tool
		handler Handler
	}{
		{
			def: llm.Tool{
				Name:        ToolLookupCustomer,
				Description: "Look up a customer by email, phone, or username. Returns the customer record, or found=false when there is no single match.",
				InputSchema: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"identifier_type": map[string]interface{}{
							"type":        "string",
							"enum":        []interface{}{"email", "phone", "username"},
							"description": "Which identifier is being provided.",
						},
						"value": map[string]interface{}{
							"type":        "string",
							"description": "The identifier value to search for.",
						},
					},
					"required": []interface{}{"identifier_type", "value"},
				},
			},
			handler: lookupCustomerHandler(uc),
		},
		{
			def: llm.Tool{
				Name:        ToolGetOrder,
				Description: "Fetch a single order by its order id.",
				InputSchema: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"order_id": map[string]interface{}{
							"type":        "string",
							"description": "The order id to fetch.",
						},
					},
					"required": []interface{}{"order_id"},
				},
			},
			handler: getOrderHandler(uc),
		},
		{
			def: llm.Tool{
				Name:        ToolListOrders,
				Description: "List all orders belonging to a customer, newest first. An empty list means the customer has no orders.",
				InputSchema: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"customer_id": map[string]interface{}{
							"type":        "string",
							"description": "The customer id whose orders to list.",
						},
					},
					"required": []interface{}{"customer_id"},
				},
			},
			handler: listOrdersHandler(uc),
		},
		{
			def: llm.Tool{
				Name:        ToolCancelOrder,
				Description: "Cancel an order. Only orders still in processing status can be cancelled; otherwise the result explains why the cancellation was refused.",
				InputSchema: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"order_id": map[string]interface{}{
							"type":        "string",
							"description": "The order id to cancel.",
						},
					},
					"required": []interface{}{"order_id"},
				},
			},
			handler: cancelOrderHandler(uc),
		},
	}

	for _, entry := range defs {
		if err := registry.Register(entry.def, entry.handler); err != nil {
			return err
		}
	}
	return nil
}

func lookupCustomerHandler(uc *biz.SupportUseCase) Handler {
	return func(ctx context.Context, input map[string]interface{}) (interface{}, error) {
		field, _ := input["identifier_type"].(string)
		value, _ := input["value"].(string)

		customer, err := uc.LookupCustomer(ctx, biz.IdentifierField(field), value)
		if err != nil {
			return nil, err
		}
		if customer == nil {
			return notFound{Message: fmt.Sprintf("no customer found for %s %q", field, value)}, nil
		}

		return map[string]interface{}{
			"found":    true,
			"customer": customer,
		}, nil
	}
}

func getOrderHandler(uc *biz.SupportUseCase) Handler {
	return func(ctx context.Context, input map[string]interface{}) (interface{}, error) {
		orderID, _ := input["order_id"].(string)

		order, err := uc.GetOrder(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if order == nil {
			return notFound{Message: fmt.Sprintf("no order found with id %q", orderID)}, nil
		}

		return map[string]interface{}{
			"found": true,
			"order": order,
		}, nil
	}
}

func listOrdersHandler(uc *biz.SupportUseCase) Handler {
	return func(ctx context.Context, input map[string]interface{}) (interface{}, error) {
		customerID, _ := input["customer_id"].(string)

		orders, err := uc.ListOrders(ctx, customerID)
		if err != nil {
			return nil, err
		}

		return map[string]interface{}{
			"orders": orders,
			"count":  len(orders),
		}, nil
	}
}

func cancelOrderHandler(uc *biz.SupportUseCase) Handler {
	return func(ctx context.Context, input map[string]interface{}) (interface{}, error) {
		orderID, _ := input["order_id"].(string)
		return uc.CancelOrder(ctx, orderID)
	}
}
