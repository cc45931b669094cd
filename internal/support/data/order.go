package data

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/liubx8864/supportloop/internal/pkg/database"
	"github.com/liubx8864/supportloop/internal/support/biz"
	"gorm.io/gorm"
)

// ItemsJSON stores order line items as a JSONB string array.
type ItemsJSON []string

func (j *ItemsJSON) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*j = []string{}
		return nil
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return fmt.Errorf("unsupported items source type %T", value)
	}
}

func (j ItemsJSON) Value() (driver.Value, error) {
	if j == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal(j)
}

// OrderPO is the GORM model for the orders table.
type OrderPO struct {
	ID         string    `gorm:"type:uuid;primaryKey"`
	CustomerID string    `gorm:"type:uuid;not null;index:idx_orders_customer_id"`
	Status     string    `gorm:"size:32;not null;index:idx_orders_status"`
	Items      ItemsJSON `gorm:"type:jsonb;not null;default:'[]'"`
	TotalCents int64     `gorm:"not null;default:0"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (OrderPO) TableName() string {
	return "orders"
}

// OrderRepo implements biz.OrderRepo on PostgreSQL.
type OrderRepo struct {
	db *database.DB
}

// NewOrderRepo creates the repository.
func NewOrderRepo(db *database.DB) biz.OrderRepo {
	return &OrderRepo{db: db}
}

// GetByID returns nil without error when the order does not exist.
func (r *OrderRepo) GetByID(ctx context.Context, id string) (*biz.Order, error) {
	var po OrderPO
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&po).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toOrder(&po), nil
}

// ListByCustomer returns the customer's orders, newest first.
func (r *OrderRepo) ListByCustomer(ctx context.Context, customerID string) ([]*biz.Order, error) {
	var pos []OrderPO
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&pos).Error
	if err != nil {
		return nil, err
	}

	orders := make([]*biz.Order, 0, len(pos))
	for i := range pos {
		orders = append(orders, toOrder(&pos[i]))
	}
	return orders, nil
}

// CancelIfProcessing performs the guarded transition in one statement. The
// WHERE clause carries the eligibility check, so two concurrent cancels
// cannot both succeed.
func (r *OrderRepo) CancelIfProcessing(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&OrderPO{}).
		Where("id = ? AND status = ?", id, biz.OrderStatusProcessing).
		Updates(map[string]interface{}{
			"status":     biz.OrderStatusCancelled,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func toOrder(po *OrderPO) *biz.Order {
	return &biz.Order{
		ID:         po.ID,
		CustomerID: po.CustomerID,
		Status:     po.Status,
		Items:      po.Items,
		TotalCents: po.TotalCents,
		CreatedAt:  po.CreatedAt,
		UpdatedAt:  po.UpdatedAt,
	}
}
