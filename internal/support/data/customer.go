package data

import (
	"context"
	"fmt"
	"time"

	"github.com/liubx8864/supportloop/internal/pkg/database"
	"github.com/liubx8864/supportloop/internal/support/biz"
)

// CustomerPO is the GORM model for the customers table.
type CustomerPO struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	Email     string    `gorm:"size:255;not null;index:idx_customers_email"`
	Phone     string    `gorm:"size:32;index:idx_customers_phone"`
	Username  string    `gorm:"size:64;index:idx_customers_username"`
	FirstName string    `gorm:"size:128"`
	LastName  string    `gorm:"size:128"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (CustomerPO) TableName() string {
	return "customers"
}

// CustomerRepo implements biz.CustomerRepo on PostgreSQL.
type CustomerRepo struct {
	db *database.DB
}

// NewCustomerRepo creates the repository.
func NewCustomerRepo(db *database.DB) biz.CustomerRepo {
	return &CustomerRepo{db: db}
}

// FindBy returns all customers whose identifier field equals value. The
// column is selected from a fixed set; the value is always bound as a
// parameter.
func (r *CustomerRepo) FindBy(ctx context.Context, field biz.IdentifierField, value string) ([]*biz.Customer, error) {
	var column string
	switch field {
	case biz.IdentifierEmail:
		column = "email"
	case biz.IdentifierPhone:
		column = "phone"
	case biz.IdentifierUsername:
		column = "username"
	default:
		return nil, fmt.Errorf("unsupported identifier field: %q", field)
	}

	var pos []CustomerPO
	err := r.db.WithContext(ctx).
		Where(column+" = ?", value).
		Limit(10).
		Find(&pos).Error
	if err != nil {
		return nil, err
	}

	customers := make([]*biz.Customer, 0, len(pos))
	for i := range pos {
		customers = append(customers, toCustomer(&pos[i]))
	}
	return customers, nil
}

func toCustomer(po *CustomerPO) *biz.Customer {
	return &biz.Customer{
		ID:        po.ID,
		Email:     po.Email,
		Phone:     po.Phone,
		Username:  po.Username,
		FirstName: po.FirstName,
		LastName:  po.LastName,
		CreatedAt: po.CreatedAt,
	}
}
