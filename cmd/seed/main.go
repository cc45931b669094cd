package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/liubx8864/supportloop/internal/auth"
	"github.com/liubx8864/supportloop/internal/conf"
	"github.com/liubx8864/supportloop/internal/data"
	"github.com/liubx8864/supportloop/internal/pkg/logger"
	supportbiz "github.com/liubx8864/supportloop/internal/support/biz"
	supportdata "github.com/liubx8864/supportloop/internal/support/data"
	"go.uber.org/zap"
)

// Seeds demo customers and orders for local development and prints a dev
// access token for trying the API.

var configFile = flag.String("config", "config.yaml", "config file path")

func main() {
	flag.Parse()

	config, err := conf.LoadConfig(*configFile)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(&config.Log)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	d, cleanup, err := data.NewData(config, log)
	if err != nil {
		log.Fatal("failed to initialize data layer", zap.Error(err))
	}
	defer cleanup()

	customerID := uuid.New().String()
	customer := supportdata.CustomerPO{
		ID:        customerID,
		Email:     "kaya.nakamura@example.com",
		Phone:     "+1-555-0142",
		Username:  "kaya_n",
		FirstName: "Kaya",
		LastName:  "Nakamura",
		CreatedAt: time.Now().UTC(),
	}

	orders := []supportdata.OrderPO{
		{
			ID:         "9f0e8d84-3b51-4f7e-9a34-0d6f2f9a1c01",
			CustomerID: customerID,
			Status:     supportbiz.OrderStatusProcessing,
			Items:      supportdata.ItemsJSON{"wireless earbuds", "charging case"},
			TotalCents: 12999,
			CreatedAt:  time.Now().UTC().Add(-24 * time.Hour),
			UpdatedAt:  time.Now().UTC().Add(-24 * time.Hour),
		},
		{
			ID:         "2c4b7a19-6e0d-45c2-8b77-5a9e3d1f4b02",
			CustomerID: customerID,
			Status:     supportbiz.OrderStatusShipped,
			Items:      supportdata.ItemsJSON{"mechanical keyboard"},
			TotalCents: 8950,
			CreatedAt:  time.Now().UTC().Add(-72 * time.Hour),
			UpdatedAt:  time.Now().UTC().Add(-48 * time.Hour),
		},
		{
			ID:         "7d1a5e33-90cf-4b28-b1d4-8c2f6e0a9d03",
			CustomerID: customerID,
			Status:     supportbiz.OrderStatusDelivered,
			Items:      supportdata.ItemsJSON{"usb-c cable", "laptop stand"},
			TotalCents: 4500,
			CreatedAt:  time.Now().UTC().Add(-240 * time.Hour),
			UpdatedAt:  time.Now().UTC().Add(-200 * time.Hour),
		},
	}

	if err := d.DB.Create(&customer).Error; err != nil {
		log.Fatal("failed to seed customer", zap.Error(err))
	}
	for i := range orders {
		if err := d.DB.Create(&orders[i]).Error; err != nil {
			log.Fatal("failed to seed order", zap.Error(err))
		}
	}

	log.Info("seeded demo data",
		zap.String("customer_id", customerID),
		zap.Int("orders", len(orders)),
	)

	ownerID := uuid.New().String()
	tm := auth.NewTokenManager(config.Auth.JWTSecret, config.Auth.JWTIssuer)
	token, err := tm.Generate(ownerID, 24*time.Hour)
	if err != nil {
		log.Fatal("failed to generate dev token", zap.Error(err))
	}

	fmt.Printf("owner_id: %s\naccess_token: %s\n", ownerID, token)
}
