package data

import (
	chatmodels "github.com/liubx8864/supportloop/internal/chat/models"
	"github.com/liubx8864/supportloop/internal/conf"
	"github.com/liubx8864/supportloop/internal/pkg/database"
	"github.com/liubx8864/supportloop/internal/pkg/logger"
	pkgredis "github.com/liubx8864/supportloop/internal/pkg/redis"
	supportdata "github.com/liubx8864/supportloop/internal/support/data"
)

// Data bundles the shared infrastructure clients.
type Data struct {
	DB    *database.DB
	Redis *pkgredis.Client
}

// NewData connects to PostgreSQL and Redis and runs migrations. The returned
// cleanup closes both.
func NewData(config *conf.Config, log *logger.Logger) (*Data, func(), error) {
	db, err := database.New(&config.Database, log)
	if err != nil {
		return nil, nil, err
	}

	if err := db.AutoMigrate(
		&chatmodels.ConversationPO{},
		&chatmodels.MessagePO{},
		&supportdata.CustomerPO{},
		&supportdata.OrderPO{},
	); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	redisClient, err := pkgredis.New(&config.Redis, log)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	cleanup := func() {
		log.Info("cleaning up data resources")
		_ = redisClient.Close()
		_ = db.Close()
	}

	return &Data{DB: db, Redis: redisClient}, cleanup, nil
}
