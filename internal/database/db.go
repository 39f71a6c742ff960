// internal/database/db.go
package database

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"telegram-community-bot/internal/models"
)

type DB struct {
	*gorm.DB
}

func NewDB(host, user, password, dbname string, port int) (*DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
		host, user, password, dbname, port)

	gormDB, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := Migrate(gormDB); err != nil {
		return nil, err
	}

	return &DB{gormDB}, nil
}

// Migrate creates or updates the schema for every model the bot owns.
// Shared with the test helpers, which run it against in-memory SQLite.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Member{},
		&models.BackendQuestion{},
		&models.FrontendQuestion{},
	)
}

// Session returns a fresh unit-of-work bound to ctx. Every inbound
// update gets its own session; sessions are never shared across
// concurrent events.
func (db *DB) Session(ctx context.Context) *gorm.DB {
	return db.DB.WithContext(ctx).Session(&gorm.Session{NewDB: true})
}
