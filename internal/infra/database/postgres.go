package database

import (
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/totegamma/concrnt-adz/internal/infra/database/models"
)

func newGormLogger() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			SlowThreshold:             300 * time.Millisecond, // Slow SQL threshold
			LogLevel:                  logger.Warn,            // Log level
			IgnoreRecordNotFoundError: true,                   // Ignore ErrRecordNotFound error for logger
			Colorful:                  true,                   // Enable color
		},
	)
}

func NewPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         newGormLogger(),
	})
	return db, err
}

// NewSqlite opens a SQLite database. ":memory:" gives a private in-memory database.
func NewSqlite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		TranslateError: true,
		Logger:         newGormLogger(),
	})
	if err != nil {
		return nil, err
	}

	// a single connection keeps ":memory:" databases shared and writes serialized
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Ad{},
		&models.Comment{},
		&models.TagEntry{},
		&models.Counter{},
		&models.Event{},
	)
	if err != nil {
		return err
	}

	// the counter row must exist so creates can lock it
	return db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Counter{Name: models.AdCounterName, Value: 0}).Error
}
