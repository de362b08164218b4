package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"escrow-service/internal/config"
	"escrow-service/internal/logger"
	"escrow-service/internal/models"
)

var DB *gorm.DB

// Open builds the gorm dialector for the configured driver. Gorm's own logging
// goes to log; a nil logger discards it.
func Open(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			cfg.Host, cfg.User, cfg.Password, cfg.Name, cfg.Port)
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(cfg.Path)
	case "", "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name)
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.NewGormLogger(log),
	})
	if err != nil {
		return nil, err
	}

	if cfg.Driver == "sqlite" {
		// sqlite allows one writer; a single connection keeps transactions serialized.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// Connect opens the database and stores it in DB.
func Connect(cfg config.DatabaseConfig, log *zap.Logger) error {
	db, err := Open(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	DB = db
	log.Info("Database connection established", zap.String("driver", cfg.Driver))
	return nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Gig{},
		&models.GigApplication{},
		&models.EscrowAccount{},
		&models.PaymentIntent{},
		&models.WithdrawalRequest{},
		&models.PaymentHistory{},
		&models.FeeConfig{},
		&models.CallbackLog{},
		&models.ArchivedCallbackLog{},
		&models.Bank{},
	)
}

// Seed inserts the bank list and a default fee configuration when missing.
func Seed(db *gorm.DB) error {
	for _, b := range models.DefaultBanks() {
		bank := b
		if err := db.Where(models.Bank{Slug: bank.Slug}).FirstOrCreate(&bank).Error; err != nil {
			return err
		}
	}

	var count int64
	if err := db.Model(&models.FeeConfig{}).Where("is_active = ?", true).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		cfg := models.DefaultFeeConfig()
		if err := db.Create(&cfg).Error; err != nil {
			return err
		}
	}
	return nil
}
