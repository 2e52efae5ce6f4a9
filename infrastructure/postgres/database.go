package postgres

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"criminal-registry/domain/models"
)

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	LogLevel logger.LogLevel
}

// DSN builds the libpq connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.Host, c.User, c.Password, c.DBName, c.Port, c.SSLMode)
}

func NewDatabase(config DatabaseConfig) (*gorm.DB, error) {
	logLevel := config.LogLevel
	if logLevel == 0 {
		logLevel = logger.Warn
	}

	db, err := gorm.Open(postgres.Open(config.DSN()), &gorm.Config{
		Logger:  logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

func Migrate(db *gorm.DB) error {
	// pgvector for stored face embeddings
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("failed to enable pgvector extension: %w", err)
	}

	// trigram indexes serve the ILIKE '%text%' search
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS pg_trgm").Error; err != nil {
		return fmt.Errorf("failed to enable pg_trgm extension: %w", err)
	}

	if err := db.AutoMigrate(&models.Record{}); err != nil {
		return fmt.Errorf("failed to run auto migrations: %w", err)
	}

	migrations := []string{
		`CREATE INDEX IF NOT EXISTS idx_criminal_records_name_trgm
			ON criminal_records USING gin (name gin_trgm_ops)`,
		`CREATE INDEX IF NOT EXISTS idx_criminal_records_crime_type_trgm
			ON criminal_records USING gin (crime_type gin_trgm_ops)`,
		`CREATE INDEX IF NOT EXISTS idx_criminal_records_address_trgm
			ON criminal_records USING gin (address gin_trgm_ops)`,
		// Backfill worker looks for records with an image but no embedding
		`CREATE INDEX IF NOT EXISTS idx_criminal_records_missing_embedding
			ON criminal_records(created_at) WHERE embedding IS NULL AND image_ref IS NOT NULL`,
	}

	for _, sql := range migrations {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("migration failed: %s, error: %w", sql[:50], err)
		}
	}

	return nil
}
