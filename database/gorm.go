package database

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/elms-api/config"
	"github.com/sahilchouksey/elms-api/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type GORMStore struct {
	db      *gorm.DB
	reports *ReportStore
}

// StartGORM initializes a GORM connection to PostgreSQL
func StartGORM() (*GORMStore, error) {
	getEnv, err := config.Get()
	if err != nil {
		return nil, err
	}

	// Build DSN (Data Source Name)
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		getEnv.DB_HOST,
		getEnv.DB_USER_NAME,
		getEnv.DB_PASSWORD,
		getEnv.DB_NAME,
		getEnv.DB_PORT,
		getEnv.DB_SSL_MODE,
	)

	// Configure GORM logger
	logMode := logger.Info
	if getEnv.IsProduction() {
		logMode = logger.Error
	}

	return OpenGORM(dsn, logMode)
}

// OpenGORM connects with an explicit DSN. Constraint violations are translated
// into gorm.ErrDuplicatedKey / gorm.ErrForeignKeyViolated.
func OpenGORM(dsn string, logMode logger.LogLevel) (*GORMStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                 logger.Default.LogMode(logMode),
		SkipDefaultTransaction: false,
		TranslateError:         true,
	})
	if err != nil {
		log.Errorf("Unable to connect to PostgreSQL with GORM: %v", err)
		return nil, err
	}

	// Get underlying *sql.DB to configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// Connection pool settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Info("Successfully connected to PostgreSQL Database with GORM.")

	return &GORMStore{db: db, reports: NewReportStore(sqlDB)}, nil
}

// Init runs the AutoMigrate to create/update tables and then applies
// the constraints gorm tags cannot express
func (s *GORMStore) Init() error {
	log.Info("Running GORM AutoMigrate for all models...")

	err := s.db.AutoMigrate(
		// Identity
		&model.User{},
		&model.StudentProfile{},
		&model.TeacherProfile{},
		&model.AdminProfile{},

		// Catalog
		&model.Category{},
		&model.Level{},
		&model.Language{},
		&model.Course{},
		&model.Lesson{},
		&model.Video{},

		// Payments & earnings
		&model.Payment{},
		&model.Enrollment{},
		&model.TeacherEarning{},
		&model.AdminEarning{},

		// Applications
		&model.TeacherApplication{},

		// Token blacklist
		&model.JWTTokenBlacklist{},

		// Audit & logging models
		&model.CronJobLog{},
		&model.AdminAuditLog{},
	)
	if err != nil {
		log.Errorf("Error running AutoMigrate: %v", err)
		return err
	}

	if err := applyConstraints(s.db); err != nil {
		log.Errorf("Error applying storage constraints: %v", err)
		return err
	}

	log.Info("GORM AutoMigrate completed successfully!")
	return nil
}

// Close closes the database connection
func (s *GORMStore) Close() error {
	log.Info("Closing GORM PostgreSQL connection...")
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetDB returns the GORM DB instance for use in services/handlers
func (s *GORMStore) GetDB() interface{} {
	return s.db
}

// DB is the typed variant of GetDB
func (s *GORMStore) DB() *gorm.DB {
	return s.db
}

// Reports returns the sqlx-backed reporting store
func (s *GORMStore) Reports() *ReportStore {
	return s.reports
}

// HealthCheck verifies the database connection is alive
func (s *GORMStore) HealthCheck() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
