package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDatabase opens the configured database and migrates modelDefs, exiting the process on failure.
func InitDatabase(c AppConfig, modelDefs ...interface{}) *gorm.DB {
	db, err := OpenDatabase(c, modelDefs...)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	return db
}

// OpenDatabase connects using c.DBDriver (mysql, postgres or sqlite), tunes the pool and auto-migrates modelDefs.
func OpenDatabase(c AppConfig, modelDefs ...interface{}) (*gorm.DB, error) {
	dialector, err := dialectorFor(c)
	if err != nil {
		return nil, err
	}

	// Derive level from app LogLevel and raise slow-sql threshold to reduce noise
	gLogger := logger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             2 * time.Second,
			LogLevel:                  toGormLogLevel(c.LogLevel),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                                   gLogger,
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", c.DBDriver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	if strings.EqualFold(c.DBDriver, "sqlite") {
		// single writer; also keeps a shared in-memory database alive for its whole lifetime
		sqlDB.SetMaxOpenConns(1)
		db.Exec("PRAGMA busy_timeout = 3000")
	} else {
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
		sqlDB.SetConnMaxIdleTime(10 * time.Minute)
	}

	// Ping at startup to surface network/auth problems before the first query
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("database ping: %w", err)
	}

	if len(modelDefs) > 0 {
		if err := db.AutoMigrate(modelDefs...); err != nil {
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
	}
	return db, nil
}

func dialectorFor(c AppConfig) (gorm.Dialector, error) {
	switch strings.ToLower(c.DBDriver) {
	case "mysql", "":
		dsn := c.DatabaseURI
		if dsn == "" {
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
				c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
		}
		return mysql.Open(dsn), nil
	case "postgres":
		dsn := c.DatabaseURI
		if dsn == "" {
			dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
				c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
		}
		return postgres.Open(dsn), nil
	case "sqlite":
		dsn := c.DatabaseURI
		if dsn == "" {
			dsn = "site.db"
		}
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.DBDriver)
	}
}

// toGormLogLevel maps application LogLevel to GORM's logger level.
func toGormLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		// GORM 'Info' shows SQL; use with caution
		return logger.Info
	case "info", "", "warn":
		return logger.Warn
	case "error":
		return logger.Error
	case "silent":
		return logger.Silent
	default:
		return logger.Warn
	}
}
