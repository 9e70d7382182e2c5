package db

import (
	"fmt"
	"time"

	"github.com/EcrTech/FL-sub005/internal/config"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Dialector picks the driver named by DB_DRIVER.
func Dialector(c *config.Config) (gorm.Dialector, error) {
	switch c.DBDriver {
	case "mysql":
		return mysql.Open(c.MySQLDSN()), nil
	case "postgres":
		return postgres.Open(c.PostgresDSN), nil
	}
	return nil, fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
}

func OpenGorm(c *config.Config, log logrus.FieldLogger) (*gorm.DB, error) {
	dial, err := Dialector(c)
	if err != nil {
		return nil, err
	}
	return OpenGormWithDialector(dial, log)
}

func OpenGormWithDialector(dial gorm.Dialector, log logrus.FieldLogger) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger:               NewLogger(log, time.Second),
		TranslateError:       true,
		DisableAutomaticPing: true,
		NowFunc:              func() time.Time { return time.Now().UTC() },
	}
	db, err := gorm.Open(dial, cfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(30)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}
	log.WithField("dialect", dial.Name()).Info("gorm: connected")
	return db, nil
}
