package db

import (
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	mysqlDrv "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/itemlabs/go-items-api/internal/config"
)

func OpenAndMigrate(cfg config.Config) (*sql.DB, func(), error) {
	sqlDB, err := sql.Open("mysql", cfg.DBDsn)
	if err != nil {
		return nil, nil, err
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, nil, err
	}

	drv, err := mysqlDrv.WithInstance(sqlDB, &mysqlDrv.Config{})
	if err != nil {
		sqlDB.Close()
		return nil, nil, err
	}
	m, err := migrate.NewWithDatabaseInstance("file://migrations", "mysql", drv)
	if err != nil {
		sqlDB.Close()
		return nil, nil, err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		sqlDB.Close()
		return nil, nil, err
	}
	return sqlDB, func() {}, nil
}
