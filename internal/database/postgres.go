package database

import (
	"log"
	"sync"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	once sync.Once
	db   *gorm.DB
)

// Connect initializes a singleton PostgreSQL connection using GORM.
func Connect(name, dsn string) *gorm.DB {
	once.Do(func() {
		conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			log.Fatalf("%s: failed to connect to postgres: %v", name, err)
		}
		db = conn
	})

	return db
}

// DB returns the initialized database or nil if Connect was not called.
func DB() *gorm.DB {
	return db
}
