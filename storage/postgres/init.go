package postgres

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// InitDB opens the connection and migrates the catalog table.
func InitDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&CatalogItem{}); err != nil {
		return nil, err
	}
	return db, nil
}
