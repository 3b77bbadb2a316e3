package db

import (
	"fmt"

	"smart-parking/models"
	"smart-parking/utils"
)

// HistoryStore persists completed allocation records. History is auxiliary:
// the decision core works with a nil store.
type HistoryStore interface {
	SaveAllocation(record *models.AllocationRecord) error
	RecentAllocations(limit int) ([]models.AllocationRecord, error)
	Close() error
}

// NewDBClient selects a database-backed store from the DB_TYPE environment
// variable ("sqlite" or "mongo"). The JSON-file store in the records package
// covers the no-database default.
func NewDBClient() (HistoryStore, error) {
	dbType := utils.GetEnv("DB_TYPE", "sqlite")
	switch dbType {
	case "sqlite":
		client, err := NewSQLiteClient(utils.GetEnv("SQLITE_DB_PATH", "storage/parking.db"))
		if err != nil {
			return nil, err
		}
		return client, nil
	case "mongo":
		client, err := NewMongoClient(utils.GetEnv("MONGO_URI", "mongodb://localhost:27017"))
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported DB_TYPE: %s", dbType)
	}
}
