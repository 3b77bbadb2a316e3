package db

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"smart-parking/models"
	"smart-parking/utils"

	_ "github.com/mattn/go-sqlite3" // SQLite driver registration
)

type SQLiteClient struct {
	db *sql.DB
}

func NewSQLiteClient(dataSourceName string) (*SQLiteClient, error) {
	// Extract the file path before query parameters
	dbPath := dataSourceName
	if idx := strings.Index(dataSourceName, "?"); idx != -1 {
		dbPath = dataSourceName[:idx]
	}

	dbDir := filepath.Dir(dbPath)
	if dbDir != "." && dbDir != "" {
		if err := utils.CreateFolder(dbDir); err != nil {
			return nil, fmt.Errorf("error creating database directory: %s", err)
		}
	}

	// Add busy timeout param to DSN (milliseconds)
	if !strings.Contains(dataSourceName, "_busy_timeout") {
		if strings.Contains(dataSourceName, "?") {
			dataSourceName += "&_busy_timeout=5000"
		} else {
			dataSourceName += "?_busy_timeout=5000"
		}
	}

	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("error connecting to SQLite: %s", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("error creating tables: %s", err)
	}

	return &SQLiteClient{db: db}, nil
}

func createTables(db *sql.DB) error {
	createAllocationsTable := `
    CREATE TABLE IF NOT EXISTS allocations (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        session_id TEXT NOT NULL,
        timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
        vehicle_category TEXT NOT NULL,
        vehicle_label TEXT,
        vehicle_confidence REAL NOT NULL DEFAULT 0,
        slot_number INTEGER NOT NULL,
        slot_row INTEGER NOT NULL,
        slot_col INTEGER NOT NULL,
        slot_distance REAL NOT NULL DEFAULT 0,
        optimal_path_id INTEGER NOT NULL,
        optimal_score REAL NOT NULL DEFAULT 0,
        total_slots INTEGER NOT NULL DEFAULT 0,
        empty_slots INTEGER NOT NULL DEFAULT 0,
        paths TEXT NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_allocations_timestamp ON allocations(timestamp);
    CREATE INDEX IF NOT EXISTS idx_allocations_session ON allocations(session_id);
    `

	_, err := db.Exec(createAllocationsTable)
	if err != nil {
		return fmt.Errorf("error creating allocations table: %s", err)
	}

	return nil
}

func (s *SQLiteClient) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveAllocation stores a completed allocation record.
func (s *SQLiteClient) SaveAllocation(record *models.AllocationRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO allocations (
			session_id, timestamp, vehicle_category, vehicle_label,
			vehicle_confidence, slot_number, slot_row, slot_col,
			slot_distance, optimal_path_id, optimal_score,
			total_slots, empty_slots, paths
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.SessionID,
		record.Timestamp,
		record.VehicleCategory,
		record.VehicleLabel,
		record.VehicleConf,
		record.SlotNumber,
		record.SlotRow,
		record.SlotCol,
		record.SlotDistance,
		record.OptimalPathID,
		record.OptimalScore,
		record.TotalSlots,
		record.EmptySlots,
		string(record.Paths),
	)
	if err != nil {
		return fmt.Errorf("error storing allocation: %s", err)
	}
	return nil
}

// RecentAllocations retrieves the newest records first.
func (s *SQLiteClient) RecentAllocations(limit int) ([]models.AllocationRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(`
		SELECT id, session_id, timestamp, vehicle_category, vehicle_label,
		       vehicle_confidence, slot_number, slot_row, slot_col,
		       slot_distance, optimal_path_id, optimal_score,
		       total_slots, empty_slots, paths
		FROM allocations
		ORDER BY timestamp DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying allocations: %s", err)
	}
	defer rows.Close()

	var records []models.AllocationRecord
	for rows.Next() {
		var r models.AllocationRecord
		var pathsJSON string

		err := rows.Scan(
			&r.ID,
			&r.SessionID,
			&r.Timestamp,
			&r.VehicleCategory,
			&r.VehicleLabel,
			&r.VehicleConf,
			&r.SlotNumber,
			&r.SlotRow,
			&r.SlotCol,
			&r.SlotDistance,
			&r.OptimalPathID,
			&r.OptimalScore,
			&r.TotalSlots,
			&r.EmptySlots,
			&pathsJSON,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning allocation: %s", err)
		}

		r.Paths = []byte(pathsJSON)
		records = append(records, r)
	}

	return records, rows.Err()
}
