package records

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"smart-parking/models"
	"smart-parking/utils"
)

// FileStore keeps allocation history in a single JSON file. It is the
// default store when no database is configured.
type FileStore struct {
	path string
	mu   sync.RWMutex
}

func NewFileStore(path string) *FileStore {
	if path == "" {
		path = filepath.Join("storage", "allocations.json")
	}
	return &FileStore{path: path}
}

// load reads all records from the file (caller must hold the lock).
func (f *FileStore) load() ([]models.AllocationRecord, error) {
	if _, err := os.Stat(f.path); os.IsNotExist(err) {
		return []models.AllocationRecord{}, nil
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("error reading allocations file: %v", err)
	}
	if len(data) == 0 {
		return []models.AllocationRecord{}, nil
	}

	var records []models.AllocationRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("error unmarshaling allocations: %v", err)
	}
	return records, nil
}

// SaveAllocation appends a record to the file.
func (f *FileStore) SaveAllocation(record *models.AllocationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	records, err := f.load()
	if err != nil {
		return err
	}

	if record.ID == 0 {
		record.ID = time.Now().UnixNano()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}

	records = append(records, *record)

	dir := filepath.Dir(f.path)
	if dir != "." && dir != "" {
		if err := utils.CreateFolder(dir); err != nil {
			return fmt.Errorf("error creating directory: %v", err)
		}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling allocations: %v", err)
	}
	if err := os.WriteFile(f.path, data, 0644); err != nil {
		return fmt.Errorf("error writing allocations file: %v", err)
	}
	return nil
}

// RecentAllocations returns the newest records first.
func (f *FileStore) RecentAllocations(limit int) ([]models.AllocationRecord, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	records, err := f.load()
	if err != nil {
		return nil, err
	}

	// Stored oldest-first; reverse for display.
	out := make([]models.AllocationRecord, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		out = append(out, records[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *FileStore) Close() error { return nil }
