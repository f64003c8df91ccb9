package fs

// Persistence for the set of listing ids that were already broadcast, so
// a restart does not re-alert the whole book.

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const seenListingsFile = "seen_listings.json"

// LoadSeenListings reads the persisted id set. A missing file is an
// empty set, not an error.
func LoadSeenListings(dataDir string) (map[string]bool, error) {
	data, err := os.ReadFile(filepath.Join(dataDir, seenListingsFile))
	if os.IsNotExist(err) {
		return map[string]bool{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read seen listings file: %w", err)
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("failed to unmarshal seen listings: %w", err)
	}

	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		seen[id] = true
	}
	return seen, nil
}

// SaveSeenListings writes the id set back to disk.
func SaveSeenListings(dataDir string, seen map[string]bool) error {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}

	data, err := json.MarshalIndent(ids, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal seen listings: %w", err)
	}

	path := filepath.Join(dataDir, seenListingsFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to save seen listings: %w", err)
	}
	return nil
}
