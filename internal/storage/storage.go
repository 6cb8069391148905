package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/pfrederiksen/tablescrape/internal/grid"
)

// DefaultDataDir is where snapshots live when no directory is configured
const DefaultDataDir = "~/.local/share/tablescrape"

var (
	// ErrNotFound is returned when a named snapshot does not exist
	ErrNotFound = errors.New("snapshot not found")

	// ErrInvalidName is returned for snapshot names that cannot be used as file names
	ErrInvalidName = errors.New("invalid snapshot name")
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Snapshot is a stored grid plus where it came from
type Snapshot struct {
	Name       string     `json:"name"`
	SourceURL  string     `json:"source_url,omitempty"`
	TableIndex int        `json:"table_index"`
	SavedAt    string     `json:"saved_at"`
	Grid       *grid.Grid `json:"grid"`
}

// Storage handles persistence of grid snapshots
type Storage struct {
	dataDir string
}

// New creates a new Storage instance
func New(dataDir string) (*Storage, error) {
	dataDir, err := ExpandHome(dataDir)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return &Storage{
		dataDir: dataDir,
	}, nil
}

// ExpandHome replaces a leading ~/ with the user's home directory
func ExpandHome(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(path[1:], "/")), nil
	}
	return path, nil
}

// Dir returns the data directory
func (s *Storage) Dir() string {
	return s.dataDir
}

// ValidateName reports whether name can be used for a snapshot
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: %q (use letters, digits, '.', '_' or '-')", ErrInvalidName, name)
	}
	return nil
}

func (s *Storage) snapshotPath(name string) string {
	return filepath.Join(s.dataDir, name+".json")
}

// LoadSnapshot loads a snapshot from disk
func (s *Storage) LoadSnapshot(name string) (*Snapshot, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.snapshotPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("parsing snapshot %s: %w", name, err)
	}
	if snapshot.Grid == nil {
		return nil, fmt.Errorf("parsing snapshot %s: no grid", name)
	}
	if snapshot.Grid.Columns == nil {
		snapshot.Grid.Columns = []string{}
	}
	if snapshot.Grid.Rows == nil {
		snapshot.Grid.Rows = [][]grid.Cell{}
	}
	if err := snapshot.Grid.Validate(); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", name, err)
	}

	return &snapshot, nil
}

// LoadGrid loads just the grid of a snapshot
func (s *Storage) LoadGrid(name string) (*grid.Grid, error) {
	snapshot, err := s.LoadSnapshot(name)
	if err != nil {
		return nil, err
	}
	return snapshot.Grid, nil
}

// SaveSnapshot saves a snapshot to disk, replacing any snapshot with the same name
func (s *Storage) SaveSnapshot(snapshot *Snapshot) error {
	if err := ValidateName(snapshot.Name); err != nil {
		return err
	}
	if snapshot.Grid == nil {
		return fmt.Errorf("snapshot %s has no grid", snapshot.Name)
	}

	snapshot.SavedAt = time.Now().UTC().Format(time.RFC3339)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	if err := os.WriteFile(s.snapshotPath(snapshot.Name), data, 0644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}

	return nil
}

// SaveGrid stores g under name
func (s *Storage) SaveGrid(name, sourceURL string, tableIndex int, g *grid.Grid) error {
	return s.SaveSnapshot(&Snapshot{
		Name:       name,
		SourceURL:  sourceURL,
		TableIndex: tableIndex,
		Grid:       g,
	})
}

// List returns all stored snapshots sorted by name
func (s *Storage) List() ([]*Snapshot, error) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return nil, fmt.Errorf("reading data directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".json")
		if ValidateName(name) != nil {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	snapshots := make([]*Snapshot, 0, len(names))
	for _, name := range names {
		snapshot, err := s.LoadSnapshot(name)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, nil
}

// Delete removes a stored snapshot
func (s *Storage) Delete(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := os.Remove(s.snapshotPath(name)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("removing snapshot: %w", err)
	}
	return nil
}
