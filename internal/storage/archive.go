// Package storage keeps a JSON archive of finished runs. Archives are
// written for people and later tooling; the pipeline never reads them back.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/deusflow/newsdigest/internal/article"
	"github.com/deusflow/newsdigest/internal/logger"
	"github.com/deusflow/newsdigest/internal/summarize"
)

const (
	filePrefix      = "run-"
	fileSuffix      = ".json"
	timestampLayout = "20060102T150405Z"
)

// RunRecord is the archived form of one run.
type RunRecord struct {
	RunID       string                         `json:"run_id"`
	GeneratedAt time.Time                      `json:"generated_at"`
	Order       []string                       `json:"order"`
	Categories  map[string][]article.Record    `json:"categories"`
	UniqueCount int                            `json:"unique_count"`
	Summaries   map[string][]summarize.Summary `json:"summaries,omitempty"`
	Insight     *summarize.Insight             `json:"insight,omitempty"`
}

// NewRunRecord stamps a record with a fresh run ID.
func NewRunRecord(generatedAt time.Time) *RunRecord {
	return &RunRecord{
		RunID:       uuid.New().String(),
		GeneratedAt: generatedAt.UTC(),
	}
}

// Archive manages run files in a directory
type Archive struct {
	dir string
	ttl time.Duration
	mu  sync.Mutex
}

// NewArchive creates an archive in dir. Runs older than ttl are removed by
// Prune; a ttl of zero keeps everything.
func NewArchive(dir string, ttl time.Duration) *Archive {
	return &Archive{dir: dir, ttl: ttl}
}

// Save writes run and returns the file path.
func (a *Archive) Save(run *RunRecord) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create archive dir: %w", err)
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal run: %w", err)
	}

	name := filePrefix + run.GeneratedAt.UTC().Format(timestampLayout) + "-" + run.RunID + fileSuffix
	path := filepath.Join(a.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write archive file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to finalize archive file: %w", err)
	}

	logger.Info("Run archived", "run_id", run.RunID, "path", path)
	return path, nil
}

// Load reads an archived run.
func (a *Archive) Load(path string) (*RunRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive file: %w", err)
	}
	var run RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run: %w", err)
	}
	return &run, nil
}

type entry struct {
	path string
	at   time.Time
}

// List returns archived run files, oldest first.
func (a *Archive) List() ([]string, error) {
	entries, err := a.entries()
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.path
	}
	return paths, nil
}

func (a *Archive) entries() ([]entry, error) {
	dirEntries, err := os.ReadDir(a.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read archive dir: %w", err)
	}

	var out []entry
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		stamp := strings.TrimPrefix(name, filePrefix)
		if len(stamp) < len(timestampLayout) {
			continue
		}
		at, err := time.Parse(timestampLayout, stamp[:len(timestampLayout)])
		if err != nil {
			continue
		}
		out = append(out, entry{path: filepath.Join(a.dir, name), at: at})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].at.Before(out[j].at) })
	return out, nil
}

// Prune removes runs generated before now minus the TTL and returns how
// many were deleted.
func (a *Archive) Prune(now time.Time) (int, error) {
	if a.ttl <= 0 {
		return 0, nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	entries, err := a.entries()
	if err != nil {
		return 0, err
	}

	cutoff := now.Add(-a.ttl)
	removed := 0
	for _, e := range entries {
		if !e.at.Before(cutoff) {
			continue
		}
		if err := os.Remove(e.path); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", e.path, err)
		}
		removed++
	}
	if removed > 0 {
		logger.Info("Pruned archived runs", "removed", removed, "cutoff", cutoff)
	}
	return removed, nil
}
