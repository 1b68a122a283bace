package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/de-tools/trend-radar/pkg/models/domain"
)

const filePrefix = "trends_backup_"

// Sink writes JSON batch backups used for crash recovery of unexported
// batches. Save is fire-and-forget from the caller's perspective: failures
// are logged and reported as an empty path, never as a run-stopping error.
type Sink struct {
	dir string
	now func() time.Time
	log zerolog.Logger
}

type batchFile struct {
	Timestamp   string               `json:"timestamp"`
	Label       string               `json:"label,omitempty"`
	RecordCount int                  `json:"record_count"`
	Data        []domain.TrendRecord `json:"data"`
}

func NewSink(dir string, logger zerolog.Logger) *Sink {
	return &Sink{dir: dir, now: time.Now, log: logger}
}

// Save writes a batch to a timestamped JSON file and returns its path, or an
// empty string on failure.
func (s *Sink) Save(records []domain.TrendRecord, label string) string {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		s.log.Error().Err(err).Msg("failed to create backup dir")
		return ""
	}

	name := filePrefix + s.now().UTC().Format("20060102_150405")
	if label != "" {
		name += "_" + label
	}
	path := filepath.Join(s.dir, name+".json")

	payload, err := json.MarshalIndent(batchFile{
		Timestamp:   s.now().UTC().Format(time.RFC3339),
		Label:       label,
		RecordCount: len(records),
		Data:        records,
	}, "", "  ")
	if err != nil {
		s.log.Error().Err(err).Msg("failed to marshal backup")
		return ""
	}

	if err := os.WriteFile(path, payload, 0o644); err != nil {
		s.log.Error().Err(err).Str("path", path).Msg("failed to write backup")
		return ""
	}
	s.log.Info().Str("path", path).Int("records", len(records)).Msg("backup saved")
	return path
}

// Load reads a batch back from a backup file.
func (s *Sink) Load(path string) ([]domain.TrendRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read backup %s: %w", path, err)
	}
	var file batchFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode backup %s: %w", path, err)
	}
	return file.Data, nil
}

// List returns backup file paths, newest first.
func (s *Sink) List() []string {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil
	}
	var paths []string
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), filePrefix) && strings.HasSuffix(entry.Name(), ".json") {
			paths = append(paths, filepath.Join(s.dir, entry.Name()))
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(paths)))
	return paths
}

// Cleanup removes backups older than keepDays.
func (s *Sink) Cleanup(keepDays int) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return
	}

	cutoff := s.now().AddDate(0, 0, -keepDays)
	removed := 0
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), filePrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
				s.log.Error().Err(err).Str("file", entry.Name()).Msg("failed to remove old backup")
				continue
			}
			removed++
		}
	}
	if removed > 0 {
		s.log.Info().Int("removed", removed).Int("keep_days", keepDays).Msg("cleaned up old backups")
	}
}
