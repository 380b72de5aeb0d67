package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ulogscraper-go/domain/run"
)

// yamlRun is the on-disk structure of a run record.
type yamlRun struct {
	ID          string        `yaml:"id"`
	Mode        string        `yaml:"mode"`
	StartedAt   time.Time     `yaml:"startedAt"`
	FinishedAt  time.Time     `yaml:"finishedAt,omitempty"`
	LoggedIn    bool          `yaml:"loggedIn"`
	Vehicles    []yamlVehicle `yaml:"vehicles,omitempty"`
	Files       []yamlFile    `yaml:"files,omitempty"`
	Screenshots []string      `yaml:"screenshots,omitempty"`
	Error       string        `yaml:"error,omitempty"`
}

type yamlVehicle struct {
	Name      string `yaml:"name"`
	StartDate string `yaml:"startDate"`
	EndDate   string `yaml:"endDate"`
	Completed bool   `yaml:"completed"`
	StoppedAt string `yaml:"stoppedAt,omitempty"`
	Error     string `yaml:"error,omitempty"`
}

type yamlFile struct {
	Filename  string `yaml:"filename"`
	Path      string `yaml:"path"`
	URL       string `yaml:"url"`
	SizeBytes int64  `yaml:"sizeBytes"`
}

// FileRunRepository implements run.Repository with one YAML file per run.
type FileRunRepository struct {
	dir    string
	logger *slog.Logger
}

// NewFileRunRepository stores records under dir, creating it on first save.
func NewFileRunRepository(dir string, logger *slog.Logger) *FileRunRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileRunRepository{dir: dir, logger: logger}
}

// Dir returns the directory records are written to.
func (r *FileRunRepository) Dir() string {
	return r.dir
}

func (r *FileRunRepository) path(id string) string {
	return filepath.Join(r.dir, id+".yaml")
}

// Save writes the record to <dir>/<id>.yaml, replacing any previous version.
func (r *FileRunRepository) Save(ctx context.Context, record *run.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if record.ID == "" || strings.ContainsAny(record.ID, `/\`) {
		return fmt.Errorf("invalid run ID %q", record.ID)
	}

	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return fmt.Errorf("failed to create runs directory: %w", err)
	}

	data, err := yaml.Marshal(recordToYAML(record))
	if err != nil {
		return fmt.Errorf("failed to encode run: %w", err)
	}

	tmp := r.path(record.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write run: %w", err)
	}
	if err := os.Rename(tmp, r.path(record.ID)); err != nil {
		return fmt.Errorf("failed to write run: %w", err)
	}

	r.logger.Info("Run saved", "id", record.ID, "path", r.path(record.ID))
	return nil
}

// FindByID reads a record from disk.
func (r *FileRunRepository) FindByID(ctx context.Context, id string) (*run.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(r.path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, run.ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to read run: %w", err)
	}

	var yr yamlRun
	if err := yaml.Unmarshal(data, &yr); err != nil {
		return nil, fmt.Errorf("failed to decode run %s: %w", id, err)
	}
	return yamlToRecord(&yr), nil
}

// FindRecent returns up to limit records, newest first. Unreadable files are skipped.
func (r *FileRunRepository) FindRecent(ctx context.Context, limit int) ([]*run.Record, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	var records []*run.Record
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}
		rec, err := r.FindByID(ctx, strings.TrimSuffix(entry.Name(), ".yaml"))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.logger.Warn("Skipping unreadable run file", "file", entry.Name(), "error", err)
			continue
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].StartedAt.After(records[j].StartedAt)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func recordToYAML(rec *run.Record) *yamlRun {
	yr := &yamlRun{
		ID:          rec.ID,
		Mode:        string(rec.Mode),
		StartedAt:   rec.StartedAt,
		FinishedAt:  rec.FinishedAt,
		LoggedIn:    rec.LoggedIn,
		Screenshots: rec.Screenshots,
		Error:       rec.Error,
	}
	for _, v := range rec.Vehicles {
		yr.Vehicles = append(yr.Vehicles, yamlVehicle(v))
	}
	for _, f := range rec.Files {
		yr.Files = append(yr.Files, yamlFile(f))
	}
	return yr
}

func yamlToRecord(yr *yamlRun) *run.Record {
	rec := &run.Record{
		ID:          yr.ID,
		Mode:        run.Mode(yr.Mode),
		StartedAt:   yr.StartedAt,
		FinishedAt:  yr.FinishedAt,
		LoggedIn:    yr.LoggedIn,
		Screenshots: yr.Screenshots,
		Error:       yr.Error,
	}
	for _, v := range yr.Vehicles {
		rec.Vehicles = append(rec.Vehicles, run.VehicleOutcome(v))
	}
	for _, f := range yr.Files {
		rec.Files = append(rec.Files, run.SavedFile(f))
	}
	return rec
}

var _ run.Repository = (*FileRunRepository)(nil)
