package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ulogscraper-go/domain/run"
)

func TestFileRunRepository_SaveAndFind(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "runs")
	repo := NewFileRunRepository(dir, nil)
	ctx := context.Background()

	started := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	rec := &run.Record{
		ID:        "run-1",
		Mode:      run.ModeFetch,
		StartedAt: started,
		LoggedIn:  true,
		Files:     []run.SavedFile{{Filename: "a.log", Path: "logs/downloaded/a.log", URL: "https://x/a.log", SizeBytes: 7}},
	}

	if err := repo.Save(ctx, rec); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "run-1.yaml")); err != nil {
		t.Fatalf("record file missing: %v", err)
	}

	got, err := repo.FindByID(ctx, "run-1")
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if got.Mode != run.ModeFetch || !got.StartedAt.Equal(started) || !got.LoggedIn {
		t.Errorf("record = %+v", got)
	}
	if len(got.Files) != 1 || got.Files[0] != rec.Files[0] {
		t.Errorf("files = %+v", got.Files)
	}

	rec.Error = "late failure"
	if err := repo.Save(ctx, rec); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}
	got, _ = repo.FindByID(ctx, "run-1")
	if got.Error != "late failure" {
		t.Errorf("Save did not replace record: %+v", got)
	}
}

func TestFileRunRepository_FindByID_Missing(t *testing.T) {
	repo := NewFileRunRepository(t.TempDir(), nil)

	_, err := repo.FindByID(context.Background(), "nope")
	if !errors.Is(err, run.ErrRunNotFound) {
		t.Errorf("error = %v, want ErrRunNotFound", err)
	}
}

func TestFileRunRepository_FindRecent(t *testing.T) {
	dir := t.TempDir()
	repo := NewFileRunRepository(dir, nil)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "newest", "middle"} {
		offset := map[string]time.Duration{"old": 0, "middle": time.Hour, "newest": 2 * time.Hour}[id]
		if err := repo.Save(ctx, &run.Record{ID: id, Mode: run.ModeBatch, StartedAt: base.Add(offset)}); err != nil {
			t.Fatalf("Save(%d) error = %v", i, err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("id: [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}

	recs, err := repo.FindRecent(ctx, 2)
	if err != nil {
		t.Fatalf("FindRecent() error = %v", err)
	}
	if len(recs) != 2 || recs[0].ID != "newest" || recs[1].ID != "middle" {
		ids := make([]string, len(recs))
		for i, r := range recs {
			ids[i] = r.ID
		}
		t.Errorf("FindRecent() = %v, want [newest middle]", ids)
	}
}

func TestFileRunRepository_FindRecent_NoDir(t *testing.T) {
	repo := NewFileRunRepository(filepath.Join(t.TempDir(), "absent"), nil)

	recs, err := repo.FindRecent(context.Background(), 10)
	if err != nil || len(recs) != 0 {
		t.Errorf("FindRecent() = %v, %v; want empty, nil", recs, err)
	}
}

func TestFileRunRepository_InvalidID(t *testing.T) {
	repo := NewFileRunRepository(t.TempDir(), nil)

	for _, id := range []string{"", "../escape", `a\b`} {
		if err := repo.Save(context.Background(), &run.Record{ID: id}); err == nil {
			t.Errorf("Save(%q) should fail", id)
		}
	}
}
