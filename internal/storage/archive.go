// Package storage archives scheduling run reports.
//
// Reports go to S3 (one JSON document per run) and to a DynamoDB run index
// keyed by business date, or to local JSON files when AWS is not
// configured. Archive failures never fail a run; callers log them.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ignite/outreach-engine/internal/service/schedule"
)

// RunReport describes one scheduling run.
type RunReport struct {
	RunID      string           `json:"run_id"`
	Trigger    string           `json:"trigger"`
	DryRun     bool             `json:"dry_run"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Result     *schedule.Result `json:"result,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// Archive persists run reports.
type Archive interface {
	Save(ctx context.Context, r RunReport) error
}

// reportKey is the object key / file path of a report.
func reportKey(r RunReport) string {
	return fmt.Sprintf("reports/%s/%s.json", r.StartedAt.UTC().Format("2006/01/02"), r.RunID)
}

// MultiArchive saves to every archive and joins the errors.
type MultiArchive []Archive

// Save implements Archive.
func (m MultiArchive) Save(ctx context.Context, r RunReport) error {
	var errs []error
	for _, a := range m {
		if err := a.Save(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FileArchive writes reports under a local directory.
type FileArchive struct {
	dir string
}

// NewFileArchive creates a file archive rooted at dir.
func NewFileArchive(dir string) *FileArchive {
	return &FileArchive{dir: dir}
}

// Save implements Archive.
func (f *FileArchive) Save(_ context.Context, r RunReport) error {
	path := filepath.Join(f.dir, filepath.FromSlash(reportKey(r)))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(r); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// Load reads a report previously written by Save.
func (f *FileArchive) Load(startedAt time.Time, runID string) (*RunReport, error) {
	key := reportKey(RunReport{RunID: runID, StartedAt: startedAt})
	data, err := os.ReadFile(filepath.Join(f.dir, filepath.FromSlash(key)))
	if err != nil {
		return nil, err
	}
	var r RunReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &r, nil
}
