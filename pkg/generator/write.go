package generator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Default output locations, relative to the working directory.
const (
	DefaultSnapshotPath  = "backend.snapshot.sql"
	DefaultMigrationPath = "supabase/migrations/rewrite_insert_rpc_defaults.sql"
	DefaultAuditPath     = "audits/supabase/insert_rpc_rewrite_audit.md"
	DefaultDeltaPath     = "audits/supabase/insert_rpc_rewrite_delta.md"
)

// Paths are the three output files of a run.
type Paths struct {
	Migration string
	Audit     string
	Delta     string
}

// DefaultPaths returns the standard output locations.
func DefaultPaths() Paths {
	return Paths{
		Migration: DefaultMigrationPath,
		Audit:     DefaultAuditPath,
		Delta:     DefaultDeltaPath,
	}
}

// WriteOutputs writes res to paths, creating parent directories. Every document is
// first staged in a temp file beside its target, and no target is touched until all
// three are staged, so a failure while writing leaves every output as it was.
//
// Each target is then replaced with a rename. The three renames are not atomic as
// a group: if one fails, the reports renamed before it stay replaced. The migration
// is renamed last, so it is never newer than its reports.
func WriteOutputs(res *Result, paths Paths) (err error) {
	files := []struct {
		path    string
		content string
	}{
		{paths.Audit, res.Audit},
		{paths.Delta, res.Delta},
		{paths.Migration, res.Migration},
	}

	staged := make([]string, 0, len(files))
	defer func() {
		if err != nil {
			for _, tmp := range staged {
				_ = os.Remove(tmp)
			}
		}
	}()

	for _, f := range files {
		if f.path == "" {
			return errors.New("output path is empty")
		}
		tmp, err := stage(f.path, f.content)
		if err != nil {
			return err
		}
		staged = append(staged, tmp)
	}

	for i, f := range files {
		if err := os.Rename(staged[i], f.path); err != nil {
			return fmt.Errorf("replacing %s: %w", f.path, err)
		}
	}
	staged = nil
	return nil
}

func stage(path, content string) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("staging %s: %w", path, err)
	}
	tmp := f.Name()

	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return tmp, nil
}

// Generate reads the snapshot at snapshotPath, runs the pipeline, and writes the
// three outputs. Nothing is written unless the run succeeds.
func Generate(snapshotPath string, paths Paths, opts Options) (*Result, error) {
	src, err := os.ReadFile(snapshotPath)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	res, err := Run(string(src), opts)
	if err != nil {
		return nil, err
	}

	if err := WriteOutputs(res, paths); err != nil {
		return nil, err
	}
	return res, nil
}
