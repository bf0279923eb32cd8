// Package archive unpacks zipped sectionals deliveries.
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Result counts what an extraction produced.
type Result struct {
	Archives int
	Files    int
	Skipped  int
}

func (r *Result) add(other Result) {
	r.Archives += other.Archives
	r.Files += other.Files
	r.Skipped += other.Skipped
}

// ExtractAll extracts every .zip file found directly in srcDir into outDir.
func ExtractAll(ctx context.Context, srcDir, outDir string) (Result, error) {
	if srcDir == "" {
		return Result{}, fmt.Errorf("source directory is required")
	}
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read source dir: %w", err)
	}

	var zips []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".zip") {
			continue
		}
		zips = append(zips, filepath.Join(srcDir, entry.Name()))
	}
	sort.Strings(zips)

	var total Result
	for _, path := range zips {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		res, err := Extract(path, outDir)
		if err != nil {
			return total, err
		}
		total.add(res)
	}
	return total, nil
}

// Extract unpacks a single archive into outDir. Entries whose names would
// escape outDir are skipped.
func Extract(zipPath, outDir string) (Result, error) {
	if outDir == "" {
		return Result{}, fmt.Errorf("output directory is required")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("failed to create output dir: %w", err)
	}
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open archive %s: %w", zipPath, err)
	}
	defer func() {
		_ = reader.Close()
	}()

	res := Result{Archives: 1}
	for _, file := range reader.File {
		name := filepath.FromSlash(strings.TrimSuffix(file.Name, "/"))
		if name == "" || !filepath.IsLocal(name) {
			res.Skipped++
			continue
		}
		dest := filepath.Join(outDir, name)
		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return res, fmt.Errorf("failed to create dir %s: %w", dest, err)
			}
			continue
		}
		if err := writeEntry(file, dest); err != nil {
			return res, err
		}
		res.Files++
	}
	return res, nil
}

func writeEntry(file *zip.File, dest string) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create dir %s: %w", dir, err)
	}

	rc, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to open entry %s: %w", file.Name, err)
	}
	defer func() {
		_ = rc.Close()
	}()

	tmpFile, err := os.CreateTemp(dir, ".extract-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := io.Copy(tmpFile, rc); err != nil {
		return fmt.Errorf("failed to extract %s: %w", file.Name, err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if mode := file.Mode().Perm(); mode != 0 {
		if err := os.Chmod(tmpPath, mode); err != nil {
			return fmt.Errorf("failed to set mode on %s: %w", dest, err)
		}
	} else if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("failed to set mode on %s: %w", dest, err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", dest, err)
	}
	return nil
}
