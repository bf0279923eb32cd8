package archive

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestExtractWritesLocalEntries(t *testing.T) {
	zipPath := writeTestZip(t, t.TempDir(), "meeting.zip", map[string][]byte{
		"20230514_ST_R1.xml":     []byte("<RaceSummary/>"),
		"nested/20230514_R2.xml": []byte("<RaceSummary/>"),
		"../escape.xml":          []byte("bad"),
		"/abs.xml":               []byte("bad"),
	})
	outDir := t.TempDir()

	res, err := Extract(zipPath, outDir)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if res.Archives != 1 || res.Files != 2 || res.Skipped != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	data, err := os.ReadFile(filepath.Join(outDir, "nested", "20230514_R2.xml"))
	if err != nil {
		t.Fatalf("failed to read extracted file: %v", err)
	}
	if string(data) != "<RaceSummary/>" {
		t.Fatalf("unexpected contents %q", data)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(outDir), "escape.xml")); err == nil {
		t.Fatalf("entry escaped the output directory")
	}
}

func TestExtractAllSkipsNonZip(t *testing.T) {
	srcDir := t.TempDir()
	writeTestZip(t, srcDir, "a.zip", map[string][]byte{"a_R1.xml": []byte("a")})
	writeTestZip(t, srcDir, "b.ZIP", map[string][]byte{"b_R2.xml": []byte("b")})
	if err := os.WriteFile(filepath.Join(srcDir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("failed to write notes: %v", err)
	}
	outDir := filepath.Join(t.TempDir(), "out")

	res, err := ExtractAll(context.Background(), srcDir, outDir)
	if err != nil {
		t.Fatalf("ExtractAll failed: %v", err)
	}
	if res.Archives != 2 || res.Files != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	for _, name := range []string{"a_R1.xml", "b_R2.xml"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}
}

func TestExtractAllCanceled(t *testing.T) {
	srcDir := t.TempDir()
	writeTestZip(t, srcDir, "a.zip", map[string][]byte{"a_R1.xml": []byte("a")})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ExtractAll(ctx, srcDir, t.TempDir()); err == nil {
		t.Fatalf("expected context error")
	}
}

func writeTestZip(t *testing.T, dir, name string, files map[string][]byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create zip: %v", err)
	}
	defer func() {
		_ = file.Close()
	}()

	writer := zip.NewWriter(file)
	for entry, data := range files {
		w, err := writer.Create(entry)
		if err != nil {
			t.Fatalf("failed to create zip entry: %v", err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("failed to write zip entry: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}
	return path
}
