package pipeline

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("<mets/>"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestScanInputs_WalksDirectories(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.xml"))
	writeFile(t, filepath.Join(dir, "a.XML"))
	writeFile(t, filepath.Join(dir, "notes.txt"))
	writeFile(t, filepath.Join(dir, ".hidden.xml"))
	writeFile(t, filepath.Join(dir, ".git", "ignored.xml"))
	writeFile(t, filepath.Join(dir, "sub", "c.xml"))

	files, err := ScanInputs([]string{dir})
	if err != nil {
		t.Fatalf("ScanInputs: %v", err)
	}

	want := []string{
		filepath.Join(dir, "a.XML"),
		filepath.Join(dir, "b.xml"),
		filepath.Join(dir, "sub", "c.xml"),
	}
	if len(files) != len(want) {
		t.Fatalf("files: got %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Fatalf("files: got %v, want %v", files, want)
		}
	}
}

func TestScanInputs_ExplicitFilesKeptAsGiven(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	txt := filepath.Join(dir, "explicit.txt")
	xml2 := filepath.Join(dir, "z.xml")
	xml1 := filepath.Join(dir, "a.xml")
	writeFile(t, txt)
	writeFile(t, xml1)
	writeFile(t, xml2)

	// Explicit files keep the argument order and skip the extension filter.
	files, err := ScanInputs([]string{xml2, txt, xml1})
	if err != nil {
		t.Fatalf("ScanInputs: %v", err)
	}
	want := []string{xml2, txt, xml1}
	for i := range want {
		if files[i] != want[i] {
			t.Fatalf("files: got %v, want %v", files, want)
		}
	}
}

func TestScanInputs_MissingInput(t *testing.T) {
	t.Parallel()

	if _, err := ScanInputs([]string{filepath.Join(t.TempDir(), "gone")}); err == nil {
		t.Fatalf("expected an error for a missing input")
	}
}

func TestScanInputs_EmptyDirectory(t *testing.T) {
	t.Parallel()

	files, err := ScanInputs([]string{t.TempDir()})
	if err != nil {
		t.Fatalf("ScanInputs: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("files: got %v, want none", files)
	}
}
