package datasets

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFiles(t *testing.T) {
	ds := &Dataset{
		Train: []string{"a.png", "b.png"},
		Val:   []string{"c.png"},
		Test:  []string{"d.png"},
	}

	train, err := ds.Files(MethodTrain)
	if err != nil {
		t.Fatalf("Files(train) failed: %v", err)
	}
	if len(train) != 2 {
		t.Fatalf("train has %d files, want 2", len(train))
	}
	val, err := ds.Files(MethodVal)
	if err != nil || len(val) != 1 || val[0] != "c.png" {
		t.Fatalf("Files(val) = %v, %v", val, err)
	}
	test, err := ds.Files(MethodTest)
	if err != nil || len(test) != 1 || test[0] != "d.png" {
		t.Fatalf("Files(test) = %v, %v", test, err)
	}

	if _, err := ds.Files("validate"); err == nil {
		t.Fatalf("expected error for unknown method")
	}
}

func TestGlobFiles(t *testing.T) {
	tmp := t.TempDir()
	for _, name := range []string{"one.png", "two.png"} {
		if err := os.WriteFile(filepath.Join(tmp, name), []byte{0}, 0o644); err != nil {
			t.Fatalf("failed to write fixture: %v", err)
		}
	}

	paths, err := GlobFiles(filepath.Join(tmp, "*.png"))
	if err != nil {
		t.Fatalf("GlobFiles failed: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("matched %d files, want 2", len(paths))
	}

	if _, err := GlobFiles(filepath.Join(tmp, "*.jpg")); err == nil {
		t.Fatalf("expected error when nothing matches")
	}
}
