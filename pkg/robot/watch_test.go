package robot

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestProfileWatcher_ReportsWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rig.yaml")
	if err := os.WriteFile(path, []byte("hz: 50\n"), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := WatchProfile(path)
	if err != nil {
		t.Fatalf("WatchProfile: %v", err)
	}
	defer w.Close()

	// unrelated files in the same directory are ignored
	if err := os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("hz: 60\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-w.Events:
		abs, _ := filepath.Abs(path)
		if got != abs {
			t.Errorf("event for %s, want %s", got, abs)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event for profile write")
	}
}
