package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"docview/logger"
)

func init() {
	logger.Init("error")
}

func newRecent(t *testing.T) RecentFile {
	t.Helper()
	return RecentFile{Path: filepath.Join(t.TempDir(), AppDirName, "recent")}
}

func TestRecentLoadMissingFile(t *testing.T) {
	entries, err := newRecent(t).Load(0)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty list, got %v", entries)
	}
}

func TestRecentLoadSanitizes(t *testing.T) {
	r := newRecent(t)
	content := "  /a  \n\n   \n/b\r\n/a\n/c\n"
	if err := WriteFileAtomic(r.Path, []byte(content), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	entries, err := r.Load(0)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if strings.Join(entries, ",") != "/a,/b,/c" {
		t.Fatalf("unexpected entries %q", entries)
	}
	entries, _ = r.Load(2)
	if len(entries) != 2 {
		t.Fatalf("expected limit to truncate, got %v", entries)
	}
}

func TestRecordThenLoad(t *testing.T) {
	r := newRecent(t)
	if err := r.Record("/docs/one"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := r.Record("/docs/two"); err != nil {
		t.Fatalf("record: %v", err)
	}
	entries, err := r.Load(1)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(entries) != 1 || entries[0] != "/docs/two" {
		t.Fatalf("expected most recent first, got %v", entries)
	}
}

func TestRecordTwiceKeepsOneOccurrence(t *testing.T) {
	r := newRecent(t)
	for _, p := range []string{"/p", "/q", "/p", "/p"} {
		if err := r.Record(p); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	entries, _ := r.Load(0)
	if strings.Join(entries, ",") != "/p,/q" {
		t.Fatalf("unexpected entries %v", entries)
	}
	data, _ := os.ReadFile(r.Path)
	if string(data) != "/p\n/q\n" {
		t.Fatalf("unexpected file content %q", data)
	}
}

func TestRecordEnforcesMaximum(t *testing.T) {
	r := newRecent(t)
	for i := 1; i <= DefaultRecentLimit+1; i++ {
		if err := r.Record(fmt.Sprintf("/path/%02d", i)); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	entries, _ := r.Load(100)
	if len(entries) != DefaultRecentLimit {
		t.Fatalf("expected %d entries, got %d", DefaultRecentLimit, len(entries))
	}
	if entries[0] != "/path/21" {
		t.Fatalf("expected newest first, got %s", entries[0])
	}
	for _, e := range entries {
		if e == "/path/01" {
			t.Fatal("least recently used entry should have been dropped")
		}
	}

	small := RecentFile{Path: r.Path, Max: 3}
	if err := small.Record("/path/new"); err != nil {
		t.Fatalf("record: %v", err)
	}
	entries, _ = small.Load(0)
	if len(entries) != 3 || entries[0] != "/path/new" {
		t.Fatalf("configured maximum not enforced: %v", entries)
	}
}

func TestRecordBlankIsNoop(t *testing.T) {
	r := newRecent(t)
	if err := r.Record("  \r\n "); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := os.Stat(r.Path); !os.IsNotExist(err) {
		t.Fatal("blank entries should not create the file")
	}
	if err := r.Record("/with\nbreak"); err != nil {
		t.Fatalf("record: %v", err)
	}
	entries, _ := r.Load(0)
	if len(entries) != 1 || entries[0] != "/withbreak" {
		t.Fatalf("embedded newlines should be stripped: %q", entries)
	}
}

func TestRecordReplacesUnreadableList(t *testing.T) {
	r := newRecent(t)
	// A directory where the file should be makes reads fail.
	if err := os.MkdirAll(r.Path, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if _, err := r.Load(0); err == nil {
		t.Fatal("expected load error for a directory")
	}
	if err := r.Record("/fresh"); err != nil {
		t.Fatalf("record should replace the unreadable list: %v", err)
	}
	entries, err := r.Load(0)
	if err != nil || len(entries) != 1 || entries[0] != "/fresh" {
		t.Fatalf("unexpected entries %v (%v)", entries, err)
	}
}
