package diag

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"docview/logger"
	"docview/scanner"
)

func init() {
	logger.Init("error")
}

type fakeProfileWriter struct {
	content string
}

func (f fakeProfileWriter) WriteTo(w io.Writer, debug int) error {
	_, err := io.WriteString(w, f.content)
	return err
}

func fakeLookup(name string) profileWriter {
	if name == "goroutine" {
		return fakeProfileWriter{content: "goroutine-profile"}
	}
	return nil
}

func TestRunProbeEmitsSlowScanArtifacts(t *testing.T) {
	now := time.Date(2026, 2, 19, 12, 0, 0, 0, time.UTC)
	dir := t.TempDir()

	controller := NewController(Options{
		SlowScanThreshold: 2 * time.Second,
		Dir:               dir,
		NowFn:             func() time.Time { return now },
		ProfileLookupFn:   fakeLookup,
	})
	controller.Emit(scanner.ProgressEvent, scanner.Progress{ScanID: "s1", Stage: scanner.StageStart})
	controller.Emit(scanner.ProgressEvent, scanner.Progress{
		ScanID: "s1", Stage: scanner.StageProgress, ScannedDirs: 2, ScannedFiles: 40, CurrentPath: "/mnt/slow",
	})

	controller.runProbe(now.Add(time.Second))
	controller.runProbe(now.Add(4 * time.Second))

	slow, err := filepath.Glob(filepath.Join(dir, "docview-slow-scan-*.json"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(slow) != 1 {
		t.Fatalf("expected 1 slow-scan artifact, got %d", len(slow))
	}
	data, err := os.ReadFile(slow[0])
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var report stallReport
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Progress != 42 || len(report.Scans) != 1 || report.Scans[0].CurrentPath != "/mnt/slow" {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.StalledFor != 3000 {
		t.Fatalf("expected 3000ms stall, got %d", report.StalledFor)
	}

	profiles, _ := filepath.Glob(filepath.Join(dir, "docview-goroutine-profile-*.pprof"))
	if len(profiles) != 1 {
		t.Fatalf("expected goroutine profile alongside the report, got %d", len(profiles))
	}
}

func TestRunProbeIgnoresMovingAndFinishedScans(t *testing.T) {
	now := time.Date(2026, 2, 19, 12, 0, 0, 0, time.UTC)
	dir := t.TempDir()
	controller := NewController(Options{
		SlowScanThreshold: time.Second,
		Dir:               dir,
		NowFn:             func() time.Time { return now },
		ProfileLookupFn:   fakeLookup,
	})

	controller.runProbe(now.Add(time.Hour))

	controller.Emit(scanner.ProgressEvent, scanner.Progress{Stage: scanner.StageStart})
	for i := 1; i <= 3; i++ {
		controller.Emit(scanner.ProgressEvent, scanner.Progress{Stage: scanner.StageProgress, ScannedFiles: uint64(i * 10)})
		controller.runProbe(now.Add(time.Duration(i) * 2 * time.Second))
	}
	controller.Emit(scanner.ProgressEvent, scanner.Progress{Stage: scanner.StageDone, ScannedFiles: 30})
	controller.runProbe(now.Add(time.Hour))

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no artifacts, got %d", len(entries))
	}
}

func TestWriteProfileAvailableAndUnavailable(t *testing.T) {
	now := time.Date(2026, 2, 19, 12, 0, 0, 0, time.UTC)
	dir := t.TempDir()
	controller := NewController(Options{
		Dir:             dir,
		NowFn:           func() time.Time { return now },
		ProfileLookupFn: fakeLookup,
	})

	path, err := controller.writeProfile("goroutine", 0)
	if err != nil {
		t.Fatalf("write available profile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read written profile: %v", err)
	}
	if string(data) != "goroutine-profile" {
		t.Fatalf("unexpected profile content: %q", string(data))
	}
	if !strings.HasPrefix(filepath.Base(path), "docview-goroutine-profile-") {
		t.Fatalf("unexpected profile name %s", path)
	}

	if _, err := controller.writeProfile("heap-missing", 0); err == nil {
		t.Fatal("expected unavailable profile to return error")
	}
}

func TestCloseWritesGoroutineLeakProfileWhenEnabled(t *testing.T) {
	dir := t.TempDir()
	controller := NewController(Options{
		SlowScanThreshold: time.Hour,
		Dir:               dir,
		GoroutineLeak:     true,
		ProfileLookupFn:   fakeLookup,
	})
	controller.Start(context.Background())
	controller.Close()

	matches, err := filepath.Glob(filepath.Join(dir, "docview-goroutine-profile-*.pprof"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 goroutine profile file, got %d", len(matches))
	}
}

func TestNilControllerIsSafe(t *testing.T) {
	var c *Controller
	c.Emit(scanner.ProgressEvent, scanner.Progress{Stage: scanner.StageStart})
	c.Start(context.Background())
	c.Close()
}
