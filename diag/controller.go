// Package diag watches running scans and writes diagnostic artifacts when a
// walk stops making progress, typically on a hung network mount.
package diag

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/pprof"
	"sort"
	"sync"
	"time"

	"docview/logger"
	"docview/scanner"
)

type profileWriter interface {
	WriteTo(w io.Writer, debug int) error
}

type Options struct {
	SlowScanThreshold time.Duration
	Dir               string
	// GoroutineLeak writes a goroutine profile on Close.
	GoroutineLeak   bool
	NowFn           func() time.Time
	ProfileLookupFn func(name string) profileWriter
}

// Controller is a scanner.Emitter. Put it next to the real sink with
// scanner.Multi and it tracks every scan between its start and done events.
type Controller struct {
	slowScanThreshold time.Duration
	dir               string
	goroutineLeak     bool
	nowFn             func() time.Time
	profileLookupFn   func(name string) profileWriter

	mu             sync.Mutex
	active         map[string]scanner.Progress
	lastProgressAt time.Time
	lastProgress   uint64
	lastDumpAt     time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

func NewController(opts Options) *Controller {
	nowFn := opts.NowFn
	if nowFn == nil {
		nowFn = time.Now
	}
	profileLookup := opts.ProfileLookupFn
	if profileLookup == nil {
		profileLookup = func(name string) profileWriter {
			if p := pprof.Lookup(name); p != nil {
				return p
			}
			return nil
		}
	}
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}

	return &Controller{
		slowScanThreshold: opts.SlowScanThreshold,
		dir:               dir,
		goroutineLeak:     opts.GoroutineLeak,
		nowFn:             nowFn,
		profileLookupFn:   profileLookup,
		active:            make(map[string]scanner.Progress),
	}
}

// Emit records the latest counters of the scan the event belongs to.
func (c *Controller) Emit(_ string, p scanner.Progress) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	switch p.Stage {
	case scanner.StageDone:
		delete(c.active, p.ScanID)
		if len(c.active) == 0 {
			c.lastProgressAt = time.Time{}
			c.lastDumpAt = time.Time{}
		}
	case scanner.StageStart:
		if len(c.active) == 0 {
			c.lastProgressAt = c.nowFn()
		}
		c.active[p.ScanID] = p
	default:
		c.active[p.ScanID] = p
	}
}

// progressLocked sums the walked entries of all active scans.
func (c *Controller) progressLocked() uint64 {
	var total uint64
	for _, p := range c.active {
		total += p.ScannedDirs + p.ScannedFiles
	}
	return total
}

// Start launches the watchdog. It is a no-op without a threshold.
func (c *Controller) Start(ctx context.Context) {
	if c == nil || c.slowScanThreshold <= 0 || c.stopCh != nil {
		return
	}

	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	interval := c.slowScanThreshold / 2
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	if interval > 2*time.Second {
		interval = 2 * time.Second
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		defer close(c.doneCh)

		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stopCh:
				return
			case <-ticker.C:
				c.runProbe(c.nowFn())
			}
		}
	}()
}

func (c *Controller) Close() {
	if c == nil {
		return
	}
	if c.stopCh != nil {
		close(c.stopCh)
		if c.doneCh != nil {
			<-c.doneCh
		}
		c.stopCh = nil
		c.doneCh = nil
	}

	if c.goroutineLeak {
		if _, err := c.writeProfile("goroutine", 2); err != nil {
			logger.Warnf("Diagnostics goroutine profile dump failed: %v", err)
		}
	}
}

type stallReport struct {
	Event      string             `json:"event"`
	Timestamp  string             `json:"timestamp"`
	Progress   uint64             `json:"progress_count"`
	Threshold  int64              `json:"threshold_ms"`
	StalledFor int64              `json:"observed_stalled_ms"`
	Scans      []scanner.Progress `json:"scans"`
}

func (c *Controller) runProbe(now time.Time) {
	if c == nil || c.slowScanThreshold <= 0 {
		return
	}

	c.mu.Lock()
	if len(c.active) == 0 {
		c.mu.Unlock()
		return
	}
	progress := c.progressLocked()
	if progress != c.lastProgress || c.lastProgressAt.IsZero() {
		c.lastProgress = progress
		c.lastProgressAt = now
		c.mu.Unlock()
		return
	}
	stalledFor := now.Sub(c.lastProgressAt)
	shouldDump := stalledFor >= c.slowScanThreshold &&
		(c.lastDumpAt.IsZero() || now.Sub(c.lastDumpAt) >= c.slowScanThreshold)
	var report stallReport
	if shouldDump {
		c.lastDumpAt = now
		report = stallReport{
			Event:      "slow_scan_threshold_exceeded",
			Timestamp:  now.UTC().Format(time.RFC3339Nano),
			Progress:   progress,
			Threshold:  c.slowScanThreshold.Milliseconds(),
			StalledFor: stalledFor.Milliseconds(),
			Scans:      make([]scanner.Progress, 0, len(c.active)),
		}
		for _, p := range c.active {
			report.Scans = append(report.Scans, p)
		}
	}
	c.mu.Unlock()

	if shouldDump {
		sort.Slice(report.Scans, func(i, j int) bool { return report.Scans[i].ScanID < report.Scans[j].ScanID })
		if err := c.dumpSlowScanArtifacts(now, report); err != nil {
			logger.Warnf("Diagnostics slow-scan dump failed: %v", err)
		}
	}
}

func (c *Controller) dumpSlowScanArtifacts(now time.Time, report stallReport) error {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return err
	}
	ts := now.UTC().Format("20060102-150405.000")
	eventPath := filepath.Join(c.dir, fmt.Sprintf("docview-slow-scan-%s.json", ts))
	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(eventPath, b, 0600); err != nil {
		return err
	}
	logger.Warnf("Scan made no progress for %s, wrote %s", time.Duration(report.StalledFor)*time.Millisecond, eventPath)

	if _, err := c.writeProfile("goroutine", 2); err != nil {
		logger.Warnf("Diagnostics goroutine profile dump failed: %v", err)
	}
	return nil
}

func (c *Controller) writeProfile(name string, debug int) (string, error) {
	if c == nil {
		return "", fmt.Errorf("diagnostics controller is nil")
	}
	if c.profileLookupFn == nil {
		return "", fmt.Errorf("profile lookup function is nil")
	}
	profile := c.profileLookupFn(name)
	if profile == nil {
		return "", fmt.Errorf("pprof profile %q unavailable", name)
	}
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return "", err
	}
	ts := c.nowFn().UTC().Format("20060102-150405.000")
	path := filepath.Join(c.dir, fmt.Sprintf("docview-%s-profile-%s.pprof", name, ts))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := profile.WriteTo(f, debug); err != nil {
		return "", err
	}
	return path, nil
}
