// Package output renders scan results and progress for the command line and
// exports scan telemetry.
package output

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"docview/scanner"
	"docview/viewer"
)

// Writer writes values to a file, or to stdout when the name is empty or
// "-". Files ending in .csv receive scan results as CSV rows; everything
// else is indented JSON.
type Writer struct {
	mu     sync.Mutex
	file   *os.File
	buf    *bufio.Writer
	format string
}

// New opens name for writing, truncating an existing file.
func New(name string) (*Writer, error) {
	w := &Writer{format: "json"}
	if name == "" || name == "-" {
		w.buf = bufio.NewWriter(os.Stdout)
		return w, nil
	}
	if strings.EqualFold(filepath.Ext(name), ".csv") {
		w.format = "csv"
	}
	if dir := filepath.Dir(name); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create output directory %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("open output %s: %w", name, err)
	}
	w.file = f
	w.buf = bufio.NewWriterSize(f, 64*1024)
	return w, nil
}

// Write renders value and flushes it.
func (w *Writer) Write(value any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var err error
	if w.format == "csv" {
		err = writeCSV(w.buf, value)
	} else {
		err = writeJSON(w.buf, value)
	}
	if err != nil {
		return err
	}
	return w.buf.Flush()
}

// Close flushes and closes the underlying file. Stdout is left open.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.buf.Flush(); err != nil {
		return err
	}
	if w.file == nil {
		return nil
	}
	if err := w.file.Sync(); err != nil {
		_ = w.file.Close()
		return err
	}
	return w.file.Close()
}

func writeJSON(out io.Writer, value any) error {
	data, err := jsonMarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	if _, err := out.Write(data); err != nil {
		return err
	}
	_, err = io.WriteString(out, "\n")
	return err
}

var csvHeader = []string{"root", "label", "virtual_path", "abs_path", "category"}

func writeCSV(out io.Writer, value any) error {
	var root, label string
	var files []scanner.FileEntry
	switch v := value.(type) {
	case *viewer.ScanResult:
		if v == nil {
			return nil
		}
		root, label, files = v.Root, v.Label, v.Files
	case viewer.ScanResult:
		root, label, files = v.Root, v.Label, v.Files
	case []scanner.FileEntry:
		files = v
	default:
		return fmt.Errorf("csv output supports scan results only, got %T", value)
	}

	cw := csv.NewWriter(out)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, f := range files {
		if err := cw.Write([]string{root, label, f.VirtualPath, f.AbsolutePath, f.Category.String()}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
