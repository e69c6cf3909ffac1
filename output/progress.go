package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"docview/scanner"

	"github.com/schollz/progressbar/v3"
)

// ProgressBar renders scan progress as a terminal spinner.
type ProgressBar struct {
	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

// NewProgressBar writes to w, or stderr when w is nil. The bar stays hidden
// when DOCVIEW_DISABLE_PROGRESS is set to a truthy value.
func NewProgressBar(w io.Writer) *ProgressBar {
	if w == nil {
		w = os.Stderr
	}
	return &ProgressBar{bar: progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Scanning files"),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetVisibility(progressVisible()),
		progressbar.OptionFullWidth(),
	)}
}

func (b *ProgressBar) Emit(_ string, p scanner.Progress) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bar.Describe(fmt.Sprintf("Scanning files (%d matched, %d dirs)", p.MatchedFiles, p.ScannedDirs))
	_ = b.bar.Set64(int64(p.ScannedFiles))
	if p.Stage == scanner.StageDone {
		_ = b.bar.Finish()
	}
}

func progressVisible() bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv("DOCVIEW_DISABLE_PROGRESS")))
	return value != "1" && value != "true" && value != "yes" && value != "on"
}
