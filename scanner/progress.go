package scanner

import "sync"

// ProgressEvent is the event name every scan progress payload is emitted under.
const ProgressEvent = "docview_scan_progress"

// Stage marks where a scan is in its lifecycle.
type Stage string

const (
	StageStart    Stage = "start"
	StageProgress Stage = "progress"
	StageDone     Stage = "done"
)

// Progress is the payload of a scan progress event. Counters never decrease
// within one scan.
type Progress struct {
	ScanID       string `json:"scanId,omitempty"`
	Stage        Stage  `json:"stage"`
	ScannedDirs  uint64 `json:"scannedDirs"`
	ScannedFiles uint64 `json:"scannedFiles"`
	MatchedFiles uint64 `json:"matchedFiles"`
	CurrentPath  string `json:"currentPath"`
}

// Emitter is the one-way sink scans report to. Emit must not block and has no
// way to report failure; a scan never waits on its listeners.
type Emitter interface {
	Emit(event string, p Progress)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(event string, p Progress)

func (f EmitterFunc) Emit(event string, p Progress) {
	f(event, p)
}

// Discard drops every event.
var Discard Emitter = EmitterFunc(func(string, Progress) {})

// Multi fans an event out to several emitters in order. Nil entries are skipped.
func Multi(emitters ...Emitter) Emitter {
	list := make([]Emitter, 0, len(emitters))
	for _, e := range emitters {
		if e != nil {
			list = append(list, e)
		}
	}
	return multiEmitter(list)
}

type multiEmitter []Emitter

func (m multiEmitter) Emit(event string, p Progress) {
	for _, e := range m {
		e.Emit(event, p)
	}
}

// ChannelEmitter delivers progress on a buffered channel. When the buffer is
// full the event is dropped rather than stalling the scan.
type ChannelEmitter struct {
	ch        chan Progress
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewChannelEmitter creates an emitter with the given buffer size (minimum 1).
func NewChannelEmitter(size int) *ChannelEmitter {
	if size < 1 {
		size = 1
	}
	return &ChannelEmitter{ch: make(chan Progress, size)}
}

// C returns the receive side of the channel.
func (c *ChannelEmitter) C() <-chan Progress {
	return c.ch
}

func (c *ChannelEmitter) Emit(_ string, p Progress) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.ch <- p:
	default:
	}
}

// Close closes the channel; later Emit calls are ignored.
func (c *ChannelEmitter) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.ch)
		c.mu.Unlock()
	})
}
