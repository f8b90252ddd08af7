// Package progress reports per-file progress of long-running commands.
package progress

import (
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// Bar counts completed items. It is safe for concurrent use; a nil *Bar is a
// valid no-op.
type Bar struct {
	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

// New writes a bar for total items to w. With w == nil the bar is silent.
func New(w io.Writer, total int, description string) *Bar {
	if w == nil {
		w = io.Discard
	}
	return &Bar{
		bar: progressbar.NewOptions(total,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription(description),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		),
	}
}

func (b *Bar) Increment() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	_ = b.bar.Add(1)
}

func (b *Bar) Finish() error {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bar.Finish()
}
