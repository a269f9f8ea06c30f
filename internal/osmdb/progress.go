package osmdb

import (
	"context"
	"io"
	"sync/atomic"
	"time"
)

// progressInterval is how often Load reports how far into the input it is
var progressInterval = 5 * time.Second

// ProgressTicker calls a function periodically until its context ends
type ProgressTicker struct {
	ctx      context.Context
	callback func()
	interval time.Duration
}

// NewProgressTicker creates a new progress ticker
func NewProgressTicker(ctx context.Context, interval time.Duration, callback func()) *ProgressTicker {
	return &ProgressTicker{
		ctx:      ctx,
		callback: callback,
		interval: interval,
	}
}

// Run blocks, calling the callback every interval
func (p *ProgressTicker) Run() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.callback()
		}
	}
}

// countingReader counts bytes read from the underlying (compressed) file
type countingReader struct {
	r io.Reader
	n atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}
