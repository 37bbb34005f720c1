package metadata

import (
	"context"
	"sync"
	"time"
)

// Debouncer coalesces bursts of URL changes into one fetch. Each Submit
// restarts the window; only the last URL of a burst is fetched. A newer
// Submit cancels a fetch already in flight and its result is dropped.
type Debouncer struct {
	fetcher Fetcher
	window  time.Duration
	deliver func(url string, md Metadata)

	mu     sync.Mutex
	seq    uint64
	timer  *time.Timer
	cancel context.CancelFunc
	closed bool
}

// NewDebouncer calls deliver with the metadata of the surviving URL.
// deliver runs on a background goroutine.
func NewDebouncer(f Fetcher, window time.Duration, deliver func(url string, md Metadata)) *Debouncer {
	return &Debouncer{fetcher: f, window: window, deliver: deliver}
}

// Submit schedules a fetch of url after the window.
func (d *Debouncer) Submit(url string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.seq++
	seq := d.seq
	d.stopLocked()
	d.timer = time.AfterFunc(d.window, func() { d.fire(seq, url) })
}

// Cancel drops the pending fetch, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	d.stopLocked()
}

// Close cancels pending work. Later Submits are ignored.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	d.seq++
	d.stopLocked()
}

// Pending reports whether a fetch is scheduled or running.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.timer != nil || d.cancel != nil
}

func (d *Debouncer) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}

func (d *Debouncer) fire(seq uint64, url string) {
	d.mu.Lock()
	if d.closed || seq != d.seq {
		d.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.timer = nil
	d.cancel = cancel
	d.mu.Unlock()

	md := d.fetcher.Fetch(ctx, url)

	d.mu.Lock()
	current := !d.closed && seq == d.seq
	d.mu.Unlock()

	if current {
		d.deliver(url, md)
	}

	d.mu.Lock()
	if seq == d.seq {
		d.cancel = nil
	}
	d.mu.Unlock()
	cancel()
}
