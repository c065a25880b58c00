// Package notify implements the transient notification channel (a
// toast). A message is shown for a duration and then cleared. The latest
// call always wins: it replaces the visible message and restarts the
// timer. Nothing is queued.
package notify

import (
	"sync"
	"time"
)

// DefaultDuration is how long Notify keeps a message visible.
const DefaultDuration = 2000 * time.Millisecond

// Notifier is what components use to surface transient messages.
type Notifier interface {
	Notify(msg string)
	NotifyFor(msg string, d time.Duration)
}

// Display renders the current message. It is called with the message
// when one is shown and with "" when it is cleared. It must not call
// back into the Channel.
type Display func(msg string)

// Channel is a last-call-wins Notifier.
//
// Thread-safety: Channel is safe for concurrent use via internal mutex.
type Channel struct {
	// render serializes Display calls; it is taken before mu.
	render sync.Mutex

	mu      sync.Mutex
	display Display
	current string
	timer   *time.Timer
	gen     uint64
	closed  bool

	duration time.Duration
}

// Option configures a Channel.
type Option func(*Channel)

// WithDuration sets how long Notify keeps a message visible.
func WithDuration(d time.Duration) Option {
	return func(c *Channel) {
		if d > 0 {
			c.duration = d
		}
	}
}

// NewChannel creates a channel rendering through display (may be nil).
func NewChannel(display Display, opts ...Option) *Channel {
	c := &Channel{display: display, duration: DefaultDuration}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Notify shows msg for the channel's duration (DefaultDuration unless
// configured).
func (c *Channel) Notify(msg string) {
	c.NotifyFor(msg, c.duration)
}

// NotifyFor shows msg for d, replacing any visible message and resetting
// its timer. A non-positive d uses the channel's duration.
func (c *Channel) NotifyFor(msg string, d time.Duration) {
	if d <= 0 {
		d = c.duration
	}

	c.render.Lock()
	defer c.render.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.gen++
	gen := c.gen
	if c.timer != nil {
		c.timer.Stop()
	}
	c.current = msg
	c.timer = time.AfterFunc(d, func() { c.expire(gen) })
	display := c.display
	c.mu.Unlock()

	if display != nil {
		display(msg)
	}
}

// expire clears the message shown by generation gen. A timer that fired
// after being superseded finds a newer generation and does nothing. The
// generation is checked under the render lock, so a clear is never drawn
// over a newer message.
func (c *Channel) expire(gen uint64) {
	c.render.Lock()
	defer c.render.Unlock()

	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.current = ""
	c.timer = nil
	display := c.display
	c.mu.Unlock()

	if display != nil {
		display("")
	}
}

// Current returns the visible message, or "" when nothing is shown.
func (c *Channel) Current() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Close stops the pending timer. Later calls to Notify are ignored.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.closed = true
	c.current = ""
}

// Message is one notification captured by a Recorder.
type Message struct {
	Text     string
	Duration time.Duration
}

// Recorder is a Notifier that keeps every message. It never expires
// anything and is meant for tests and scenario traces.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

// Notify records msg with DefaultDuration.
func (r *Recorder) Notify(msg string) {
	r.NotifyFor(msg, DefaultDuration)
}

// NotifyFor records msg with d.
func (r *Recorder) NotifyFor(msg string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Text: msg, Duration: d})
}

// Messages returns all recorded messages in order.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Last returns the most recent message text, or "".
func (r *Recorder) Last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return ""
	}
	return r.messages[len(r.messages)-1].Text
}
