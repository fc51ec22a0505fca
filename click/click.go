// Package click coalesces raw button presses into single, double, triple
// (up to a configured maximum) clicks using a per-button debounce window.
package click

import (
	"sync"
	"time"
)

const (
	DefaultWindow   = 300 * time.Millisecond
	DefaultMaxCount = 3
)

// Press is one physical button press as reported by an input device.
type Press struct {
	Button string
	At     time.Time
}

// Click is a classified press sequence. Count is in 1..MaxCount.
type Click struct {
	Button string
	Count  int
	At     time.Time // time of the final press in the sequence
}

type Config struct {
	Window   time.Duration
	MaxCount int
}

// pending is one arena slot. gen is unique per armed timer so a callback can
// tell whether it still owns the cycle it was armed for.
type pending struct {
	count int
	last  time.Time
	gen   uint64
	timer *time.Timer
}

// Classifier turns presses into clicks. Presses on different buttons never
// interact.
//
// A press whose timestamp is a full window or more after the previous press
// on the same button starts a new cycle, even if the previous cycle's timer
// has not been serviced yet. The elapsed cycle is emitted first.
type Classifier struct {
	cfg Config
	now func() time.Time

	mu     sync.Mutex
	slots  map[string]*pending
	gen    uint64
	queue  []Click
	closed bool

	signal chan struct{}
	done   chan struct{}
	pumped chan struct{}
	out    chan Click
}

func NewClassifier(cfg Config) *Classifier {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.MaxCount <= 0 {
		cfg.MaxCount = DefaultMaxCount
	}
	c := &Classifier{
		cfg:    cfg,
		now:    time.Now,
		slots:  make(map[string]*pending),
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
		pumped: make(chan struct{}),
		out:    make(chan Click, 16),
	}
	go c.pump()
	return c
}

// Clicks delivers classified clicks in the order their windows closed.
func (c *Classifier) Clicks() <-chan Click { return c.out }

func (c *Classifier) Config() Config { return c.cfg }

// RegisterClick records one press on button, stamped with the current time.
func (c *Classifier) RegisterClick(button string) {
	c.RegisterPress(Press{Button: button, At: c.now()})
}

// Feed consumes presses until the channel closes.
func (c *Classifier) Feed(presses <-chan Press) {
	for p := range presses {
		c.RegisterPress(p)
	}
}

func (c *Classifier) RegisterPress(p Press) {
	if p.At.IsZero() {
		p.At = c.now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	slot, ok := c.slots[p.Button]
	if ok {
		slot.timer.Stop()
		if p.At.Sub(slot.last) >= c.cfg.Window {
			c.enqueueLocked(Click{Button: p.Button, Count: slot.count, At: slot.last})
			ok = false
		}
	}
	if !ok {
		slot = &pending{}
		c.slots[p.Button] = slot
	}
	if slot.count < c.cfg.MaxCount {
		slot.count++
	}
	slot.last = p.At
	c.gen++
	slot.gen = c.gen
	gen, button := slot.gen, p.Button
	slot.timer = time.AfterFunc(c.cfg.Window, func() { c.fire(button, gen) })
}

func (c *Classifier) fire(button string, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	slot, ok := c.slots[button]
	if !ok || slot.gen != gen || c.closed {
		return
	}
	c.enqueueLocked(Click{Button: button, Count: slot.count, At: slot.last})
}

func (c *Classifier) enqueueLocked(click Click) {
	delete(c.slots, click.Button)
	c.queue = append(c.queue, click)
	select {
	case c.signal <- struct{}{}:
	default:
	}
}

// pump moves queued clicks to out without holding the arena lock, so a slow
// consumer never stalls RegisterPress.
func (c *Classifier) pump() {
	defer close(c.pumped)
	for {
		select {
		case <-c.done:
			return
		case <-c.signal:
		}
		c.mu.Lock()
		batch := c.queue
		c.queue = nil
		c.mu.Unlock()
		for _, click := range batch {
			select {
			case c.out <- click:
			case <-c.done:
				return
			}
		}
	}
}

// Pending reports the in-progress count for button, 0 when idle.
func (c *Classifier) Pending(button string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if slot, ok := c.slots[button]; ok {
		return slot.count
	}
	return 0
}

// Close drops all open windows without emitting them and closes Clicks.
func (c *Classifier) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for button, slot := range c.slots {
		slot.timer.Stop()
		delete(c.slots, button)
	}
	c.mu.Unlock()

	close(c.done)
	<-c.pumped
	close(c.out)
}
