package action

import (
	"context"
	"fmt"
	"sync"

	"hark/click"
	"hark/log"
)

type binding struct {
	button string
	count  int
}

// Bindings maps (button, click count) to an Action. It is fixed once built.
type Bindings struct {
	maxCount int
	m        map[binding]Action
}

// NewBindings copies buttons, where buttons[name][i] is the action for a
// click count of i+1. Nil entries stay unbound.
func NewBindings(maxCount int, buttons map[string][]Action) *Bindings {
	if maxCount <= 0 {
		maxCount = click.DefaultMaxCount
	}
	b := &Bindings{maxCount: maxCount, m: make(map[binding]Action)}
	for button, actions := range buttons {
		for i, a := range actions {
			if a == nil || i >= maxCount {
				continue
			}
			b.m[binding{button, i + 1}] = a
		}
	}
	return b
}

func (b *Bindings) Lookup(button string, count int) (Action, bool) {
	if count > b.maxCount {
		count = b.maxCount
	}
	a, ok := b.m[binding{button, count}]
	return a, ok
}

const queueSize = 32

// Dispatcher runs bound actions. Executions for one button are serialized in
// arrival order; different buttons run concurrently.
type Dispatcher struct {
	bindings *Bindings
	ctx      context.Context
	cancel   context.CancelFunc

	mu      sync.Mutex
	workers map[string]chan Action
	closed  bool
	wg      sync.WaitGroup
}

func NewDispatcher(b *Bindings) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		bindings: b,
		ctx:      ctx,
		cancel:   cancel,
		workers:  make(map[string]chan Action),
	}
}

// Dispatch queues the action bound to c and returns immediately. Unbound
// clicks are dropped.
func (d *Dispatcher) Dispatch(c click.Click) {
	a, ok := d.bindings.Lookup(c.Button, c.Count)
	if !ok {
		log.Click(c.Button, c.Count, "")
		return
	}
	log.Click(c.Button, c.Count, a.Name())

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	q, ok := d.workers[c.Button]
	if !ok {
		q = make(chan Action, queueSize)
		d.workers[c.Button] = q
		d.wg.Add(1)
		go d.work(c.Button, q)
	}
	select {
	case q <- a:
	default:
		log.Warnf("dispatch: queue full for %s, dropping %s", c.Button, a.Name())
	}
}

// DispatchSync runs the bound action on the caller's goroutine.
func (d *Dispatcher) DispatchSync(ctx context.Context, c click.Click) error {
	a, ok := d.bindings.Lookup(c.Button, c.Count)
	if !ok {
		return fmt.Errorf("%w: nothing bound to %s x%d", ErrUnknownAction, c.Button, c.Count)
	}
	return a.Execute(ctx)
}

// Run dispatches every click from clicks until the channel closes.
func (d *Dispatcher) Run(clicks <-chan click.Click) {
	for c := range clicks {
		d.Dispatch(c)
	}
}

func (d *Dispatcher) work(button string, q <-chan Action) {
	defer d.wg.Done()
	for a := range q {
		if err := a.Execute(d.ctx); err != nil {
			log.Errorf("action %s on %s failed: %v", a.Name(), button, err)
		}
	}
}

// Close stops accepting clicks and waits for queued actions to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, q := range d.workers {
		close(q)
	}
	d.mu.Unlock()
	d.wg.Wait()
	d.cancel()
}
