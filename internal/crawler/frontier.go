package crawler

import (
	"context"
	"errors"
	"sync"
)

// ErrFrontierClosed is returned by Frontier.Take after Close has been called.
var ErrFrontierClosed = errors.New("frontier closed")

// Item is a unit of crawl work: a URL and its distance in link hops from
// the seed it was discovered from. Items are immutable once enqueued.
type Item struct {
	URL   string
	Depth int
}

// Frontier is a FIFO work queue of Items with completion tracking.
//
// Every item that is Put increments an unfinished counter; every item a
// worker obtains from Take must be acknowledged with exactly one Done.
// Wait returns once the counter drops to zero, which means no item is
// queued and no worker is still processing one (quiescence).
//
// The queue is unbounded. A page with a large fan-out grows it faster than
// workers drain it; the total is still bounded by the number of distinct
// URLs reachable within the depth limit, since claimed URLs are never
// fetched again.
//
// Design decision: We use a mutex and a condition variable rather than a
// channel because:
//  1. A channel needs a fixed capacity, and the frontier is unbounded
//  2. Quiescence depends on both the queue length and the in-flight count,
//     which must be read together
//  3. Close must wake every blocked taker at once
type Frontier struct {
	mu         sync.Mutex
	cond       *sync.Cond
	items      []Item
	unfinished int
	closed     bool
}

// NewFrontier creates an empty frontier.
func NewFrontier() *Frontier {
	f := &Frontier{
		items: make([]Item, 0),
	}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Put adds an item to the back of the queue.
// It returns false if the frontier has been closed.
func (f *Frontier) Put(item Item) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return false
	}
	f.items = append(f.items, item)
	f.unfinished++
	f.cond.Broadcast()
	return true
}

// Take removes and returns the item at the front of the queue, blocking
// until one is available. It returns ErrFrontierClosed once the frontier is
// closed, or the context error if ctx is done first. A nil error means the
// caller owns the item and must call Done exactly once.
func (f *Frontier) Take(ctx context.Context) (Item, error) {
	stop := context.AfterFunc(ctx, f.wake)
	defer stop()

	f.mu.Lock()
	defer f.mu.Unlock()

	for len(f.items) == 0 && !f.closed && ctx.Err() == nil {
		f.cond.Wait()
	}
	if f.closed {
		return Item{}, ErrFrontierClosed
	}
	if err := ctx.Err(); err != nil {
		return Item{}, err
	}

	item := f.items[0]
	f.items[0] = Item{}
	f.items = f.items[1:]
	return item, nil
}

// Done marks one previously taken item as finished.
// It panics if called more times than items were put.
func (f *Frontier) Done() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.unfinished <= 0 {
		panic("crawler: Frontier.Done called more times than Put")
	}
	f.unfinished--
	if f.unfinished == 0 {
		f.cond.Broadcast()
	}
}

// Wait blocks until every item put into the frontier has been marked done.
// It returns the context error if ctx is done first.
func (f *Frontier) Wait(ctx context.Context) error {
	stop := context.AfterFunc(ctx, f.wake)
	defer stop()

	f.mu.Lock()
	defer f.mu.Unlock()

	for f.unfinished > 0 && ctx.Err() == nil {
		f.cond.Wait()
	}
	if f.unfinished > 0 {
		return ctx.Err()
	}
	return nil
}

// Close shuts the frontier down. Blocked and future Take calls return
// ErrFrontierClosed, and Put becomes a no-op. Close is idempotent.
func (f *Frontier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	f.cond.Broadcast()
}

// Len returns the number of queued (not yet taken) items.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// Unfinished returns the number of items put but not yet marked done.
func (f *Frontier) Unfinished() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unfinished
}

// wake re-evaluates every waiter's condition. It runs when a context passed
// to Take or Wait is cancelled.
func (f *Frontier) wake() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cond.Broadcast()
}
