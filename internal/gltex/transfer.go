package gltex

import (
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Coordinator moves content uploads off the render thread. Resources
// are dequeued in FIFO order; transfer order across resources carries
// no guarantee and none is needed. A single resource is never in the
// queue twice: the backend only enqueues from Idle.
type Coordinator struct {
	dev   Device
	setup func()

	mu       sync.Mutex
	cond     *sync.Cond
	queue    []*GLTexture
	capacity int
	closed   bool

	group errgroup.Group
}

// NewCoordinator starts the worker goroutines. capacity <= 0 leaves
// the queue unbounded. setup, if non-nil, runs once at the start of
// each worker; the demo uses it to lock the OS thread and make a
// shared GL context current.
func NewCoordinator(dev Device, workers, capacity int, setup func()) *Coordinator {
	if workers < 1 {
		workers = 1
	}
	c := &Coordinator{
		dev:      dev,
		setup:    setup,
		capacity: capacity,
	}
	c.cond = sync.NewCond(&c.mu)
	for i := 0; i < workers; i++ {
		c.group.Go(c.worker)
	}
	return c
}

// Enqueue hands a Pending resource to the workers. Returns false when
// the queue is at capacity or the coordinator is shut down; the
// resource stays Pending and the caller retries next frame.
func (c *Coordinator) Enqueue(t *GLTexture) bool {
	if s := t.SyncState(); s != SyncPending {
		logrus.Warnf("gltex: enqueue of texture %d in state %s rejected", t.id, s)
		return false
	}
	if t.enqueued.Load() {
		// Already queued or mid-transfer; at most one in flight.
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	if c.capacity > 0 && len(c.queue) >= c.capacity {
		return false
	}
	c.queue = append(c.queue, t)
	t.enqueued.Store(true)
	c.cond.Signal()
	return true
}

// QueueLen returns the number of transfers waiting to start.
func (c *Coordinator) QueueLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

func (c *Coordinator) worker() error {
	if c.setup != nil {
		c.setup()
	}
	for {
		c.mu.Lock()
		for len(c.queue) == 0 && !c.closed {
			c.cond.Wait()
		}
		if len(c.queue) == 0 {
			c.mu.Unlock()
			return nil
		}
		t := c.queue[0]
		c.queue = c.queue[1:]
		c.mu.Unlock()

		t.setSyncState(SyncTransferring)
		if err := t.Transfer(c.dev); err != nil {
			// The resource stays non-ready; the next frame's
			// outdated check will request the upload again.
			logrus.WithError(err).WithField("texture", t.id).Error("gltex: transfer failed")
			t.abortTransfer()
			continue
		}
		t.FinishTransfer(c.dev)
		t.postTransfer()
	}
}

// Shutdown drains the queue and joins the workers. Queued and
// in-flight transfers run to completion first: a half-done upload
// would leave device memory with undefined content. Safe to call
// more than once.
func (c *Coordinator) Shutdown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.group.Wait()
		return
	}
	c.closed = true
	c.cond.Broadcast()
	c.mu.Unlock()
	c.group.Wait()
}
