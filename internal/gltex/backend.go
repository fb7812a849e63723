package gltex

import (
	"sync"
	"sync/atomic"

	"texstream/internal/gpu"
)

// Config tunes a Backend.
type Config struct {
	// TransferWorkers is the number of upload goroutines (min 1).
	TransferWorkers int
	// QueueCapacity bounds the transfer queue; <= 0 is unbounded.
	QueueCapacity int
	// WorkerSetup runs once per worker before it starts uploading,
	// e.g. to make a shared GL context current on a locked thread.
	WorkerSetup func()
	// Accountant overrides the process-wide accountant; nil uses it.
	Accountant *gpu.Accountant
}

// Backend owns the device-side resources for a set of logical
// textures and runs the per-frame preparation pass that keeps them
// allocated and current. All methods except the transfer machinery
// they trigger must be called from the render thread.
type Backend struct {
	dev   Device
	mem   *gpu.Accountant
	coord *Coordinator

	textures map[Source]*GLTexture

	// Resources destroyed while a worker still held them; swept by
	// Recycle once the worker lets go. Render thread only.
	condemned []*GLTexture

	// GL names of destroyed resources; deletable only on the thread
	// owning the context, so they wait here for Recycle.
	trashMu sync.Mutex
	trash   []uint32

	closed atomic.Bool
}

// NewBackend wires a backend to a device and starts its transfer
// coordinator.
func NewBackend(dev Device, cfg Config) *Backend {
	mem := cfg.Accountant
	if mem == nil {
		mem = gpu.Accounting()
	}
	mem.SetDedicatedMemory(dev.DedicatedMemory())
	return &Backend{
		dev:      dev,
		mem:      mem,
		coord:    NewCoordinator(dev, cfg.TransferWorkers, cfg.QueueCapacity, cfg.WorkerSetup),
		textures: make(map[Source]*GLTexture),
	}
}

// Accountant returns the accountant this backend reports to.
func (b *Backend) Accountant() *gpu.Accountant { return b.mem }

// Coordinator returns the backend's transfer coordinator.
func (b *Backend) Coordinator() *Coordinator { return b.coord }

func (b *Backend) alive() bool { return !b.closed.Load() }

// CreateTexture returns the resource shadowing source, creating it on
// first sight with storage already allocated and accounting applied.
func (b *Backend) CreateTexture(source Source, transferable bool) *GLTexture {
	if t, ok := b.textures[source]; ok {
		return t
	}
	t := newGLTexture(b, source, b.dev.GenTexture(), transferable)
	t.CreateTexture()
	b.textures[source] = t
	return t
}

// Prepare is the per-frame entry point: it brings the resource for
// source as far toward ready as this frame allows and returns the GL
// name to bind, or 0 when the resource cannot be drawn yet.
func (b *Backend) Prepare(source Source, transferable bool) uint32 {
	t := b.CreateTexture(source, transferable)

	if t.IsInvalid() {
		// A pending request that never reached the queue has no worker
		// attached; abandon it so the new shape can be built now.
		if t.SyncState() == SyncPending && !t.enqueued.Load() {
			t.setSyncState(SyncIdle)
		}
		// Reallocation must not race an in-flight upload against the
		// old shape; let it finish and rebuild next frame.
		if t.SyncState() != SyncIdle {
			return 0
		}
		t.CreateTexture()
		if t.IsInvalid() {
			// Allocation failed; retried next frame.
			return 0
		}
	}

	if t.transferable {
		if t.IsOutdated() {
			t.StartTransfer()
		}
		// A Pending resource that never made it into the queue (full,
		// or rejected last frame) is retried here.
		if t.SyncState() == SyncPending && !t.enqueued.Load() {
			b.coord.Enqueue(t)
		}
	} else if t.IsOutdated() {
		t.syncTransfer()
	}

	if t.IsReady() {
		return t.id
	}
	return 0
}

// DestroyTexture drops the resource shadowing source, if any. While a
// worker holds the resource its GL name must stay alive, so destruction
// is deferred to Recycle; the resource leaves the registry either way.
func (b *Backend) DestroyTexture(source Source) {
	t, ok := b.textures[source]
	if !ok {
		return
	}
	delete(b.textures, source)
	if t.enqueued.Load() {
		b.condemned = append(b.condemned, t)
		return
	}
	t.Destroy()
}

// releaseTexture parks a GL name for deletion on the render thread.
func (b *Backend) releaseTexture(id uint32) {
	b.trashMu.Lock()
	b.trash = append(b.trash, id)
	b.trashMu.Unlock()
}

// Recycle destroys condemned resources whose worker has finished and
// deletes parked GL names. Call once per frame from the render thread.
func (b *Backend) Recycle() {
	if len(b.condemned) > 0 {
		kept := b.condemned[:0]
		for _, t := range b.condemned {
			if t.enqueued.Load() {
				kept = append(kept, t)
				continue
			}
			t.Destroy()
		}
		b.condemned = kept
	}
	b.trashMu.Lock()
	trash := b.trash
	b.trash = nil
	b.trashMu.Unlock()
	for _, id := range trash {
		b.dev.DeleteTexture(id)
	}
}

// Close drains the transfer coordinator, destroys every remaining
// resource and deletes their GL names. The backend is dead afterwards;
// resources destroyed later skip the release call but still reverse
// their virtual accounting.
func (b *Backend) Close() {
	b.coord.Shutdown()
	// Workers are joined; condemned resources are free to go.
	for _, t := range b.condemned {
		t.Destroy()
	}
	b.condemned = nil
	for source, t := range b.textures {
		delete(b.textures, source)
		t.Destroy()
	}
	b.Recycle()
	b.closed.Store(true)
}
