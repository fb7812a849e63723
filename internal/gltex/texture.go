package gltex

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/sirupsen/logrus"

	"texstream/internal/gpu"
)

// Source is what the resource object needs from the logical texture it
// shadows. *gpu.Texture satisfies it; the backend does not care where
// the description comes from.
type Source interface {
	Stamp() uint32
	DataStamp() uint32
	Type() gpu.TextureType
	MinMip() int
	MaxMip() int
	LevelSize(level int) (w, h int)
	EvalTotalSize() uint64
	EvalStoredSize() uint64
	Sampler() gpu.Sampler
	AutogenerateMips() bool
	IsStoredMipFaceAvailable(level, face int) bool
	StoredMipFace(level, face int) []byte
	NotifyMipFaceGPULoaded(level, face int)
}

// SyncState is the content-transfer state of a resource. It doubles as
// the ownership token for the resource's mutable fields: the render
// thread owns them at Idle, a transfer worker owns them at
// Transferring, and nobody mutates them at Pending.
type SyncState int32

const (
	SyncIdle SyncState = iota
	SyncPending
	SyncTransferring
)

func (s SyncState) String() string {
	switch s {
	case SyncIdle:
		return "idle"
	case SyncPending:
		return "pending"
	case SyncTransferring:
		return "transferring"
	}
	return "unknown"
}

// GLTexture is the device-side counterpart of one logical texture. It
// owns the GL name exclusively and tracks which version of the source
// its storage and content correspond to.
type GLTexture struct {
	backend *Backend
	source  Source

	id     uint32
	target uint32

	storageStamp uint32
	contentStamp uint32
	// Data stamp captured when a transfer was requested; what
	// contentStamp becomes if that transfer succeeds.
	pendingStamp uint32

	minMip, maxMip int
	// Per-level pixel dimensions captured at allocation time. Uploads
	// run against these, not the source's live dimensions, so an
	// in-flight transfer always targets the shape the storage has.
	levelDims [][2]int

	virtualSize uint64
	size        uint64

	syncState     atomic.Int32
	enqueued      atomic.Bool
	transferCount atomic.Uint64

	transferable bool
	destroyed    bool
}

// newGLTexture registers the resource with the accountant. The caller
// (the backend) supplies a freshly generated GL name; the resource
// owns it from here on.
func newGLTexture(b *Backend, source Source, id uint32, transferable bool) *GLTexture {
	// storageStamp stays 0 (stamps start at 1) until the first
	// successful allocation, so a fresh resource reads as invalid.
	t := &GLTexture{
		backend:      b,
		source:       source,
		id:           id,
		target:       textureTarget(source.Type()),
		minMip:       source.MinMip(),
		maxMip:       source.MaxMip(),
		virtualSize:  source.EvalTotalSize(),
		transferable: transferable,
	}
	b.mem.IncrementTextureCount()
	b.mem.ReportVirtualDelta(0, t.virtualSize)
	return t
}

// ID returns the GL texture name.
func (t *GLTexture) ID() uint32 { return t.id }

// Target returns the GL texture target.
func (t *GLTexture) Target() uint32 { return t.target }

// Size returns the bytes currently allocated on the device.
func (t *GLTexture) Size() uint64 { return t.size }

// VirtualSize returns the bytes the fully resolved texture would take.
func (t *GLTexture) VirtualSize() uint64 { return t.virtualSize }

// TransferCount returns the number of completed content transfers.
func (t *GLTexture) TransferCount() uint64 { return t.transferCount.Load() }

// SyncState returns the current transfer state. Atomic: the render
// thread uses this to decide whether the resource is safe to touch.
func (t *GLTexture) SyncState() SyncState { return SyncState(t.syncState.Load()) }

func (t *GLTexture) setSyncState(s SyncState) { t.syncState.Store(int32(s)) }

// IsInvalid reports whether the source's shape changed since storage
// was last allocated; storage must be rebuilt before anything else.
func (t *GLTexture) IsInvalid() bool {
	return t.storageStamp < t.source.Stamp()
}

// IsOutdated reports whether new content is waiting to be uploaded.
// Only meaningful at Idle; mid-transfer the answer is pinned false so
// a resource is never re-requested while in flight.
func (t *GLTexture) IsOutdated() bool {
	return t.SyncState() == SyncIdle && t.contentStamp < t.source.DataStamp()
}

// IsReady reports whether the resource can be bound for drawing this
// frame. Invalid storage dominates everything else.
func (t *GLTexture) IsReady() bool {
	if t.IsInvalid() {
		return false
	}
	if t.IsOutdated() || t.SyncState() != SyncIdle {
		return false
	}
	return true
}

// SetSize updates the resident byte count, keeping the accountant in
// step within the same call.
func (t *GLTexture) SetSize(bytes uint64) {
	t.backend.mem.ReportResidentDelta(t.size, bytes)
	t.size = bytes
}

// CreateTexture (re)allocates device storage for the source's current
// shape and applies sampler state, leaving the previous binding
// untouched. On success the resource stops being invalid. On a device
// error nothing is recorded and the next frame retries.
func (t *GLTexture) CreateTexture() {
	dev := t.backend.dev
	t.minMip = t.source.MinMip()
	t.maxMip = t.source.MaxMip()
	t.levelDims = make([][2]int, t.maxMip+1)
	for level := t.minMip; level <= t.maxMip; level++ {
		w, h := t.source.LevelSize(level)
		t.levelDims[level] = [2]int{w, h}
	}
	err := withPreservedTexture(dev, t.target, t.id, func() error {
		if err := t.allocateStorage(dev); err != nil {
			return err
		}
		return t.syncSampler(dev)
	})
	if err != nil {
		logrus.WithError(err).WithField("texture", t.id).Error("gltex: storage allocation failed")
		return
	}
	t.storageStamp = t.source.Stamp()
	t.SetSize(t.source.EvalStoredSize())
}

func (t *GLTexture) allocateStorage(dev Device) error {
	for _, face := range faceTargets(t.target) {
		for level := t.minMip; level <= t.maxMip; level++ {
			d := t.levelDims[level]
			dev.TexImage2D(face, int32(level), int32(d[0]), int32(d[1]), nil)
		}
	}
	return errors.Wrap(dev.Err(), "allocate storage")
}

func (t *GLTexture) syncSampler(dev Device) error {
	sampler := t.source.Sampler()
	filter := filterModes[sampler.Filter]
	dev.TexParameteri(t.target, gl.TEXTURE_WRAP_S, int32(wrapModes[sampler.WrapS]))
	dev.TexParameteri(t.target, gl.TEXTURE_WRAP_T, int32(wrapModes[sampler.WrapT]))
	dev.TexParameteri(t.target, gl.TEXTURE_WRAP_R, int32(wrapModes[sampler.WrapR]))
	dev.TexParameteri(t.target, gl.TEXTURE_MIN_FILTER, int32(filter.minify))
	dev.TexParameteri(t.target, gl.TEXTURE_MAG_FILTER, int32(filter.magnify))
	dev.TexParameteri(t.target, gl.TEXTURE_BASE_LEVEL, int32(t.minMip))
	dev.TexParameteri(t.target, gl.TEXTURE_MAX_LEVEL, int32(t.maxMip))
	return errors.Wrap(dev.Err(), "sync sampler")
}

// StartTransfer marks the resource Pending and captures the data stamp
// the upcoming upload corresponds to. Render thread only, and only
// from Idle.
func (t *GLTexture) StartTransfer() {
	t.pendingStamp = t.source.DataStamp()
	t.setSyncState(SyncPending)
}

// Transfer uploads every stored mip/face image into the bound storage.
// Runs on a transfer worker for transferable resources, on the render
// thread otherwise. The first device error aborts the remainder.
func (t *GLTexture) Transfer(dev Device) error {
	return withPreservedTexture(dev, t.target, t.id, func() error {
		for face, faceTarget := range faceTargets(t.target) {
			for level := t.minMip; level <= t.maxMip; level++ {
				if !t.source.IsStoredMipFaceAvailable(level, face) {
					continue
				}
				pix := t.source.StoredMipFace(level, face)
				if pix == nil {
					continue
				}
				d := t.levelDims[level]
				if len(pix) != d[0]*d[1]*gpu.BytesPerPixel {
					// Staged for a newer shape than the storage holds;
					// the reallocation pass picks this content up.
					continue
				}
				dev.TexSubImage2D(faceTarget, int32(level), 0, 0, int32(d[0]), int32(d[1]), pix)
				if err := dev.Err(); err != nil {
					return errors.Wrapf(err, "upload mip %d face %d", level, face)
				}
			}
		}
		return nil
	})
}

// FinishTransfer generates the remaining mip chain on the device when
// the source asks for it.
func (t *GLTexture) FinishTransfer(dev Device) {
	if !t.source.AutogenerateMips() {
		return
	}
	err := withPreservedTexture(dev, t.target, t.id, func() error {
		dev.GenerateMipmap(t.target)
		return dev.Err()
	})
	if err != nil {
		logrus.WithError(err).WithField("texture", t.id).Error("gltex: mip generation failed")
	}
}

// stagedMatchesStorage reports whether staged pixels exist for a
// mip/face and fit the allocated shape. Only those are uploaded, and
// only those may be released afterwards; staging for a newer shape
// must survive until the reallocation pass can use it.
func (t *GLTexture) stagedMatchesStorage(level, face int) bool {
	pix := t.source.StoredMipFace(level, face)
	if pix == nil {
		return false
	}
	d := t.levelDims[level]
	return len(pix) == d[0]*d[1]*gpu.BytesPerPixel
}

// postTransfer reconciles after a successful upload: the content stamp
// advances to the captured value, the transfer counter ticks, and the
// source is told which staged mip/face buffers the device now holds so
// it can drop them. Releasing ownership back to the render thread
// (the Idle store) comes last.
func (t *GLTexture) postTransfer() {
	t.contentStamp = t.pendingStamp
	t.transferCount.Add(1)

	switch t.source.Type() {
	case gpu.Tex2D:
		for level := t.minMip; level <= t.maxMip; level++ {
			if t.stagedMatchesStorage(level, 0) {
				t.source.NotifyMipFaceGPULoaded(level, 0)
			}
		}
	case gpu.TexCube:
		for face := 0; face < gpu.NumCubeFaces; face++ {
			for level := t.minMip; level <= t.maxMip; level++ {
				if t.stagedMatchesStorage(level, face) {
					t.source.NotifyMipFaceGPULoaded(level, face)
				}
			}
		}
	default:
		logrus.Warnf("gltex: postTransfer: texture type %d not supported", int(t.source.Type()))
	}

	t.enqueued.Store(false)
	t.setSyncState(SyncIdle)
}

// abortTransfer is the failure path of a worker upload: content stamp
// stays put, so the resource remains non-ready and the next frame's
// outdated check requests the upload again.
func (t *GLTexture) abortTransfer() {
	t.enqueued.Store(false)
	t.setSyncState(SyncIdle)
}

// syncTransfer is the non-transferable path: the upload happens right
// here on the render thread, and a failure is fatal since the caller
// has no fallback and a partially current resource must not be used.
func (t *GLTexture) syncTransfer() {
	// Straight to Transferring: no queued state is ever observable on
	// the synchronous path.
	t.pendingStamp = t.source.DataStamp()
	t.setSyncState(SyncTransferring)
	dev := t.backend.dev
	if err := t.Transfer(dev); err != nil {
		logrus.WithError(err).Fatalf("gltex: synchronous upload of texture %d failed", t.id)
	}
	t.FinishTransfer(dev)
	t.postTransfer()
}

// Destroy releases the GL name through the owning backend and reverses
// the virtual accounting entry, each exactly once. If the backend is
// already gone there is nothing to release against, but the virtual
// counter is process-wide and still gets reversed.
func (t *GLTexture) Destroy() {
	if t.destroyed {
		return
	}
	t.destroyed = true
	t.SetSize(0)
	if t.id != 0 && t.backend.alive() {
		t.backend.releaseTexture(t.id)
	}
	t.backend.mem.ReportVirtualDelta(t.virtualSize, 0)
	t.backend.mem.DecrementTextureCount()
}
