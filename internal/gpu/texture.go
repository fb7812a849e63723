package gpu

import (
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
)

// TextureType identifies the dimensionality of a texture.
type TextureType int

const (
	Tex2D TextureType = iota
	TexCube
)

// NumCubeFaces is the face count of a cube texture, laid out +X,-X,+Y,-Y,+Z,-Z.
const NumCubeFaces = 6

// MaxMipLevel bounds the mip chain of any texture (level 0 is 2^MaxMipLevel texels wide at most).
const MaxMipLevel = 16

// BytesPerPixel is fixed: all host-side content is RGBA8.
const BytesPerPixel = 4

// WrapMode selects the sampler addressing behavior outside [0,1).
type WrapMode int

const (
	WrapRepeat WrapMode = iota
	WrapMirror
	WrapClamp
	WrapBorder
	WrapMirrorOnce

	NumWrapModes
)

// FilterMode selects the sampler minify/magnify/mip filtering combination.
type FilterMode int

const (
	FilterMinMagPoint FilterMode = iota
	FilterMinPointMagLinear
	FilterMinLinearMagPoint
	FilterMinMagLinear
	FilterMinMagMipPoint
	FilterMinMagPointMipLinear
	FilterMinPointMagLinearMipPoint
	FilterMinPointMagMipLinear
	FilterMinLinearMagMipPoint
	FilterMinLinearMagPointMipLinear
	FilterMinMagLinearMipPoint
	FilterMinMagMipLinear
	FilterAnisotropic

	NumFilterModes
)

// Sampler describes how a texture is sampled.
type Sampler struct {
	Filter              FilterMode
	WrapS, WrapT, WrapR WrapMode
}

// DefaultSampler returns a trilinear repeat sampler.
func DefaultSampler() Sampler {
	return Sampler{Filter: FilterMinMagMipLinear}
}

type mipFace struct {
	level int
	face  int
}

// Texture is the logical texture description object. It owns the
// host-side staging pixels and the version stamps a backend resource
// compares against to detect staleness. The shape stamp advances on
// dimension changes, the data stamp on content changes; both only ever
// increase.
//
// Stamps are atomics because the render thread and a transfer worker
// may read them concurrently. The staging map and the dimension fields
// are mutex-guarded: SetMipFace (owner) and NotifyMipFaceGPULoaded
// (worker) can race on the map, and the owner may Resize while a
// worker still reads level sizes for an in-flight upload.
type Texture struct {
	typ            TextureType
	width, height  int
	levels         int
	minMip, maxMip int
	autogenMips    bool
	sampler        Sampler

	stamp     atomic.Uint32
	dataStamp atomic.Uint32

	mu     sync.Mutex
	stored map[mipFace][]byte
}

// NewTexture2D creates a 2D logical texture. levels <= 0 selects the
// full mip chain for the given dimensions.
func NewTexture2D(width, height, levels int, sampler Sampler) *Texture {
	return newTexture(Tex2D, width, height, levels, sampler)
}

// NewTextureCube creates a cube logical texture with square faces.
// levels <= 0 selects the full mip chain.
func NewTextureCube(size, levels int, sampler Sampler) *Texture {
	return newTexture(TexCube, size, size, levels, sampler)
}

func newTexture(typ TextureType, width, height, levels int, sampler Sampler) *Texture {
	if width < 1 || height < 1 {
		panic(errors.Newf("texture: bad dimensions %dx%d", width, height))
	}
	if levels <= 0 {
		levels = fullMipChain(width, height)
	}
	t := &Texture{
		typ:     typ,
		width:   width,
		height:  height,
		levels:  levels,
		maxMip:  levels - 1,
		sampler: sampler,
		stored:  make(map[mipFace][]byte),
	}
	t.stamp.Store(1)
	t.dataStamp.Store(1)
	return t
}

func fullMipChain(width, height int) int {
	n := 1
	for width > 1 || height > 1 {
		width = max(width>>1, 1)
		height = max(height>>1, 1)
		n++
	}
	return min(n, MaxMipLevel)
}

// Stamp returns the shape version counter.
func (t *Texture) Stamp() uint32 { return t.stamp.Load() }

// DataStamp returns the content version counter.
func (t *Texture) DataStamp() uint32 { return t.dataStamp.Load() }

// Type returns the texture dimensionality.
func (t *Texture) Type() TextureType { return t.typ }

// MinMip returns the lowest resident mip level.
func (t *Texture) MinMip() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.minMip
}

// MaxMip returns the highest resident mip level.
func (t *Texture) MaxMip() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.maxMip
}

// Faces returns the number of 2D images per mip level.
func (t *Texture) Faces() int {
	switch t.typ {
	case Tex2D:
		return 1
	case TexCube:
		return NumCubeFaces
	}
	panic(errors.Newf("texture: unsupported type %d", int(t.typ)))
}

// Sampler returns the sampler description.
func (t *Texture) Sampler() Sampler { return t.sampler }

// AutogenerateMips reports whether mips above level 0 should be
// generated on the device instead of uploaded.
func (t *Texture) AutogenerateMips() bool { return t.autogenMips }

// SetAutogenerateMips toggles device-side mip generation.
func (t *Texture) SetAutogenerateMips(v bool) { t.autogenMips = v }

// SetMipRange restricts the resident mip range. Storage reallocation is
// signalled by advancing the shape stamp.
func (t *Texture) SetMipRange(minMip, maxMip int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if minMip < 0 || maxMip >= t.levels || minMip > maxMip {
		panic(errors.Newf("texture: bad mip range [%d,%d] for %d levels", minMip, maxMip, t.levels))
	}
	t.minMip = minMip
	t.maxMip = maxMip
	t.stamp.Add(1)
}

// LevelSize returns the pixel dimensions of a mip level.
func (t *Texture) LevelSize(level int) (w, h int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.levelSizeLocked(level)
}

func (t *Texture) levelSizeLocked(level int) (w, h int) {
	return max(t.width>>level, 1), max(t.height>>level, 1)
}

// EvalTotalSize returns the bytes the fully resolved texture would
// occupy, all mips and faces included, irrespective of residency.
func (t *Texture) EvalTotalSize() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	var total uint64
	faces := uint64(t.Faces())
	for level := 0; level < t.levels; level++ {
		w, h := t.levelSizeLocked(level)
		total += uint64(w) * uint64(h) * BytesPerPixel * faces
	}
	return total
}

// EvalStoredSize returns the bytes of the resident mip range only.
func (t *Texture) EvalStoredSize() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	var total uint64
	faces := uint64(t.Faces())
	for level := t.minMip; level <= t.maxMip; level++ {
		w, h := t.levelSizeLocked(level)
		total += uint64(w) * uint64(h) * BytesPerPixel * faces
	}
	return total
}

// SetMipFace stores host staging pixels for one mip/face image and
// advances the content stamp. pix must be tightly packed RGBA8.
func (t *Texture) SetMipFace(level, face int, pix []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if level < 0 || level >= t.levels {
		return errors.Newf("texture: mip level %d out of range [0,%d)", level, t.levels)
	}
	if face < 0 || face >= t.Faces() {
		return errors.Newf("texture: face %d out of range [0,%d)", face, t.Faces())
	}
	w, h := t.levelSizeLocked(level)
	if want := w * h * BytesPerPixel; len(pix) != want {
		return errors.Newf("texture: mip %d face %d wants %d bytes, got %d", level, face, want, len(pix))
	}
	t.stored[mipFace{level, face}] = pix
	t.dataStamp.Add(1)
	return nil
}

// IsStoredMipFaceAvailable reports whether host staging pixels exist
// for the given mip/face.
func (t *Texture) IsStoredMipFaceAvailable(level, face int) bool {
	t.mu.Lock()
	_, ok := t.stored[mipFace{level, face}]
	t.mu.Unlock()
	return ok
}

// StoredMipFace returns the host staging pixels for the given
// mip/face, or nil if none are stored.
func (t *Texture) StoredMipFace(level, face int) []byte {
	t.mu.Lock()
	pix := t.stored[mipFace{level, face}]
	t.mu.Unlock()
	return pix
}

// NotifyMipFaceGPULoaded releases the host staging pixels for a
// mip/face once the device-side copy holds them.
func (t *Texture) NotifyMipFaceGPULoaded(level, face int) {
	t.mu.Lock()
	delete(t.stored, mipFace{level, face})
	t.mu.Unlock()
}

// Resize changes the level-0 dimensions, drops all staging pixels and
// advances both stamps: storage must be reallocated and content
// re-uploaded.
func (t *Texture) Resize(width, height int) {
	if width < 1 || height < 1 {
		panic(errors.Newf("texture: bad dimensions %dx%d", width, height))
	}
	t.mu.Lock()
	t.width = width
	t.height = height
	t.levels = fullMipChain(width, height)
	t.minMip = 0
	t.maxMip = t.levels - 1
	t.stored = make(map[mipFace][]byte)
	t.mu.Unlock()
	t.stamp.Add(1)
	t.dataStamp.Add(1)
}
