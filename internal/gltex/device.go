// Package gltex is the texture lifecycle layer of the OpenGL backend:
// it keeps a device-side texture object allocated, filled and
// accounted for against a mutable logical texture, moving content
// uploads off the render thread where the resource allows it.
package gltex

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/gl/v4.1-core/gl"
)

// Device is the slice of the GL API this layer touches. The real
// implementation is GL41; tests substitute a fake so no context is
// needed. A Device must only be used from a thread with a current GL
// context.
type Device interface {
	GenTexture() uint32
	DeleteTexture(id uint32)

	// BoundTexture answers a binding query (e.g. TEXTURE_BINDING_2D).
	BoundTexture(binding uint32) uint32
	BindTexture(target, id uint32)

	TexParameteri(target, pname uint32, param int32)
	// TexImage2D allocates (pixels == nil) or defines one mip image.
	TexImage2D(target uint32, level, width, height int32, pixels []byte)
	TexSubImage2D(target uint32, level, x, y, width, height int32, pixels []byte)
	GenerateMipmap(target uint32)

	// DedicatedMemory returns the device's dedicated memory in bytes,
	// 0 if the driver does not expose it.
	DedicatedMemory() uint64

	// Err drains the GL error state, returning the first error flagged
	// since the last call.
	Err() error
}

// From GL_NVX_gpu_memory_info; not in the 4.1 core header.
const gpuMemoryInfoDedicatedVidmemNVX = 0x9047

// GL41 drives a real OpenGL 4.1 core context through go-gl.
type GL41 struct{}

func (GL41) GenTexture() uint32 {
	var id uint32
	gl.GenTextures(1, &id)
	return id
}

func (GL41) DeleteTexture(id uint32) {
	gl.DeleteTextures(1, &id)
}

func (GL41) BoundTexture(binding uint32) uint32 {
	var bound int32
	gl.GetIntegerv(binding, &bound)
	return uint32(bound)
}

func (GL41) BindTexture(target, id uint32) {
	gl.BindTexture(target, id)
}

func (GL41) TexParameteri(target, pname uint32, param int32) {
	gl.TexParameteri(target, pname, param)
}

func (GL41) TexImage2D(target uint32, level, width, height int32, pixels []byte) {
	var ptr unsafe.Pointer
	if pixels != nil {
		ptr = gl.Ptr(pixels)
	}
	gl.TexImage2D(target, level, gl.RGBA8, width, height, 0, gl.RGBA, gl.UNSIGNED_BYTE, ptr)
}

func (GL41) TexSubImage2D(target uint32, level, x, y, width, height int32, pixels []byte) {
	gl.TexSubImage2D(target, level, x, y, width, height, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
}

func (GL41) GenerateMipmap(target uint32) {
	gl.GenerateMipmap(target)
}

func (GL41) DedicatedMemory() uint64 {
	var kb int32
	gl.GetIntegerv(gpuMemoryInfoDedicatedVidmemNVX, &kb)
	if gl.GetError() != gl.NO_ERROR || kb <= 0 {
		// Extension absent; the accountant falls back to its default.
		return 0
	}
	return uint64(kb) << 10
}

func (GL41) Err() error {
	if e := gl.GetError(); e != gl.NO_ERROR {
		return errors.Newf("gl error 0x%04x", e)
	}
	return nil
}
