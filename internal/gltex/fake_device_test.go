package gltex

import (
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/gl/v4.1-core/gl"
)

type bindCall struct {
	target, id uint32
}

type imageCall struct {
	target uint32
	level  int32
	w, h   int32
	bytes  int
}

// fakeDevice stands in for a GL context. It keeps enough state to
// verify bind/restore discipline and records every mutating call.
// Thread-safe: transfer workers and the test goroutine both talk to it.
type fakeDevice struct {
	mu sync.Mutex

	nextID  uint32
	bound   map[uint32]uint32
	binds   []bindCall
	deleted []uint32
	allocs  []imageCall
	uploads []imageCall
	params  int
	mipmaps int

	dedicated uint64

	// pending is returned (and cleared) by the next Err call;
	// failUploads arms pending on that many future uploads.
	pending     error
	failUploads int
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{bound: make(map[uint32]uint32)}
}

func (d *fakeDevice) GenTexture() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	return d.nextID
}

func (d *fakeDevice) DeleteTexture(id uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deleted = append(d.deleted, id)
}

func (d *fakeDevice) BoundTexture(binding uint32) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch binding {
	case gl.TEXTURE_BINDING_2D:
		return d.bound[gl.TEXTURE_2D]
	case gl.TEXTURE_BINDING_CUBE_MAP:
		return d.bound[gl.TEXTURE_CUBE_MAP]
	}
	return 0
}

func (d *fakeDevice) BindTexture(target, id uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bound[target] = id
	d.binds = append(d.binds, bindCall{target, id})
}

func (d *fakeDevice) TexParameteri(target, pname uint32, param int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.params++
}

func (d *fakeDevice) TexImage2D(target uint32, level, width, height int32, pixels []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.allocs = append(d.allocs, imageCall{target, level, width, height, len(pixels)})
}

func (d *fakeDevice) TexSubImage2D(target uint32, level, x, y, width, height int32, pixels []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.uploads = append(d.uploads, imageCall{target, level, width, height, len(pixels)})
	if d.failUploads > 0 {
		d.failUploads--
		d.pending = errors.New("fake device: upload failed")
	}
}

func (d *fakeDevice) GenerateMipmap(target uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mipmaps++
}

func (d *fakeDevice) DedicatedMemory() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dedicated
}

func (d *fakeDevice) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	err := d.pending
	d.pending = nil
	return err
}

func (d *fakeDevice) uploadCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.uploads)
}

func (d *fakeDevice) deletedIDs() []uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]uint32(nil), d.deleted...)
}

// waitUntil polls cond until it holds or the test deadline expires.
func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
