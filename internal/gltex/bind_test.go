package gltex

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/gl/v4.1-core/gl"
)

func TestWithPreservedTextureRestores(t *testing.T) {
	dev := newFakeDevice()
	dev.BindTexture(gl.TEXTURE_2D, 7)

	var boundInside uint32
	err := withPreservedTexture(dev, gl.TEXTURE_2D, 42, func() error {
		boundInside = dev.BoundTexture(gl.TEXTURE_BINDING_2D)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if boundInside != 42 {
		t.Errorf("bound %d inside the scope, want 42", boundInside)
	}
	if got := dev.BoundTexture(gl.TEXTURE_BINDING_2D); got != 7 {
		t.Errorf("bound %d after the scope, want 7 restored", got)
	}
	want := []bindCall{{gl.TEXTURE_2D, 7}, {gl.TEXTURE_2D, 42}, {gl.TEXTURE_2D, 7}}
	if len(dev.binds) != len(want) {
		t.Fatalf("bind sequence %v, want %v", dev.binds, want)
	}
	for i := range want {
		if dev.binds[i] != want[i] {
			t.Fatalf("bind sequence %v, want %v", dev.binds, want)
		}
	}
}

func TestWithPreservedTextureRestoresOnError(t *testing.T) {
	dev := newFakeDevice()
	dev.BindTexture(gl.TEXTURE_CUBE_MAP, 3)

	failure := errors.New("device exploded")
	err := withPreservedTexture(dev, gl.TEXTURE_CUBE_MAP, 9, func() error {
		return failure
	})
	if !errors.Is(err, failure) {
		t.Fatalf("err = %v, want the operation's error", err)
	}
	if got := dev.BoundTexture(gl.TEXTURE_BINDING_CUBE_MAP); got != 3 {
		t.Errorf("bound %d after failed scope, want 3 restored", got)
	}
}

func TestWithPreservedTextureRestoresZeroBinding(t *testing.T) {
	dev := newFakeDevice()
	err := withPreservedTexture(dev, gl.TEXTURE_2D, 5, func() error { return nil })
	if err != nil {
		t.Fatal(err)
	}
	if got := dev.BoundTexture(gl.TEXTURE_BINDING_2D); got != 0 {
		t.Errorf("bound %d after scope, want 0 restored", got)
	}
}
