package gltex

import (
	"testing"

	"github.com/go-gl/gl/v4.1-core/gl"

	"texstream/internal/gpu"
)

func TestFaceTargets(t *testing.T) {
	faces := faceTargets(gl.TEXTURE_CUBE_MAP)
	want := []uint32{
		gl.TEXTURE_CUBE_MAP_POSITIVE_X, gl.TEXTURE_CUBE_MAP_NEGATIVE_X,
		gl.TEXTURE_CUBE_MAP_POSITIVE_Y, gl.TEXTURE_CUBE_MAP_NEGATIVE_Y,
		gl.TEXTURE_CUBE_MAP_POSITIVE_Z, gl.TEXTURE_CUBE_MAP_NEGATIVE_Z,
	}
	if len(faces) != len(want) {
		t.Fatalf("cube face targets = %d entries, want %d", len(faces), len(want))
	}
	for i := range want {
		if faces[i] != want[i] {
			t.Errorf("face %d = 0x%04x, want 0x%04x", i, faces[i], want[i])
		}
	}

	flat := faceTargets(gl.TEXTURE_2D)
	if len(flat) != 1 || flat[0] != gl.TEXTURE_2D {
		t.Fatalf("2D face targets = %#v, want [TEXTURE_2D]", flat)
	}
}

func TestTextureTarget(t *testing.T) {
	if got := textureTarget(gpu.Tex2D); got != gl.TEXTURE_2D {
		t.Errorf("2D target = 0x%04x", got)
	}
	if got := textureTarget(gpu.TexCube); got != gl.TEXTURE_CUBE_MAP {
		t.Errorf("cube target = 0x%04x", got)
	}
}

func TestTextureTargetUnsupportedPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("unsupported dimensionality did not panic")
		}
	}()
	textureTarget(gpu.TextureType(42))
}

func TestWrapModeTable(t *testing.T) {
	for _, tc := range []struct {
		mode gpu.WrapMode
		want uint32
	}{
		{gpu.WrapRepeat, gl.REPEAT},
		{gpu.WrapMirror, gl.MIRRORED_REPEAT},
		{gpu.WrapClamp, gl.CLAMP_TO_EDGE},
		{gpu.WrapBorder, gl.CLAMP_TO_BORDER},
		{gpu.WrapMirrorOnce, glMirrorClampToEdge},
	} {
		if got := wrapModes[tc.mode]; got != tc.want {
			t.Errorf("wrap mode %d = 0x%04x, want 0x%04x", tc.mode, got, tc.want)
		}
	}
}

func TestFilterModeTable(t *testing.T) {
	// Every entry must be populated; a zero pair means a hole in the
	// table.
	for mode, pair := range filterModes {
		if pair.minify == 0 || pair.magnify == 0 {
			t.Errorf("filter mode %d has an empty mapping", mode)
		}
	}

	if p := filterModes[gpu.FilterMinMagPoint]; p.minify != gl.NEAREST || p.magnify != gl.NEAREST {
		t.Error("point/point filter mapped wrong")
	}
	if p := filterModes[gpu.FilterMinMagMipLinear]; p.minify != gl.LINEAR_MIPMAP_LINEAR || p.magnify != gl.LINEAR {
		t.Error("trilinear filter mapped wrong")
	}
	if p := filterModes[gpu.FilterMinLinearMagMipPoint]; p.minify != gl.LINEAR_MIPMAP_NEAREST || p.magnify != gl.NEAREST {
		t.Error("min linear / mag+mip point filter mapped wrong")
	}
	if p := filterModes[gpu.FilterAnisotropic]; p.minify != gl.LINEAR_MIPMAP_LINEAR || p.magnify != gl.LINEAR {
		t.Error("anisotropic filter mapped wrong")
	}
}
