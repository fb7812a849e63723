package gltex

import (
	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/sirupsen/logrus"

	"texstream/internal/gpu"
)

// GL_MIRROR_CLAMP_TO_EDGE is 4.4+; the extension enum works on 4.1
// drivers that expose ARB_texture_mirror_clamp_to_edge.
const glMirrorClampToEdge = 0x8743

// cubeFaceLayout is the canonical face order: +X,-X,+Y,-Y,+Z,-Z.
var cubeFaceLayout = [gpu.NumCubeFaces]uint32{
	gl.TEXTURE_CUBE_MAP_POSITIVE_X, gl.TEXTURE_CUBE_MAP_NEGATIVE_X,
	gl.TEXTURE_CUBE_MAP_POSITIVE_Y, gl.TEXTURE_CUBE_MAP_NEGATIVE_Y,
	gl.TEXTURE_CUBE_MAP_POSITIVE_Z, gl.TEXTURE_CUBE_MAP_NEGATIVE_Z,
}

var wrapModes = [gpu.NumWrapModes]uint32{
	gpu.WrapRepeat:     gl.REPEAT,
	gpu.WrapMirror:     gl.MIRRORED_REPEAT,
	gpu.WrapClamp:      gl.CLAMP_TO_EDGE,
	gpu.WrapBorder:     gl.CLAMP_TO_BORDER,
	gpu.WrapMirrorOnce: glMirrorClampToEdge,
}

type filterPair struct {
	minify, magnify uint32
}

var filterModes = [gpu.NumFilterModes]filterPair{
	gpu.FilterMinMagPoint:                {gl.NEAREST, gl.NEAREST},
	gpu.FilterMinPointMagLinear:          {gl.NEAREST, gl.LINEAR},
	gpu.FilterMinLinearMagPoint:          {gl.LINEAR, gl.NEAREST},
	gpu.FilterMinMagLinear:               {gl.LINEAR, gl.LINEAR},
	gpu.FilterMinMagMipPoint:             {gl.NEAREST_MIPMAP_NEAREST, gl.NEAREST},
	gpu.FilterMinMagPointMipLinear:       {gl.NEAREST_MIPMAP_LINEAR, gl.NEAREST},
	gpu.FilterMinPointMagLinearMipPoint:  {gl.NEAREST_MIPMAP_NEAREST, gl.LINEAR},
	gpu.FilterMinPointMagMipLinear:       {gl.NEAREST_MIPMAP_LINEAR, gl.LINEAR},
	gpu.FilterMinLinearMagMipPoint:       {gl.LINEAR_MIPMAP_NEAREST, gl.NEAREST},
	gpu.FilterMinLinearMagPointMipLinear: {gl.LINEAR_MIPMAP_LINEAR, gl.NEAREST},
	gpu.FilterMinMagLinearMipPoint:       {gl.LINEAR_MIPMAP_NEAREST, gl.LINEAR},
	gpu.FilterMinMagMipLinear:            {gl.LINEAR_MIPMAP_LINEAR, gl.LINEAR},
	gpu.FilterAnisotropic:                {gl.LINEAR_MIPMAP_LINEAR, gl.LINEAR},
}

// textureTarget maps a logical texture type to its GL target. Unknown
// types are a configuration error with no defined behavior.
func textureTarget(typ gpu.TextureType) uint32 {
	switch typ {
	case gpu.Tex2D:
		return gl.TEXTURE_2D
	case gpu.TexCube:
		return gl.TEXTURE_CUBE_MAP
	default:
		logrus.Panicf("gltex: unsupported texture type %d", int(typ))
		panic("unreachable")
	}
}

// bindingQuery maps a texture target to the GetIntegerv query for its
// currently bound object.
func bindingQuery(target uint32) uint32 {
	switch target {
	case gl.TEXTURE_2D:
		return gl.TEXTURE_BINDING_2D
	case gl.TEXTURE_CUBE_MAP:
		return gl.TEXTURE_BINDING_CUBE_MAP
	default:
		logrus.Panicf("gltex: unsupported texture target 0x%04x", target)
		panic("unreachable")
	}
}

// faceTargets returns the per-face image targets for a texture target:
// the six cube faces in canonical order, or the 2D target itself.
func faceTargets(target uint32) []uint32 {
	switch target {
	case gl.TEXTURE_2D:
		return []uint32{gl.TEXTURE_2D}
	case gl.TEXTURE_CUBE_MAP:
		return cubeFaceLayout[:]
	default:
		logrus.Panicf("gltex: unsupported texture target 0x%04x", target)
		panic("unreachable")
	}
}
