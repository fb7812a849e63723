package gpu

import (
	"image"
	stddraw "image/draw"

	"golang.org/x/image/draw"
)

// toRGBA repacks an image into tightly packed RGBA8.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Stride == rgba.Rect.Dx()*BytesPerPixel {
		return rgba
	}
	rgba := image.NewRGBA(image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy()))
	stddraw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, stddraw.Src)
	return rgba
}

// LoadFaceImage fills every resident mip of one face from img,
// downscaling level by level. Level 0 must match the texture
// dimensions. Each mip is stored as host staging pixels, so the
// content stamp advances.
func (t *Texture) LoadFaceImage(face int, img image.Image) error {
	src := toRGBA(img)
	for level, last := t.MinMip(), t.MaxMip(); level <= last; level++ {
		w, h := t.LevelSize(level)
		var pix []byte
		if w == src.Rect.Dx() && h == src.Rect.Dy() {
			pix = src.Pix
		} else {
			dst := image.NewRGBA(image.Rect(0, 0, w, h))
			draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
			pix = dst.Pix
		}
		if err := t.SetMipFace(level, face, pix); err != nil {
			return err
		}
		if t.autogenMips {
			// Device generates the rest.
			break
		}
	}
	return nil
}

// LoadImage fills a 2D texture's resident mips from img.
func (t *Texture) LoadImage(img image.Image) error {
	return t.LoadFaceImage(0, img)
}
