package bundle

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	stddraw "image/draw"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
)

// MinImageSide is the minimum side length, in pixels, an extracted texture
// must have to be kept.
const MinImageSide = 512

// CropPadding is the number of fully-transparent pixels left around a
// cropped image's content.
const CropPadding = 4

// ImageOutput is one extracted, alpha-composited and cropped portrait.
type ImageOutput struct {
	Name  string
	Image image.Image
}

// ExtractImages decodes every Texture2D/Sprite object, discards ones below
// MinImageSide on either side, composites an alpha mask for each remaining
// logical image when a sibling `<name>[alpha]` (or `<name>#1[alpha]`)
// object exists, and crops transparent borders with CropPadding.
//
// Objects are expected to already hold codec-decodable image bytes (this
// game's texture objects are re-encoded to PNG upstream of the bundle
// layer); ETC2/ASTC/DXT pixel-format decoding is out of scope here.
func ExtractImages(objects []Object) ([]ImageOutput, error) {
	decoded := make(map[string]image.Image, len(objects))
	for _, o := range objects {
		if o.Kind != KindTexture2D && o.Kind != KindSprite {
			continue
		}
		img, _, err := image.Decode(bytes.NewReader(o.Data))
		if err != nil {
			return nil, fmt.Errorf("decode image %q: %w", o.Name, err)
		}
		b := img.Bounds()
		if b.Dx() < MinImageSide || b.Dy() < MinImageSide {
			continue
		}
		decoded[o.Name] = img
	}

	var out []ImageOutput
	for name, img := range decoded {
		if isAlphaMaskName(name) {
			continue
		}
		mask, ok := decoded[name+"[alpha]"]
		if !ok {
			mask, ok = decoded[name+"#1[alpha]"]
		}
		final := img
		if ok {
			final = compositeAlpha(img, mask)
		}
		out = append(out, ImageOutput{Name: name, Image: cropTransparentBorder(final, CropPadding)})
	}
	return out, nil
}

func isAlphaMaskName(name string) bool {
	n := len(name)
	return n >= 7 && name[n-7:] == "[alpha]"
}

// compositeAlpha treats mask's luminance as the alpha channel of base,
// producing an RGBA image the same size as base.
func compositeAlpha(base, mask image.Image) image.Image {
	b := base.Bounds()
	out := image.NewRGBA(b)
	xdraw.Draw(out, b, base, b.Min, xdraw.Src)

	mb := mask.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		my := mb.Min.Y + (y - b.Min.Y)
		if my >= mb.Max.Y {
			break
		}
		for x := b.Min.X; x < b.Max.X; x++ {
			mx := mb.Min.X + (x - b.Min.X)
			if mx >= mb.Max.X {
				break
			}
			gray := color.GrayModel.Convert(mask.At(mx, my)).(color.Gray)
			r, g, bch, _ := out.At(x, y).RGBA()
			out.Set(x, y, color.NRGBA{
				R: uint8(r >> 8),
				G: uint8(g >> 8),
				B: uint8(bch >> 8),
				A: gray.Y,
			})
		}
	}
	return out
}

// cropTransparentBorder trims fully-transparent rows/columns from the
// image's edges, leaving padding pixels of transparent border.
func cropTransparentBorder(img image.Image, padding int) image.Image {
	b := img.Bounds()
	minX, minY, maxX, maxY := b.Max.X, b.Max.Y, b.Min.X, b.Min.Y
	empty := true
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			_, _, _, a := img.At(x, y).RGBA()
			if a != 0 {
				empty = false
				if x < minX {
					minX = x
				}
				if x > maxX {
					maxX = x
				}
				if y < minY {
					minY = y
				}
				if y > maxY {
					maxY = y
				}
			}
		}
	}
	if empty {
		return img
	}

	minX = max(b.Min.X, minX-padding)
	minY = max(b.Min.Y, minY-padding)
	maxX = min(b.Max.X-1, maxX+padding)
	maxY = min(b.Max.Y-1, maxY+padding)

	cropRect := image.Rect(minX, minY, maxX+1, maxY+1)
	out := image.NewRGBA(image.Rect(0, 0, cropRect.Dx(), cropRect.Dy()))
	stddraw.Draw(out, out.Bounds(), img, cropRect.Min, stddraw.Over)
	return out
}
