package tensor

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	// Registered so objects uploaded by other tools still load.
	_ "image/gif"
	_ "image/jpeg"
)

// ContentTypePNG is the media type written alongside encoded frames.
const ContentTypePNG = "image/png"

// EncodePNG encodes batch entry b of im. One channel becomes grayscale, three
// become RGB and four become RGBA.
func EncodePNG(im *Image, b int) ([]byte, error) {
	if err := im.Validate(); err != nil {
		return nil, err
	}
	if b < 0 || b >= im.Batch {
		return nil, fmt.Errorf("tensor: batch index %d out of range [0,%d)", b, im.Batch)
	}
	frame := im.Frame(b)

	var img image.Image
	rect := image.Rect(0, 0, im.Width, im.Height)
	switch im.Channels {
	case 1:
		g := image.NewGray(rect)
		for y := 0; y < im.Height; y++ {
			for x := 0; x < im.Width; x++ {
				v, err := quantize(frame.At(0, y, x, 0))
				if err != nil {
					return nil, err
				}
				g.Pix[y*g.Stride+x] = v
			}
		}
		img = g
	default:
		n := image.NewNRGBA(rect)
		for y := 0; y < im.Height; y++ {
			for x := 0; x < im.Width; x++ {
				i := y*n.Stride + x*4
				n.Pix[i+3] = 0xff
				for c := 0; c < frame.Channels; c++ {
					v, err := quantize(frame.At(0, y, x, c))
					if err != nil {
						return nil, err
					}
					n.Pix[i+c] = v
				}
			}
		}
		img = n
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads an encoded image into a single-frame RGB image and its mask.
// When the file carries alpha the mask is 1-alpha, otherwise it is all zeros.
func Decode(data []byte) (*Image, *Mask, error) {
	if len(data) == 0 {
		return nil, nil, ErrEmpty
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, err
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return nil, nil, ErrEmpty
	}

	out := NewImage(1, h, w, 3)
	mask := NewMask(1, h, w)
	alpha := hasAlpha(src)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			px := pixelAt(src, bounds.Min.X+x, bounds.Min.Y+y)
			out.Set(0, y, x, 0, float32(px.R)/255)
			out.Set(0, y, x, 1, float32(px.G)/255)
			out.Set(0, y, x, 2, float32(px.B)/255)
			if alpha {
				mask.Set(0, y, x, 1-float32(px.A)/255)
			}
		}
	}
	return out, mask, nil
}

// pixelAt reads NRGBA images directly so fully transparent pixels keep their
// colour; everything else goes through the colour model.
func pixelAt(src image.Image, x, y int) color.NRGBA {
	if n, ok := src.(*image.NRGBA); ok {
		return n.NRGBAAt(x, y)
	}
	return color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
}

func hasAlpha(src image.Image) bool {
	switch m := src.(type) {
	case *image.NRGBA, *image.NRGBA64, *image.Alpha, *image.Alpha16:
		return true
	case *image.RGBA:
		return !m.Opaque()
	case *image.RGBA64:
		return !m.Opaque()
	case *image.Paletted:
		return !m.Opaque()
	default:
		return false
	}
}

func quantize(v float32) (uint8, error) {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("tensor: non-finite pixel value %v", v)
	}
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	return uint8(f*255 + 0.5), nil
}
