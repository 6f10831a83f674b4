// Package tensor holds the host's image and mask buffers: row-major float32
// arrays laid out [batch, height, width, channels] with values in [0,1].
package tensor

import (
	"errors"
	"fmt"
	"math"
)

var ErrEmpty = errors.New("tensor: empty buffer")

// Image is a batch of pixel frames.
type Image struct {
	Batch    int       `json:"batch"`
	Height   int       `json:"height"`
	Width    int       `json:"width"`
	Channels int       `json:"channels"`
	Data     []float32 `json:"data"`
}

// NewImage allocates a zeroed image.
func NewImage(batch, height, width, channels int) *Image {
	return &Image{
		Batch:    batch,
		Height:   height,
		Width:    width,
		Channels: channels,
		Data:     make([]float32, batch*height*width*channels),
	}
}

// Shape returns [B, H, W, C].
func (im *Image) Shape() []int {
	return []int{im.Batch, im.Height, im.Width, im.Channels}
}

// Validate checks dimensions against the backing slice.
func (im *Image) Validate() error {
	if im == nil || len(im.Data) == 0 {
		return ErrEmpty
	}
	if im.Batch <= 0 || im.Height <= 0 || im.Width <= 0 {
		return fmt.Errorf("tensor: invalid shape %v", im.Shape())
	}
	switch im.Channels {
	case 1, 3, 4:
	default:
		return fmt.Errorf("tensor: unsupported channel count %d", im.Channels)
	}
	want, ok := elements(im.Batch, im.Height, im.Width, im.Channels)
	if !ok {
		return fmt.Errorf("tensor: shape %v is too large", im.Shape())
	}
	if len(im.Data) != want {
		return fmt.Errorf("tensor: shape %v needs %d values, have %d", im.Shape(), want, len(im.Data))
	}
	return nil
}

// elements multiplies positive dimensions, reporting false on int overflow.
func elements(dims ...int) (int, bool) {
	n := 1
	for _, d := range dims {
		if d > math.MaxInt/n {
			return 0, false
		}
		n *= d
	}
	return n, true
}

func (im *Image) offset(b, y, x, c int) int {
	return ((b*im.Height+y)*im.Width+x)*im.Channels + c
}

func (im *Image) At(b, y, x, c int) float32 {
	return im.Data[im.offset(b, y, x, c)]
}

func (im *Image) Set(b, y, x, c int, v float32) {
	im.Data[im.offset(b, y, x, c)] = v
}

// Frame returns batch entry b as a single-frame image sharing the backing data.
func (im *Image) Frame(b int) *Image {
	n := im.Height * im.Width * im.Channels
	return &Image{
		Batch:    1,
		Height:   im.Height,
		Width:    im.Width,
		Channels: im.Channels,
		Data:     im.Data[b*n : (b+1)*n],
	}
}

// Mask is a batch of single-channel frames aligned to an image.
type Mask struct {
	Batch  int       `json:"batch"`
	Height int       `json:"height"`
	Width  int       `json:"width"`
	Data   []float32 `json:"data"`
}

// NewMask allocates a zeroed mask, which the host reads as fully opaque.
func NewMask(batch, height, width int) *Mask {
	return &Mask{
		Batch:  batch,
		Height: height,
		Width:  width,
		Data:   make([]float32, batch*height*width),
	}
}

func (m *Mask) Shape() []int {
	return []int{m.Batch, m.Height, m.Width}
}

func (m *Mask) Validate() error {
	if m == nil || len(m.Data) == 0 {
		return ErrEmpty
	}
	if m.Batch <= 0 || m.Height <= 0 || m.Width <= 0 {
		return fmt.Errorf("tensor: invalid mask shape %v", m.Shape())
	}
	want, ok := elements(m.Batch, m.Height, m.Width)
	if !ok {
		return fmt.Errorf("tensor: mask shape %v is too large", m.Shape())
	}
	if len(m.Data) != want {
		return fmt.Errorf("tensor: mask shape %v needs %d values, have %d", m.Shape(), want, len(m.Data))
	}
	return nil
}

func (m *Mask) At(b, y, x int) float32 {
	return m.Data[(b*m.Height+y)*m.Width+x]
}

func (m *Mask) Set(b, y, x int, v float32) {
	m.Data[(b*m.Height+y)*m.Width+x] = v
}
