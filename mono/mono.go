package mono

import (
	"image"
	"image/color"
)

// Bit is a 1-bit color. Ink renders black on the panel, Paper renders white.
type Bit bool

const (
	Paper Bit = false
	Ink   Bit = true
)

// RGBA implements color.Color.
func (c Bit) RGBA() (r, g, b, a uint32) {
	if c {
		return 0, 0, 0, 0xFFFF
	}
	return 0xFFFF, 0xFFFF, 0xFFFF, 0xFFFF
}

func (c Bit) String() string {
	if c {
		return "Ink"
	}
	return "Paper"
}

// toBit converts any color.Color to Bit. Dark colors become Ink; fully
// transparent colors are Paper.
func toBit(c color.Color) color.Color {
	if b, ok := c.(Bit); ok {
		return b
	}
	r, g, b, a := c.RGBA()
	if a == 0 {
		return Paper
	}
	// Same luminance weights as color.GrayModel, on 16-bit channels.
	y := (19595*r + 38470*g + 7471*b + 1<<15) >> 16
	return Bit(y < 0x8000)
}

// BitModel converts colors to Bit.
var BitModel = color.ModelFunc(toBit)

// HorizontalMSB is a 1-bit image where each byte holds 8 horizontally
// adjacent pixels, the leftmost one in the most significant bit.
type HorizontalMSB struct {
	Pix    []byte          // Pixel data (8 pixels per byte)
	Stride int             // Bytes per row
	Rect   image.Rectangle // Image bounds
}

// NewHorizontalMSB creates a new HorizontalMSB image with the given bounds.
// Rows are padded to whole bytes.
func NewHorizontalMSB(r image.Rectangle) *HorizontalMSB {
	w, h := r.Dx(), r.Dy()
	if w <= 0 || h <= 0 {
		return &HorizontalMSB{Rect: r}
	}
	stride := (w + 7) / 8
	return &HorizontalMSB{
		Pix:    make([]byte, stride*h),
		Stride: stride,
		Rect:   r,
	}
}

// ColorModel returns BitModel.
func (p *HorizontalMSB) ColorModel() color.Model {
	return BitModel
}

// Bounds returns the image bounds.
func (p *HorizontalMSB) Bounds() image.Rectangle {
	return p.Rect
}

// At implements image.Image.
func (p *HorizontalMSB) At(x, y int) color.Color {
	return p.BitAt(x, y)
}

// BitAt returns the Bit at (x, y). Out of bounds pixels are Paper.
func (p *HorizontalMSB) BitAt(x, y int) Bit {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return Paper
	}
	offset, mask := p.pixOffset(x, y)
	return Bit(p.Pix[offset]&mask != 0)
}

// Set implements draw.Image.
func (p *HorizontalMSB) Set(x, y int, c color.Color) {
	p.SetBit(x, y, BitModel.Convert(c).(Bit))
}

// SetBit sets the pixel at (x, y) without color conversion.
func (p *HorizontalMSB) SetBit(x, y int, b Bit) {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return
	}
	offset, mask := p.pixOffset(x, y)
	if b {
		p.Pix[offset] |= mask
	} else {
		p.Pix[offset] &^= mask
	}
}

// Row returns the packed bytes of row y, relative to Rect.Min.Y. The returned
// slice aliases Pix. It returns nil for rows outside the image.
func (p *HorizontalMSB) Row(y int) []byte {
	if y < 0 || y >= p.Rect.Dy() {
		return nil
	}
	start := y * p.Stride
	return p.Pix[start : start+p.Stride : start+p.Stride]
}

// Fill sets every pixel to b.
func (p *HorizontalMSB) Fill(b Bit) {
	v := byte(0)
	if b {
		v = 0xFF
	}
	for i := range p.Pix {
		p.Pix[i] = v
	}
}

// Clear sets every pixel to Paper.
func (p *HorizontalMSB) Clear() {
	p.Fill(Paper)
}

// pixOffset returns the byte offset and bit mask for the pixel at (x, y).
func (p *HorizontalMSB) pixOffset(x, y int) (offset int, mask byte) {
	dx := x - p.Rect.Min.X
	offset = (y-p.Rect.Min.Y)*p.Stride + dx/8
	mask = 0x80 >> uint(dx%8)
	return
}
