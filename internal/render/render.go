// Package render draws the demo screens into a monochrome canvas.
package render

import (
	"fmt"
	"image"
	"image/draw"
	"time"

	"github.com/flavioheleno/epd154/mono"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

// Face returns the Go Regular TrueType face at size points (72 DPI), or the
// 7x13 bitmap face if size is zero.
func Face(size float64) (font.Face, error) {
	if size == 0 {
		return basicfont.Face7x13, nil
	}
	if size < 0 {
		return nil, fmt.Errorf("render: invalid font size %v", size)
	}
	f, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("render: failed to parse font: %w", err)
	}
	return truetype.NewFace(f, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	}), nil
}

// Clear paints the whole image white.
func Clear(dst draw.Image) {
	if m, ok := dst.(*mono.HorizontalMSB); ok {
		m.Clear()
		return
	}
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
}

// Text clears dst and draws lines in black, each centered horizontally, the
// block centered vertically. Lines that do not fit are clipped.
func Text(dst draw.Image, face font.Face, lines []string) {
	Clear(dst)
	if len(lines) == 0 {
		return
	}

	b := dst.Bounds()
	m := face.Metrics()
	block := m.Height.Mul(fixed.I(len(lines)-1)) + m.Ascent + m.Descent
	top := fixed.I(b.Min.Y) + (fixed.I(b.Dy())-block)/2

	d := font.Drawer{
		Dst:  dst,
		Src:  image.Black,
		Face: face,
	}
	for i, line := range lines {
		w := d.MeasureString(line)
		d.Dot = fixed.Point26_6{
			X: fixed.I(b.Min.X) + (fixed.I(b.Dx())-w)/2,
			Y: top + m.Ascent + m.Height.Mul(fixed.I(i)),
		}
		d.DrawString(line)
	}
}

// Clock returns the lines of the clock screen for t.
func Clock(t time.Time) []string {
	return []string{t.Format("15:04"), t.Format("Mon 02 Jan")}
}

// Checkerboard fills dst with squares of size pixels, the top left one
// black.
func Checkerboard(dst draw.Image, size int) {
	if size <= 0 {
		size = 1
	}
	b := dst.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dx, dy := (x-b.Min.X)/size, (y-b.Min.Y)/size
			dst.Set(x, y, mono.Bit((dx+dy)%2 == 0))
		}
	}
}

// Frame draws a black border of width w inside dst.
func Frame(dst draw.Image, w int) {
	b := dst.Bounds()
	for _, r := range []image.Rectangle{
		image.Rect(b.Min.X, b.Min.Y, b.Max.X, b.Min.Y+w),
		image.Rect(b.Min.X, b.Max.Y-w, b.Max.X, b.Max.Y),
		image.Rect(b.Min.X, b.Min.Y, b.Min.X+w, b.Max.Y),
		image.Rect(b.Max.X-w, b.Min.Y, b.Max.X, b.Max.Y),
	} {
		draw.Draw(dst, r.Intersect(b), image.Black, image.Point{}, draw.Src)
	}
}

// Pattern is the test screen: a checkerboard inside a border.
func Pattern(dst draw.Image) {
	Checkerboard(dst, 25)
	Frame(dst, 4)
}
