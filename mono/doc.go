// Package mono provides a 1-bit monochrome image format for the 1.54" e-paper
// controller.
//
// Pixels are stored row-major with 8 pixels per byte, the leftmost pixel in
// the most significant bit. A set bit is ink, a clear bit is paper; the driver
// complements every byte on its way to the panel, whose native polarity is
// 1 = white.
//
// Memory layout example for a 16-pixel row:
//
//	Pixels: 0 1 2 3 4 5 6 7   8 9 ...
//	Bits:   1 0 0 0 0 0 0 1   1 1 0 0 0 0 0 0
//	Bytes:  0x81              0xC0
//
// This package provides:
//
// - Bit: a color type with the two values Paper and Ink
// - BitModel: a color model converting standard Go colors by luminance
// - HorizontalMSB: a draw.Image implementation with row access for the driver
//
// Example usage:
//
//	img := mono.NewHorizontalMSB(image.Rect(0, 0, 200, 200))
//	img.SetBit(10, 20, mono.Ink)
//	row := img.Row(20) // 25 packed bytes
//
//	// Standard Go drawing works too; dark colors become ink.
//	draw.Draw(img, image.Rect(0, 0, 50, 50), image.Black, image.Point{}, draw.Src)
package mono
