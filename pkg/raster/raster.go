// Package raster holds the pixel plumbing shared by the slicer and composer.
package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"

	"github.com/disintegration/imaging"
)

// Decode reads any format imaging understands.
func Decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return img, nil
}

// EncodePNG encodes img losslessly, transparency included.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Clear sets every pixel of dst to transparent.
func Clear(dst *image.NRGBA) {
	draw.Draw(dst, dst.Bounds(), image.Transparent, image.Point{}, draw.Src)
}

// Paste draws src into dst with its top-left corner at pt, clipped to clip
// and to dst. Pixels replace what was there, no blending.
func Paste(dst *image.NRGBA, src image.Image, pt image.Point, clip image.Rectangle) {
	sb := src.Bounds()
	r := sb.Sub(sb.Min).Add(pt).Intersect(clip)
	if r.Empty() {
		return
	}
	draw.Draw(dst, r, src, sb.Min.Add(r.Min.Sub(pt)), draw.Src)
}
