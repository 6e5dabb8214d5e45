package raster

import (
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
)

func TestPasteClips(t *testing.T) {
	dst := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	red := color.NRGBA{255, 0, 0, 255}
	src := imaging.New(3, 3, red)

	Paste(dst, src, image.Pt(2, 2), image.Rect(2, 2, 4, 4))

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			want := color.NRGBA{}
			if x >= 2 && y >= 2 {
				want = red
			}
			if got := dst.NRGBAAt(x, y); got != want {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestPasteOffsetSource(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	src.SetNRGBA(2, 3, color.NRGBA{1, 2, 3, 255})
	sub := src.SubImage(image.Rect(2, 2, 4, 4))

	dst := image.NewNRGBA(image.Rect(0, 0, 6, 6))
	Paste(dst, sub, image.Pt(3, 3), image.Rect(3, 3, 5, 5))

	if got := dst.NRGBAAt(3, 4); got != (color.NRGBA{1, 2, 3, 255}) {
		t.Fatalf("pixel (3,4) = %v", got)
	}
	if got := dst.NRGBAAt(5, 5); got != (color.NRGBA{}) {
		t.Fatalf("pixel outside clip = %v", got)
	}
}

func TestPasteKeepsTranslucency(t *testing.T) {
	dst := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	c := color.NRGBA{10, 20, 30, 77}
	Paste(dst, imaging.New(2, 2, c), image.Point{}, dst.Bounds())
	if got := dst.NRGBAAt(1, 1); got != c {
		t.Fatalf("pixel = %v, want %v", got, c)
	}
}

func TestEncodeDecode(t *testing.T) {
	c := color.NRGBA{1, 2, 3, 255}
	data, err := EncodePNG(imaging.New(5, 2, c))
	if err != nil {
		t.Fatal(err)
	}
	img, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 5 || b.Dy() != 2 {
		t.Fatalf("bounds = %v", b)
	}
	if _, err := Decode([]byte("not an image")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestClear(t *testing.T) {
	img := imaging.New(2, 2, color.NRGBA{9, 9, 9, 9})
	Clear(img)
	for _, b := range img.Pix {
		if b != 0 {
			t.Fatal("pixel left after Clear")
		}
	}
}
