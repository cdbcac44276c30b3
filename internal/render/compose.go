package render

import (
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
)

// Merge stacks top above bottom; bottom starts a quarter of top's height
// before top ends and covers that overlap band.
func Merge(top, bottom image.Image) *image.RGBA {
	tb, bb := top.Bounds(), bottom.Bounds()
	w := max(tb.Dx(), bb.Dx())
	overlap := tb.Dy() / 4
	offset := tb.Dy() - overlap

	out := image.NewRGBA(image.Rect(0, 0, w, offset+bb.Dy()))
	draw.Draw(out, out.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(out, image.Rect(0, 0, tb.Dx(), tb.Dy()), top, tb.Min, draw.Src)
	draw.Draw(out, image.Rect(0, offset, bb.Dx(), offset+bb.Dy()), bottom, bb.Min, draw.Src)
	return out
}

func SavePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
