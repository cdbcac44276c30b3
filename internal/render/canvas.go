package render

import (
	"image"
	"math"

	"github.com/cwrk-planet/duet/internal/domain"

	"github.com/gogpu/gg"
)

// Canvas is one participant's drawing buffer on a white background.
type Canvas struct {
	dc   *gg.Context
	w, h int
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{dc: gg.NewContext(w, h), w: w, h: h}
	c.Clear()
	return c
}

func (c *Canvas) Clear() {
	c.dc.SetRGB(1, 1, 1)
	c.dc.DrawRectangle(0, 0, float64(c.w), float64(c.h))
	c.dc.Fill()
}

// Apply draws one segment. Brush segments are stamped as discs spaced by
// 0.35 of the brush size; the eraser paints background white. The segment is
// clipped to the canvas grown by the brush radius first.
func (c *Canvas) Apply(op domain.DrawingOperation) {
	if op.Validate() != nil {
		return
	}
	alpha := float64(op.Opacity) / 255

	// кисть больше холста ничего не меняет
	size := math.Min(op.Size, 2*math.Hypot(float64(c.w), float64(c.h)))
	pad := size / 2
	x0, y0, x1, y1, ok := clipSegment(op.FromX, op.FromY, op.ToX, op.ToY,
		-pad, -pad, float64(c.w)+pad, float64(c.h)+pad)
	if !ok {
		return
	}

	if op.Tool == domain.ToolEraser {
		c.dc.SetRGBA(1, 1, 1, alpha)
		c.dc.SetLineWidth(size)
		c.dc.MoveTo(x0, y0)
		c.dc.LineTo(x1, y1)
		c.dc.Stroke()
		return
	}

	r := float64(op.Color[0]) / 255
	g := float64(op.Color[1]) / 255
	b := float64(op.Color[2]) / 255
	c.dc.SetRGBA(r, g, b, alpha)

	spacing := math.Max(1, size*0.35)
	dist := math.Hypot(x1-x0, y1-y0)
	steps := int(math.Max(1, math.Ceil(dist/spacing)))
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		c.dc.DrawCircle(x0+(x1-x0)*t, y0+(y1-y0)*t, pad)
		c.dc.Fill()
	}
}

// clipSegment cuts the segment to the rectangle (Liang-Barsky). ok is false
// when nothing of it lies inside.
func clipSegment(x0, y0, x1, y1, minX, minY, maxX, maxY float64) (cx0, cy0, cx1, cy1 float64, ok bool) {
	dx, dy := x1-x0, y1-y0
	t0, t1 := 0.0, 1.0
	edges := [4][2]float64{
		{-dx, x0 - minX},
		{dx, maxX - x0},
		{-dy, y0 - minY},
		{dy, maxY - y0},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return 0, 0, 0, 0, false
			}
			continue
		}
		r := q / p
		if p < 0 {
			if r > t1 {
				return 0, 0, 0, 0, false
			}
			t0 = math.Max(t0, r)
		} else {
			if r < t0 {
				return 0, 0, 0, 0, false
			}
			t1 = math.Min(t1, r)
		}
	}
	return x0 + dx*t0, y0 + dy*t0, x0 + dx*t1, y0 + dy*t1, true
}

func (c *Canvas) Image() image.Image { return c.dc.Image() }

func (c *Canvas) Bounds() image.Rectangle { return image.Rect(0, 0, c.w, c.h) }
