// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdf

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"math"

	"golang.org/x/image/vector"
)

const (
	// minDrawings is the primitive count a page must exceed to be
	// rasterized.
	minDrawings = 10
	// maxTextPerDrawing is the text-to-primitive ratio below which a page
	// counts as mostly drawing.
	maxTextPerDrawing = 5.0
	// RasterScale is the upscale factor applied to page dimensions.
	RasterScale = 2.0
	// curveSteps is the number of line segments per flattened curve.
	curveSteps = 16
)

// ShouldRasterize reports whether a page with the given number of drawing
// primitives and characters of text is mostly vector graphics.
func ShouldRasterize(drawings, textLen int) bool {
	if drawings <= minDrawings {
		return false
	}
	return float64(textLen)/float64(drawings) < maxTextPerDrawing
}

// rasterize renders painted paths onto a white page of the given size in
// points, scaled by scale, and encodes it as PNG.
func rasterize(drawings []drawing, width, height, scale float64) ([]byte, error) {
	w := int(math.Ceil(width * scale))
	h := int(math.Ceil(height * scale))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid page size %.1fx%.1f", width, height)
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)

	// Page space has its origin bottom-left; raster space top-left.
	tx := func(p point) (float32, float32) {
		return float32(p.x * scale), float32((height - p.y) * scale)
	}

	z := vector.NewRasterizer(w, h)
	for _, d := range drawings {
		if d.fill {
			z.Reset(w, h)
			for _, s := range d.segs {
				switch s.op {
				case 'm':
					z.MoveTo(tx(s.pts[0]))
				case 'l':
					z.LineTo(tx(s.pts[0]))
				case 'c':
					bx, by := tx(s.pts[0])
					cx, cy := tx(s.pts[1])
					dx, dy := tx(s.pts[2])
					z.CubeTo(bx, by, cx, cy, dx, dy)
				case 'h':
					z.ClosePath()
				}
			}
			z.Draw(dst, dst.Bounds(), image.NewUniform(d.fillColor), image.Point{})
		}
		if d.stroke {
			z.Reset(w, h)
			half := math.Max(d.lineWidth*scale, 1) / 2
			for _, ln := range flatten(d.segs) {
				strokeLine(z, tx, ln[0], ln[1], half)
			}
			z.Draw(dst, dst.Bounds(), image.NewUniform(d.strokeColor), image.Point{})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}

// flatten converts a path into straight line segments.
func flatten(segs []segment) [][2]point {
	var out [][2]point
	var cur, start point
	for _, s := range segs {
		switch s.op {
		case 'm':
			cur, start = s.pts[0], s.pts[0]
		case 'l':
			out = append(out, [2]point{cur, s.pts[0]})
			cur = s.pts[0]
		case 'c':
			p0, p1, p2, p3 := cur, s.pts[0], s.pts[1], s.pts[2]
			prev := p0
			for i := 1; i <= curveSteps; i++ {
				t := float64(i) / curveSteps
				mt := 1 - t
				p := point{
					x: mt*mt*mt*p0.x + 3*mt*mt*t*p1.x + 3*mt*t*t*p2.x + t*t*t*p3.x,
					y: mt*mt*mt*p0.y + 3*mt*mt*t*p1.y + 3*mt*t*t*p2.y + t*t*t*p3.y,
				}
				out = append(out, [2]point{prev, p})
				prev = p
			}
			cur = p3
		case 'h':
			if cur != start {
				out = append(out, [2]point{cur, start})
			}
			cur = start
		}
	}
	return out
}

// strokeLine adds a line segment of the given half-width as a quad.
func strokeLine(z *vector.Rasterizer, tx func(point) (float32, float32), a, b point, half float64) {
	ax, ay := tx(a)
	bx, by := tx(b)
	dx, dy := float64(bx-ax), float64(by-ay)
	n := math.Hypot(dx, dy)
	if n == 0 {
		return
	}
	nx, ny := float32(-dy/n*half), float32(dx/n*half)
	z.MoveTo(ax+nx, ay+ny)
	z.LineTo(bx+nx, by+ny)
	z.LineTo(bx-nx, by-ny)
	z.LineTo(ax-nx, ay-ny)
	z.ClosePath()
}
