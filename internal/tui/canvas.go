package tui

import (
	"math"
	"strings"

	"github.com/san-kum/keplersim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

func newCanvas(w, h int) [][]rune {
	canvas := make([][]rune, h)
	for i := range canvas {
		canvas[i] = make([]rune, w)
	}
	clearCanvas(canvas)
	return canvas
}

func clearCanvas(canvas [][]rune) {
	for y := range canvas {
		for x := range canvas[y] {
			canvas[y][x] = ' '
		}
	}
}

func set(canvas [][]rune, x, y int, c rune, w, h int) {
	if x >= 0 && x < w && y >= 0 && y < h {
		canvas[y][x] = c
	}
}

// extentOf is the half-width of the square view that holds every particle
// at its current position, with a margin.
func extentOf(ps dynamo.ParticleStore) float64 {
	ext := 0.0
	ref := ps.At(ps.Reference()).Pos
	for i := 0; i < ps.Len(); i++ {
		d := r3.Sub(ps.At(i).Pos, ref)
		ext = math.Max(ext, math.Max(math.Abs(d.X), math.Abs(d.Y)))
	}
	if ext == 0 || math.IsNaN(ext) || math.IsInf(ext, 0) {
		return 1
	}
	return 1.25 * ext
}

// project maps (x, y) onto a w by h character grid centred on the origin.
// Terminal cells are about twice as tall as they are wide.
func project(x, y, extent float64, w, h int) (int, int) {
	scale := math.Min(float64(w)/2, float64(h)) / extent
	cx := int(math.Round(float64(w)/2 + x*scale))
	cy := int(math.Round(float64(h)/2 - y*scale/2))
	return cx, cy
}

func trailChar(speed, maxSpeed float64) rune {
	if maxSpeed == 0 {
		return '·'
	}
	ratio := speed / maxSpeed
	if ratio < 0.25 {
		return '·'
	} else if ratio < 0.5 {
		return '∘'
	} else if ratio < 0.75 {
		return '○'
	}
	return '●'
}

func sparkline(data []float64, width int) string {
	if len(data) == 0 {
		return ""
	}
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	minVal, maxVal := data[0], data[0]
	for _, v := range data {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	rang := maxVal - minVal
	if rang == 0 {
		rang = 1
	}
	step := len(data) / width
	if step < 1 {
		step = 1
	}
	var sb strings.Builder
	for i := 0; i < width && i*step < len(data); i++ {
		idx := int((data[i*step] - minVal) / rang * 7)
		if idx > 7 {
			idx = 7
		}
		if idx < 0 {
			idx = 0
		}
		sb.WriteRune(chars[idx])
	}
	return sb.String()
}
