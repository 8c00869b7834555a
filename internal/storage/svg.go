package storage

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/san-kum/keplersim/internal/dynamo"
)

var orbitColors = []string{"#00ffff", "#ff00ff", "#ffff00", "#00ff88", "#ff8800", "#8888ff"}

// OrbitsSVG draws the x-y path of every body across the snapshots, with a
// shared scale so that the orbits keep their true proportions. The reference
// body is drawn as a dot at its last position.
func OrbitsSVG(snaps [][]dynamo.Particle, ref, width, height int) string {
	if len(snaps) == 0 || len(snaps[0]) == 0 {
		return ""
	}

	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, snap := range snaps {
		for _, p := range snap {
			if !p.IsValid() {
				continue
			}
			minX, maxX = math.Min(minX, p.Pos.X), math.Max(maxX, p.Pos.X)
			minY, maxY = math.Min(minY, p.Pos.Y), math.Max(maxY, p.Pos.Y)
		}
	}
	if math.IsInf(minX, 0) {
		return ""
	}

	// square window around the data, with padding
	span := math.Max(maxX-minX, maxY-minY)
	if span == 0 {
		span = 1
	}
	span *= 1.2
	cx, cy := (minX+maxX)/2, (minY+maxY)/2
	size := math.Min(float64(width), float64(height))
	toScreen := func(x, y float64) (float64, float64) {
		sx := float64(width)/2 + (x-cx)/span*size
		sy := float64(height)/2 - (y-cy)/span*size
		return sx, sy
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	n := len(snaps[0])
	for i := 0; i < n; i++ {
		if i == ref {
			continue
		}
		color := orbitColors[(i-1+len(orbitColors))%len(orbitColors)]
		sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" d="`, color))
		move := true
		for _, snap := range snaps {
			if i >= len(snap) || !snap[i].IsValid() {
				move = true
				continue
			}
			x, y := toScreen(snap[i].Pos.X, snap[i].Pos.Y)
			if move {
				sb.WriteString(fmt.Sprintf("M%.1f,%.1f", x, y))
				move = false
			} else {
				sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
			}
		}
		sb.WriteString("\"/>\n")
	}

	if ref >= 0 && ref < n {
		last := snaps[len(snaps)-1]
		x, y := toScreen(last[ref].Pos.X, last[ref].Pos.Y)
		sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="4" fill="#ffffff"/>
`, x, y))
	}

	sb.WriteString("</svg>")
	return sb.String()
}

func ExportSVG(path string, snaps [][]dynamo.Particle, ref int) error {
	svg := OrbitsSVG(snaps, ref, 800, 800)
	if svg == "" {
		return fmt.Errorf("no finite positions to draw")
	}
	return os.WriteFile(path, []byte(svg), 0644)
}
