package tui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/san-kum/keplersim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	width       = 70
	height      = 24
	clearScreen = "\033[2J\033[H"
	hideCursor  = "\033[?25l"
	showCursor  = "\033[?25h"
	maxTrail    = 400
)

// LiveRenderer is an observer that redraws the x-y projection of the
// particles on a plain terminal, at most frameRate times a second.
type LiveRenderer struct {
	title     string
	frameRate int
	out       io.Writer
	lastFrame time.Time
	canvas    [][]rune
	extent    float64
	trail     [][2]int
}

func NewLiveRenderer(title string, frameRate int) *LiveRenderer {
	if frameRate <= 0 {
		frameRate = 30
	}
	return &LiveRenderer{
		title:     title,
		frameRate: frameRate,
		out:       os.Stdout,
		canvas:    newCanvas(width, height),
		trail:     make([][2]int, 0, maxTrail),
	}
}

func (r *LiveRenderer) OnStep(clock dynamo.Clock, ps dynamo.ParticleStore) {
	if r.extent == 0 {
		r.extent = extentOf(ps)
	}

	elapsed := time.Since(r.lastFrame)
	if elapsed < time.Second/time.Duration(r.frameRate) {
		return
	}
	r.lastFrame = time.Now()

	clearCanvas(r.canvas)

	ref := ps.Reference()
	for i := 0; i < ps.Len(); i++ {
		if i == ref {
			continue
		}
		p := ps.At(i)
		x, y := project(p.Pos.X, p.Pos.Y, r.extent, width, height)
		r.trail = append(r.trail, [2]int{x, y})
	}
	if len(r.trail) > maxTrail {
		r.trail = r.trail[len(r.trail)-maxTrail:]
	}
	for _, pt := range r.trail {
		set(r.canvas, pt[0], pt[1], '.', width, height)
	}

	for i := 0; i < ps.Len(); i++ {
		p := ps.At(i)
		x, y := project(p.Pos.X, p.Pos.Y, r.extent, width, height)
		c := 'o'
		if i == ref {
			c = '*'
		}
		set(r.canvas, x, y, c, width, height)
	}

	r.render(clock, ps)
}

func (r *LiveRenderer) render(clock dynamo.Clock, ps dynamo.ParticleStore) {
	var b strings.Builder
	b.WriteString(clearScreen)
	b.WriteString(fmt.Sprintf("  %s  t=%.2f  step=%d\n", r.title, clock.T, clock.Step))
	b.WriteString("  " + strings.Repeat("-", width) + "\n")

	for _, row := range r.canvas {
		b.WriteString("  ")
		b.WriteString(string(row))
		b.WriteString("\n")
	}

	b.WriteString("  " + strings.Repeat("-", width) + "\n")

	ref := ps.Reference()
	shown := 0
	for i := 0; i < ps.Len() && shown < 3; i++ {
		if i == ref {
			continue
		}
		p := ps.At(i)
		b.WriteString(fmt.Sprintf("  #%d r=%.4f v=%.4f\n", i, r3.Norm(p.Pos), r3.Norm(p.Vel)))
		shown++
	}

	fmt.Fprint(r.out, b.String())
}

func (r *LiveRenderer) Start() { fmt.Fprint(r.out, hideCursor) }
func (r *LiveRenderer) Stop()  { fmt.Fprint(r.out, showCursor) }
