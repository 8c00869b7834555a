package orbit

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/keplersim/internal/dynamo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func assertVecNear(t *testing.T, want, got r3.Vec, tol float64, msg string) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, tol, msg+" x")
	assert.InDelta(t, want.Y, got.Y, tol, msg+" y")
	assert.InDelta(t, want.Z, got.Z, tol, msg+" z")
}

func TestToPalKeplertest(t *testing.T) {
	sun := dynamo.Particle{Mass: 1}
	el := Elements{A: 1, E: 0.2940098, Inc: 0.80004, Omega: 0.3020, Peri: 0.1}
	p, err := ToParticle(1, sun, 1e-2, el)
	require.NoError(t, err)

	pl, err := ToPal(1, p, sun)
	require.NoError(t, err)

	varpi := el.Omega + el.Peri
	assert.InDelta(t, 1, pl.A, 1e-12)
	assert.Less(t, angleDiff(varpi, pl.Lambda), 1e-10, "at pericentre the mean longitude is varpi")
	assert.InDelta(t, el.E*math.Cos(varpi), pl.K, 1e-12)
	assert.InDelta(t, el.E*math.Sin(varpi), pl.H, 1e-12)
	assert.InDelta(t, 2*math.Sin(el.Inc/2)*math.Cos(el.Omega), pl.Ix, 1e-12)
	assert.InDelta(t, 2*math.Sin(el.Inc/2)*math.Sin(el.Omega), pl.Iy, 1e-12)
}

func TestPalRoundTrip(t *testing.T) {
	sun := dynamo.Particle{Mass: 1, Pos: r3.Vec{X: 0.3, Y: -0.1}, Vel: r3.Vec{Z: 0.05}}

	tests := []struct {
		name string
		el   Elements
	}{
		{"keplertest", Elements{A: 1, E: 0.2940098, Inc: 0.80004, Omega: 0.3020, Peri: 0.1, F: 0.7}},
		{"steep", Elements{A: 5.2, E: 0.6, Inc: 2.5, Omega: 4.0, Peri: 5.0, F: 3.0}},
		{"circular equatorial", Elements{A: 2, F: 1.0}},
		{"circular inclined", Elements{A: 0.4, Inc: 0.2, Omega: 1.1, F: 4.4}},
		{"eccentric equatorial", Elements{A: 3, E: 0.9, Peri: 2.0, F: 0.3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ToParticle(1, sun, 1e-3, tt.el)
			require.NoError(t, err)

			pl, err := ToPal(1, p, sun)
			require.NoError(t, err)
			assert.InDelta(t, tt.el.A, pl.A, 1e-10*tt.el.A)
			assert.InDelta(t, tt.el.E, math.Hypot(pl.K, pl.H), 1e-10)

			back, err := FromPal(1, sun, 1e-3, pl)
			require.NoError(t, err)
			assert.Equal(t, 1e-3, back.Mass)
			assertVecNear(t, p.Pos, back.Pos, 1e-10*tt.el.A, "position")
			assertVecNear(t, p.Vel, back.Vel, 1e-10, "velocity")
		})
	}
}

func TestVaryPalMatchesFiniteDifferences(t *testing.T) {
	sun := dynamo.Particle{Mass: 1}
	const m = 1e-2

	orbits := map[string]Pal{}
	for name, el := range map[string]Elements{
		"keplertest": {A: 1, E: 0.2940098, Inc: 0.80004, Omega: 0.3020, Peri: 0.1, F: 0.9},
		"steep":      {A: 2.5, E: 0.6, Inc: 2.5, Omega: 4.0, Peri: 5.0, F: 3.0},
	} {
		p, err := ToParticle(1, sun, m, el)
		require.NoError(t, err)
		pl, err := ToPal(1, p, sun)
		require.NoError(t, err)
		orbits[name] = pl
	}

	shift := func(pl Pal, c PalComponent, by float64) Pal {
		switch c {
		case PalA:
			pl.A += by
		case PalLambda:
			pl.Lambda += by
		case PalK:
			pl.K += by
		case PalH:
			pl.H += by
		case PalIx:
			pl.Ix += by
		case PalIy:
			pl.Iy += by
		}
		return pl
	}

	const delta = 1e-6
	for name, pl := range orbits {
		for c := PalA; c <= PalIy; c++ {
			t.Run(name+"/"+c.String(), func(t *testing.T) {
				got, err := VaryPal(1, sun, m, pl, c)
				require.NoError(t, err)
				assert.Zero(t, got.Mass)

				plus, err := FromPal(1, sun, m, shift(pl, c, delta))
				require.NoError(t, err)
				minus, err := FromPal(1, sun, m, shift(pl, c, -delta))
				require.NoError(t, err)

				want := dynamo.Particle{
					Pos: r3.Scale(1/(2*delta), r3.Sub(plus.Pos, minus.Pos)),
					Vel: r3.Scale(1/(2*delta), r3.Sub(plus.Vel, minus.Vel)),
				}
				assertVecNear(t, want.Pos, got.Pos, 1e-7, "position")
				assertVecNear(t, want.Vel, got.Vel, 1e-7, "velocity")
			})
		}
	}
}

func TestPalErrors(t *testing.T) {
	sun := dynamo.Particle{Mass: 1}
	good := Pal{A: 1, Lambda: 0.5, K: 0.1, H: 0.2, Ix: 0.3, Iy: -0.1}

	for _, bad := range []Pal{
		{A: -1},
		{A: 1, K: 0.8, H: 0.7},
		{A: 1, Ix: 2, Iy: 0.1},
		{A: 1, Lambda: math.NaN()},
	} {
		_, err := FromPal(1, sun, 0, bad)
		assert.True(t, errors.Is(err, dynamo.ErrParameterBounds), "FromPal(%+v) = %v", bad, err)
	}

	_, err := VaryPal(1, sun, 0, good, PalComponent(9))
	assert.True(t, errors.Is(err, dynamo.ErrParameterBounds), "got %v", err)
	assert.Equal(t, "PalComponent(9)", PalComponent(9).String())

	_, err = FromPal(1, dynamo.Particle{}, 0, good)
	assert.True(t, errors.Is(err, dynamo.ErrParameterBounds), "zero mass: got %v", err)

	hyperbolic := dynamo.Particle{Pos: r3.Vec{X: 1}, Vel: r3.Vec{Y: 2}}
	_, err = ToPal(1, hyperbolic, sun)
	assert.True(t, errors.Is(err, dynamo.ErrInvalidState), "unbound: got %v", err)

	radial := dynamo.Particle{Pos: r3.Vec{X: 1}, Vel: r3.Vec{X: 0.1}}
	_, err = ToPal(1, radial, sun)
	assert.True(t, errors.Is(err, dynamo.ErrInvalidState), "radial: got %v", err)

	retro, err := ToParticle(1, sun, 0, Elements{A: 1, E: 0.1, Inc: math.Pi})
	require.NoError(t, err)
	_, err = ToPal(1, retro, sun)
	assert.True(t, errors.Is(err, dynamo.ErrInvalidState), "retrograde equatorial: got %v", err)
}
