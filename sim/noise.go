package sim

import (
	"math"
	"math/rand"
)

// perlinNoise generates coherent 2D noise for terrain elevation.
type perlinNoise struct {
	perm [512]int
}

func newPerlinNoise(seed int64) *perlinNoise {
	p := &perlinNoise{}
	rng := rand.New(rand.NewSource(seed))

	var perm [256]int
	for i := range perm {
		perm[i] = i
	}
	for i := len(perm) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		perm[i], perm[j] = perm[j], perm[i]
	}
	for i := 0; i < 256; i++ {
		p.perm[i] = perm[i]
		p.perm[i+256] = perm[i]
	}
	return p
}

// noise2D returns a value in roughly [-1,1].
func (p *perlinNoise) noise2D(x, y float64) float64 {
	X := int(math.Floor(x)) & 255
	Y := int(math.Floor(y)) & 255

	x -= math.Floor(x)
	y -= math.Floor(y)

	u := fade(x)
	v := fade(y)

	a := p.perm[X] + Y
	b := p.perm[X+1] + Y

	return lerp(v,
		lerp(u, grad2D(p.perm[a], x, y), grad2D(p.perm[b], x-1, y)),
		lerp(u, grad2D(p.perm[a+1], x, y-1), grad2D(p.perm[b+1], x-1, y-1)))
}

// fractal2D sums octaves of noise2D with halving amplitude.
func (p *perlinNoise) fractal2D(x, y float64, octaves int) float64 {
	var sum, amp, norm float64
	amp = 1
	freq := 1.0
	for i := 0; i < octaves; i++ {
		sum += p.noise2D(x*freq, y*freq) * amp
		norm += amp
		amp *= 0.5
		freq *= 2
	}
	return sum / norm
}

func fade(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

func lerp(t, a, b float64) float64 {
	return a + t*(b-a)
}

func grad2D(hash int, x, y float64) float64 {
	h := hash & 7
	u := x
	if h >= 4 {
		u = y
	}
	v := y
	if h >= 4 {
		v = x
	}
	if h&1 != 0 {
		u = -u
	}
	if h&2 != 0 {
		v = -v
	}
	return u + v*0.5
}
