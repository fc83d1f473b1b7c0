package render

import (
	"image/color"
	"math"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

// sequential is a light-to-dark blue-green ramp
var sequential = []color.RGBA{
	{R: 0xf7, G: 0xfc, B: 0xf0, A: 0xff},
	{R: 0xcc, G: 0xeb, B: 0xc5, A: 0xff},
	{R: 0x7b, G: 0xcc, B: 0xc4, A: 0xff},
	{R: 0x2b, G: 0x8c, B: 0xbe, A: 0xff},
	{R: 0x08, G: 0x40, B: 0x81, A: 0xff},
}

// NoData is the fill of countries without a value
var NoData = color.RGBA{R: 0xd9, G: 0xd9, B: 0xd9, A: 0xff}

// Ramp maps value within [min, max] onto the sequential palette.
// Values outside the range are clamped; a degenerate range maps to the middle.
func Ramp(value, min, max float64) color.RGBA {
	if math.IsNaN(value) {
		return NoData
	}
	t := 0.5
	if max > min {
		t = (value - min) / (max - min)
	}
	t = math.Max(0, math.Min(1, t))

	pos := t * float64(len(sequential)-1)
	i := int(math.Floor(pos))
	if i >= len(sequential)-1 {
		return sequential[len(sequential)-1]
	}
	frac := pos - float64(i)
	a, b := sequential[i], sequential[i+1]
	return color.RGBA{
		R: lerp(a.R, b.R, frac),
		G: lerp(a.G, b.G, frac),
		B: lerp(a.B, b.B, frac),
		A: 0xff,
	}
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}

// seriesColor returns a distinct chart colour per series index
func seriesColor(i int) drawing.Color {
	palette := []drawing.Color{
		{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
		{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
		{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
		{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
		{R: 0x94, G: 0x67, B: 0xbd, A: 0xff},
		{R: 0x8c, G: 0x56, B: 0x4b, A: 0xff},
		{R: 0xe3, G: 0x77, B: 0xc2, A: 0xff},
		{R: 0x7f, G: 0x7f, B: 0x7f, A: 0xff},
		{R: 0xbc, G: 0xbd, B: 0x22, A: 0xff},
		{R: 0x17, G: 0xbe, B: 0xcf, A: 0xff},
	}
	return palette[i%len(palette)]
}
