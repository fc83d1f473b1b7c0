package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"strconv"

	"github.com/paulmach/orb"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/wonny/vaxtrack/internal/geo"
)

// MapOptions configures a choropleth
type MapOptions struct {
	Title  string
	Label  string // legend caption
	Width  int
	Height int
}

// Projection maps lon/lat onto an equirectangular canvas
type Projection struct {
	Width, Height int
}

// Project returns pixel coordinates of a point
func (p Projection) Project(pt orb.Point) (float32, float32) {
	x := (pt.Lon() + 180) / 360 * float64(p.Width)
	y := (90 - pt.Lat()) / 180 * float64(p.Height)
	return float32(x), float32(y)
}

const legendHeight = 48

// Choropleth draws every world country grey, then fills matched countries
// along the sequential ramp of their value
func Choropleth(w io.Writer, opts MapOptions, joined *geo.Joined) error {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = opts.Width / 2
	}

	matched := joined.Matched()
	if len(matched) == 0 {
		return ErrNoData
	}

	min, max := valueRange(matched)

	canvas := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height+legendHeight))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)

	proj := Projection{Width: opts.Width, Height: opts.Height}
	z := vector.NewRasterizer(opts.Width, opts.Height)

	// 1. Base layer
	if world := joined.World(); world != nil {
		for _, c := range world.Countries {
			fill(z, canvas, proj, c.Geometry, NoData)
		}
	}

	// 2. Values
	for _, r := range matched {
		fill(z, canvas, proj, r.Country.Geometry, Ramp(r.Value.Value, min, max))
	}

	// 3. Title and legend
	drawText(canvas, 10, 18, opts.Title)
	drawLegend(canvas, opts, min, max)

	if err := png.Encode(w, canvas); err != nil {
		return fmt.Errorf("encode choropleth: %w", err)
	}
	return nil
}

func valueRange(rows []geo.JoinedCountry) (float64, float64) {
	min, max := math.Inf(1), math.Inf(-1)
	for _, r := range rows {
		v := r.Value.Value
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		min = math.Min(min, v)
		max = math.Max(max, v)
	}
	if math.IsInf(min, 1) {
		return 0, 0
	}
	return min, max
}

func fill(z *vector.Rasterizer, dst draw.Image, proj Projection, g orb.Geometry, c color.RGBA) {
	var polys []orb.Polygon
	switch geom := g.(type) {
	case orb.Polygon:
		polys = []orb.Polygon{geom}
	case orb.MultiPolygon:
		polys = geom
	default:
		return
	}

	z.Reset(proj.Width, proj.Height)
	for _, poly := range polys {
		for _, ring := range poly {
			if len(ring) < 3 {
				continue
			}
			x, y := proj.Project(ring[0])
			z.MoveTo(x, y)
			for _, pt := range ring[1:] {
				x, y = proj.Project(pt)
				z.LineTo(x, y)
			}
			z.ClosePath()
		}
	}
	z.Draw(dst, image.Rect(0, 0, proj.Width, proj.Height), image.NewUniform(c), image.Point{})
}

func drawText(dst draw.Image, x, y int, text string) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.Black,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func drawLegend(dst *image.RGBA, opts MapOptions, min, max float64) {
	top := opts.Height + 8
	left := 10
	width := opts.Width / 3
	for i := 0; i < width; i++ {
		c := Ramp(float64(i), 0, float64(width-1))
		draw.Draw(dst, image.Rect(left+i, top, left+i+1, top+14), image.NewUniform(c), image.Point{}, draw.Src)
	}
	drawText(dst, left, top+30, formatLegend(min))
	drawText(dst, left+width-7*len(formatLegend(max)), top+30, formatLegend(max))
	if opts.Label != "" {
		drawText(dst, left+width+16, top+12, opts.Label)
	}
}

func formatLegend(v float64) string {
	if math.Abs(v) >= 1000 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}
