// Package chart renders the per-country yield envelope with gonum/plot.
package chart

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/JakeFAU/bond-envelope/internal/bond"
)

// TickLayout formats expiry tick labels.
const TickLayout = "2006-01"

// ErrNoData is returned when there is nothing to plot.
var ErrNoData = errors.New("chart: no points with a yield to plot")

// Config controls the rendered figure.
type Config struct {
	WidthInches      float64 `mapstructure:"width_inches"`
	HeightInches     float64 `mapstructure:"height_inches"`
	Title            string  `mapstructure:"title"`
	LowessFrac       float64 `mapstructure:"lowess_frac"`
	LowessIterations int     `mapstructure:"lowess_iterations"`
	Ticks            int     `mapstructure:"ticks"`
}

// DefaultConfig returns a 12x7 inch figure with a 2/3 LOWESS span.
func DefaultConfig() Config {
	return Config{
		WidthInches:      12,
		HeightInches:     7,
		Title:            "Net yield to maturity by expiry",
		LowessFrac:       2.0 / 3.0,
		LowessIterations: 3,
		Ticks:            10,
	}
}

// Validate checks the figure settings.
func (c Config) Validate() error {
	if c.WidthInches <= 0 || c.HeightInches <= 0 {
		return fmt.Errorf("chart.width_inches and chart.height_inches must be > 0")
	}
	if c.LowessFrac <= 0 || c.LowessFrac > 1 {
		return fmt.Errorf("chart.lowess_frac must be in (0, 1]")
	}
	if c.LowessIterations < 0 {
		return fmt.Errorf("chart.lowess_iterations must be >= 0")
	}
	if c.Ticks < 2 {
		return fmt.Errorf("chart.ticks must be >= 2")
	}
	return nil
}

// Ticks returns n evenly spaced ticks between lo and hi (epoch seconds),
// labelled with the UTC year and month. Expiry dates are parsed as UTC
// midnight, so labels do not depend on the host time zone.
func Ticks(lo, hi float64, n int) []plot.Tick {
	if n < 2 || lo == hi {
		return []plot.Tick{{Value: lo, Label: tickLabel(lo)}}
	}
	ticks := make([]plot.Tick, n)
	step := (hi - lo) / float64(n-1)
	for i := range ticks {
		v := lo + step*float64(i)
		if i == n-1 {
			v = hi
		}
		ticks[i] = plot.Tick{Value: v, Label: tickLabel(v)}
	}
	return ticks
}

func tickLabel(epoch float64) string {
	return time.Unix(int64(math.Round(epoch)), 0).UTC().Format(TickLayout)
}

// countrySeries holds the plottable points of one country, in expiry order.
type countrySeries struct {
	country  string
	all      plotter.XYs
	envelope plotter.XYs
	isins    []string
}

// group splits points by country. Countries are ordered by their first
// envelope point, then by first appearance for countries with none.
func group(points []bond.EnvelopePoint) []*countrySeries {
	byCountry := make(map[string]*countrySeries)
	var order, rest []string
	for _, p := range points {
		if math.IsNaN(p.Yield) {
			continue
		}
		s, ok := byCountry[p.Bond.Country]
		if !ok {
			s = &countrySeries{country: p.Bond.Country}
			byCountry[p.Bond.Country] = s
			rest = append(rest, p.Bond.Country)
		}
		x := float64(p.Expiry.Unix())
		s.all = append(s.all, plotter.XY{X: x, Y: p.Yield})
		if p.OnEnvelope {
			if len(s.envelope) == 0 {
				order = append(order, p.Bond.Country)
			}
			s.envelope = append(s.envelope, plotter.XY{X: x, Y: p.RunningMax})
			s.isins = append(s.isins, p.Bond.ISIN)
		}
	}
	for _, c := range rest {
		if len(byCountry[c].envelope) == 0 {
			order = append(order, c)
		}
	}
	out := make([]*countrySeries, 0, len(order))
	for _, c := range order {
		out = append(out, byCountry[c])
	}
	return out
}

// Render builds the envelope figure: per country a scatter of yields, a
// LOWESS trend, a step line through the envelope points and ISIN labels.
func Render(points []bond.EnvelopePoint, cfg Config) (*plot.Plot, error) {
	series := group(points)
	if len(series) == 0 {
		return nil, ErrNoData
	}

	p := plot.New()
	p.Title.Text = cfg.Title
	p.X.Label.Text = "Expiry"
	p.Y.Label.Text = "Net yield to maturity"
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = text.XRight
	p.X.Tick.Label.YAlign = text.YCenter
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	lo, hi := math.Inf(1), math.Inf(-1)
	for i, s := range series {
		c := plotutil.Color(i)
		for _, xy := range s.all {
			lo = math.Min(lo, xy.X)
			hi = math.Max(hi, xy.X)
		}

		scatter, err := plotter.NewScatter(s.all)
		if err != nil {
			return nil, fmt.Errorf("scatter %s: %w", s.country, err)
		}
		scatter.GlyphStyle.Color = c
		scatter.GlyphStyle.Shape = draw.CircleGlyph{}
		scatter.GlyphStyle.Radius = vg.Points(3)
		p.Add(scatter)
		p.Legend.Add(s.country, scatter)

		if len(s.all) >= 2 {
			trend, err := trendLine(s.all, cfg, c)
			if err != nil {
				return nil, fmt.Errorf("trend %s: %w", s.country, err)
			}
			p.Add(trend)
		}

		if len(s.envelope) == 0 {
			continue
		}
		env, err := plotter.NewLine(s.envelope)
		if err != nil {
			return nil, fmt.Errorf("envelope %s: %w", s.country, err)
		}
		env.LineStyle.Color = c
		env.LineStyle.Width = vg.Points(1.5)
		env.StepStyle = plotter.PostStep
		p.Add(env)

		labels, err := plotter.NewLabels(plotter.XYLabels{XYs: s.envelope, Labels: s.isins})
		if err != nil {
			return nil, fmt.Errorf("labels %s: %w", s.country, err)
		}
		labels.Offset = vg.Point{X: vg.Points(2), Y: vg.Points(2)}
		for i := range labels.TextStyle {
			labels.TextStyle[i].Font.Size = vg.Points(7)
		}
		p.Add(labels)
	}

	p.X.Tick.Marker = plot.ConstantTicks(Ticks(lo, hi, cfg.Ticks))
	return p, nil
}

func trendLine(xys plotter.XYs, cfg Config, c color.Color) (*plotter.Line, error) {
	x := make([]float64, len(xys))
	y := make([]float64, len(xys))
	for i, xy := range xys {
		x[i], y[i] = xy.X, xy.Y
	}
	fitted, err := Lowess(x, y, cfg.LowessFrac, cfg.LowessIterations)
	if err != nil {
		return nil, err
	}
	smooth := make(plotter.XYs, len(xys))
	for i := range xys {
		smooth[i] = plotter.XY{X: x[i], Y: fitted[i]}
	}
	line, err := plotter.NewLine(smooth)
	if err != nil {
		return nil, err
	}
	r, g, b, _ := c.RGBA()
	line.LineStyle.Color = color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 77}
	line.LineStyle.Width = vg.Points(5)
	return line, nil
}

// RenderPNG renders the figure and writes it to w as PNG.
func RenderPNG(w io.Writer, points []bond.EnvelopePoint, cfg Config) error {
	p, err := Render(points, cfg)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(vg.Length(cfg.WidthInches)*vg.Inch, vg.Length(cfg.HeightInches)*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}
