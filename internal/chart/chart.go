// Package chart builds bar charts from the numeric columns of a dataset.
package chart

import (
	"math"

	"github.com/montanaflynn/stats"

	"github.com/JonMunkholm/sweeper/internal/dataset"
)

// MaxSeries is how many numeric columns a chart plots.
const MaxSeries = 2

// Series is one plotted column. Present[i] is false where row i is missing.
type Series struct {
	Name    string
	Values  []float64
	Present []bool
}

// BarChart plots up to MaxSeries numeric columns against row position.
type BarChart struct {
	Series []Series
	Rows   int
}

// FromDataset takes the first two numeric columns in column order. A dataset
// without numeric columns gives an empty chart.
func FromDataset(ds *dataset.Dataset) *BarChart {
	c := &BarChart{}

	for _, col := range ds.NumericColumns() {
		if len(c.Series) == MaxSeries {
			break
		}
		s := Series{
			Name:    col.Name,
			Values:  make([]float64, len(col.Cells)),
			Present: make([]bool, len(col.Cells)),
		}
		for i, cell := range col.Cells {
			if cell.Kind == dataset.Number && !math.IsNaN(cell.Num) && !math.IsInf(cell.Num, 0) {
				s.Values[i] = cell.Num
				s.Present[i] = true
			}
		}
		c.Series = append(c.Series, s)
	}

	if len(c.Series) > 0 {
		c.Rows = ds.NumRows()
	}
	return c
}

// Empty reports whether there is nothing to draw.
func (c *BarChart) Empty() bool {
	return len(c.Series) == 0 || c.Rows == 0
}

// Bounds returns the value range of the y axis. Zero is always included so
// bars grow from a baseline.
func (c *BarChart) Bounds() (lo, hi float64) {
	var values []float64
	for _, s := range c.Series {
		for i, v := range s.Values {
			if s.Present[i] {
				values = append(values, v)
			}
		}
	}

	lo, err := stats.Min(values)
	if err != nil {
		return 0, 0
	}
	hi, _ = stats.Max(values)
	return math.Min(lo, 0), math.Max(hi, 0)
}

// Bar is a laid-out rectangle in SVG user units.
type Bar struct {
	Series int
	Row    int
	Value  float64
	X, Y   float64
	W, H   float64
}

// Layout sizes the plot area and the bars for rendering.
type Layout struct {
	Width, Height float64
	BaselineY     float64
	Bars          []Bar
}

// Layout positions bars inside a width x height plot. Rows share the width
// evenly and each row's group holds one bar per series.
func (c *BarChart) Layout(width, height float64) Layout {
	l := Layout{Width: width, Height: height, BaselineY: height}
	if c.Empty() {
		return l
	}

	lo, hi := c.Bounds()
	span := hi - lo
	if span == 0 {
		span = 1
	}
	scale := height / span
	l.BaselineY = hi * scale

	group := width / float64(c.Rows)
	barW := group * 0.8 / float64(len(c.Series))
	for r := 0; r < c.Rows; r++ {
		for si, s := range c.Series {
			if !s.Present[r] {
				continue
			}
			v := s.Values[r]
			h := math.Abs(v) * scale
			y := l.BaselineY - h
			if v < 0 {
				y = l.BaselineY
			}
			l.Bars = append(l.Bars, Bar{
				Series: si,
				Row:    r,
				Value:  v,
				X:      float64(r)*group + group*0.1 + float64(si)*barW,
				Y:      y,
				W:      barW,
				H:      h,
			})
		}
	}
	return l
}
