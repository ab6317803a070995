// Package chart turns category totals into pie slices the page can draw
// as SVG paths on a 100x100 viewbox.
package chart

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"
)

const (
	center = 50.0
	radius = 45.0
)

var palette = []string{
	"#4e79a7", "#f28e2b", "#e15759", "#76b7b2", "#59a14f",
	"#edc948", "#b07aa1", "#ff9da7", "#9c755f", "#bab0ac",
}

// Slice is one wedge of the pie. Angles are in degrees, clockwise from 12 o'clock.
type Slice struct {
	Label   string          `json:"label"`
	Value   decimal.Decimal `json:"value"`
	Percent float64         `json:"percent"`
	Start   float64         `json:"start"`
	End     float64         `json:"end"`
	Path    string          `json:"path"`
	Color   string          `json:"color"`
}

// Chart is a drawn pie. It is owned by one holder at a time and must be
// released before another chart takes its place.
type Chart struct {
	Total    decimal.Decimal `json:"total"`
	Slices   []Slice         `json:"slices"`
	released bool
}

// Pie builds a chart from category totals. Non-positive totals are skipped.
func Pie(categories []core.CategoryAmount) *Chart {
	c := &Chart{Total: decimal.Zero}
	var kept []core.CategoryAmount
	for _, cat := range categories {
		if cat.Amount.IsPositive() {
			kept = append(kept, cat)
			c.Total = c.Total.Add(cat.Amount)
		}
	}
	if len(kept) == 0 {
		return c
	}

	total := c.Total.InexactFloat64()
	angle := 0.0
	for i, cat := range kept {
		share := cat.Amount.InexactFloat64() / total
		end := angle + share*360
		if i == len(kept)-1 {
			end = 360
		}
		pct, _ := cat.Amount.Div(c.Total).Mul(decimal.NewFromInt(100)).Round(1).Float64()
		c.Slices = append(c.Slices, Slice{
			Label:   cat.Name,
			Value:   cat.Amount,
			Percent: pct,
			Start:   angle,
			End:     end,
			Path:    arcPath(angle, end),
			Color:   palette[i%len(palette)],
		})
		angle = end
	}
	return c
}

// Release drops the slices. A released chart draws nothing.
func (c *Chart) Release() {
	if c == nil {
		return
	}
	c.Slices = nil
	c.released = true
}

// Released reports whether Release has been called.
func (c *Chart) Released() bool {
	return c != nil && c.released
}

// Empty reports whether there is nothing to draw.
func (c *Chart) Empty() bool {
	return c == nil || len(c.Slices) == 0
}

func point(deg float64) (float64, float64) {
	rad := (deg - 90) * math.Pi / 180
	return center + radius*math.Cos(rad), center + radius*math.Sin(rad)
}

func arcPath(start, end float64) string {
	if end-start >= 359.999 {
		// a single arc cannot close on itself; draw two halves
		return fmt.Sprintf("M %.3f %.3f A %.0f %.0f 0 1 1 %.3f %.3f A %.0f %.0f 0 1 1 %.3f %.3f Z",
			center, center-radius, radius, radius, center, center+radius, radius, radius, center, center-radius)
	}
	x1, y1 := point(start)
	x2, y2 := point(end)
	large := 0
	if end-start > 180 {
		large = 1
	}
	return fmt.Sprintf("M %.3f %.3f L %.3f %.3f A %.0f %.0f 0 %d 1 %.3f %.3f Z",
		center, center, x1, y1, radius, radius, large, x2, y2)
}
