// Package export renders snapshot profiles as standalone SVG documents,
// for runs inspected outside the terminal.
package export

import (
	"fmt"
	"math"
	"strings"
)

// Series is one radial profile drawn as a log-log polyline.
type Series struct {
	Label string
	Color string
	R     []float64
	Y     []float64
}

const yFloor = 1e-40

// ProfileSVG draws the given profiles on shared log-log axes. Series with
// fewer than two points are skipped.
func ProfileSVG(series []Series, width, height int) string {
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for i := range s.R {
			x := math.Log10(s.R[i])
			y := math.Log10(math.Max(s.Y[i], yFloor))
			minX, maxX = math.Min(minX, x), math.Max(maxX, x)
			minY, maxY = math.Min(minY, y), math.Max(maxY, y)
		}
	}
	if minX > maxX {
		return ""
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.05
	maxX += rangeX * 0.05
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	for si, s := range series {
		if len(s.R) < 2 || len(s.R) != len(s.Y) {
			continue
		}
		sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" d="M`, s.Color))
		for i := range s.R {
			x := (math.Log10(s.R[i]) - minX) / rangeX * float64(width)
			y := float64(height) - (math.Log10(math.Max(s.Y[i], yFloor))-minY)/rangeY*float64(height)
			if i == 0 {
				sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
			} else {
				sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
			}
		}
		sb.WriteString("\"/>\n")
		if s.Label != "" {
			sb.WriteString(fmt.Sprintf(`<text x="10" y="%d" fill="%s" font-family="monospace" font-size="12">%s</text>
`, 16+si*16, s.Color, s.Label))
		}
	}

	sb.WriteString("</svg>")
	return sb.String()
}
