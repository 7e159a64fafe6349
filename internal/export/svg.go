package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/popdyn/internal/dynamo"
)

const (
	preyColor = "#5fd068"
	predColor = "#ff6b6b"
)

type point struct{ X, Y float64 }

type bounds struct{ minX, maxX, minY, maxY float64 }

func boundsOf(series ...[]point) bounds {
	b := bounds{math.Inf(1), math.Inf(-1), math.Inf(1), math.Inf(-1)}
	for _, s := range series {
		for _, p := range s {
			b.minX, b.maxX = math.Min(b.minX, p.X), math.Max(b.maxX, p.X)
			b.minY, b.maxY = math.Min(b.minY, p.Y), math.Max(b.maxY, p.Y)
		}
	}
	rangeX, rangeY := b.maxX-b.minX, b.maxY-b.minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	b.minY -= rangeY * 0.05
	b.maxY += rangeY * 0.05
	b.maxX = b.minX + rangeX
	return b
}

func (b bounds) path(sb *strings.Builder, pts []point, width, height int, stroke string) {
	rangeX, rangeY := b.maxX-b.minX, b.maxY-b.minY
	fmt.Fprintf(sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, stroke)
	for i, p := range pts {
		x := (p.X - b.minX) / rangeX * float64(width)
		y := float64(height) - (p.Y-b.minY)/rangeY*float64(height)
		if i == 0 {
			fmt.Fprintf(sb, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(sb, " L%.1f,%.1f", x, y)
		}
	}
	sb.WriteString("\"/>\n")
}

func header(sb *strings.Builder, width, height int) {
	fmt.Fprintf(sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)
}

// TimeSeriesSVG plots N1 and N2 against time on shared axes.
func TimeSeriesSVG(points []dynamo.TrajectoryPoint, width, height int) string {
	if len(points) < 2 {
		return ""
	}
	n1 := make([]point, len(points))
	n2 := make([]point, len(points))
	for i, p := range points {
		n1[i] = point{p.Time, p.N1}
		n2[i] = point{p.Time, p.N2}
	}
	b := boundsOf(n1, n2)

	var sb strings.Builder
	header(&sb, width, height)
	b.path(&sb, n1, width, height, preyColor)
	b.path(&sb, n2, width, height, predColor)
	sb.WriteString("</svg>")
	return sb.String()
}

// PhaseSVG plots the trajectory in the (N1, N2) plane.
func PhaseSVG(points []dynamo.TrajectoryPoint, width, height int) string {
	if len(points) < 2 {
		return ""
	}
	pts := make([]point, len(points))
	for i, p := range points {
		pts[i] = point{p.N1, p.N2}
	}
	b := boundsOf(pts)
	rangeX := b.maxX - b.minX
	b.minX -= rangeX * 0.05
	b.maxX += rangeX * 0.05

	var sb strings.Builder
	header(&sb, width, height)
	b.path(&sb, pts, width, height, preyColor)
	sb.WriteString("</svg>")
	return sb.String()
}
