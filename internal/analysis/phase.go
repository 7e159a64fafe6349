package analysis

import (
	"strings"

	"github.com/san-kum/popdyn/internal/dynamo"
)

// PhasePortrait renders N1 (horizontal) against N2 (vertical) as ASCII
// art. The start is marked 'S' and the latest point 'O'; mark, when
// valid, is drawn as '+' (typically the equilibrium).
func PhasePortrait(points []dynamo.TrajectoryPoint, mark *dynamo.State, width, height int) string {
	if len(points) == 0 || width <= 1 || height <= 1 {
		return ""
	}

	// Find bounds
	minX, maxX := points[0].N1, points[0].N1
	minY, maxY := points[0].N2, points[0].N2
	for _, p := range points {
		minX, maxX = min(minX, p.N1), max(maxX, p.N1)
		minY, maxY = min(minY, p.N2), max(maxY, p.N2)
	}
	if mark != nil {
		minX, maxX = min(minX, mark.N1), max(maxX, mark.N1)
		minY, maxY = min(minY, mark.N2), max(maxY, mark.N2)
	}

	// Populations are non-negative, so the padded box never goes below zero
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX = max(0, minX-rangeX*0.1)
	maxX += rangeX * 0.1
	minY = max(0, minY-rangeY*0.1)
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = make([]rune, width)
		for j := range canvas[i] {
			canvas[i][j] = ' '
		}
	}

	plot := func(x, y float64, c rune) {
		col := int((x - minX) / rangeX * float64(width-1))
		row := height - 1 - int((y-minY)/rangeY*float64(height-1))
		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = c
		}
	}

	for _, p := range points {
		plot(p.N1, p.N2, '•')
	}
	if mark != nil {
		plot(mark.N1, mark.N2, '+')
	}
	plot(points[0].N1, points[0].N2, 'S')
	last := points[len(points)-1]
	plot(last.N1, last.N2, 'O')

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
