package sim

import "github.com/san-kum/popdyn/internal/dynamo"

// History is the append-only trajectory buffer. The seed point and the
// first fullResolution ticks are always kept; after that a tick is kept
// only when its index is a multiple of every.
type History struct {
	points         []dynamo.TrajectoryPoint
	fullResolution int
	every          int
}

func NewHistory(fullResolution, every int) *History {
	if every < 1 {
		every = 1
	}
	return &History{
		points:         make([]dynamo.TrajectoryPoint, 0, fullResolution+1),
		fullResolution: fullResolution,
		every:          every,
	}
}

// Reset drops every point and seeds the buffer with p.
func (h *History) Reset(p dynamo.TrajectoryPoint) {
	h.points = append(h.points[:0], p)
}

// Append records the point produced by tick index (1-based since reset)
// and reports whether it was retained.
func (h *History) Append(index int, p dynamo.TrajectoryPoint) bool {
	if index > h.fullResolution && index%h.every != 0 {
		return false
	}
	h.points = append(h.points, p)
	return true
}

func (h *History) Len() int { return len(h.points) }

// Tail returns a copy of the last n points, or all of them when n <= 0.
func (h *History) Tail(n int) []dynamo.TrajectoryPoint {
	src := h.points
	if n > 0 && n < len(src) {
		src = src[len(src)-n:]
	}
	out := make([]dynamo.TrajectoryPoint, len(src))
	copy(out, src)
	return out
}
