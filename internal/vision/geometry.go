package vision

import (
	"badge-compliance-service/internal/domain/compliance"
)

// Minimum clamped person-box dimensions worth processing. Anything smaller
// is too small to trust a face region extracted from it.
const (
	minPersonWidth  = 20
	minPersonHeight = 30
)

// CardCenters computes the center point of every ID-card box. Centers are
// computed once per frame and shared across all person checks.
func CardCenters(cards []compliance.Box) []compliance.Point {
	centers := make([]compliance.Point, 0, len(cards))
	for _, c := range cards {
		centers = append(centers, c.Center())
	}
	return centers
}

// HasBadge reports whether any ID-card center lies strictly inside the
// person box. A single qualifying card suffices; this is a containment
// test, not an overlap test, so a partially occluded badge still counts
// as long as its center is visible inside the person.
func HasBadge(person compliance.Box, centers []compliance.Point) bool {
	for _, c := range centers {
		if float64(person.X1) < c.X && c.X < float64(person.X2) &&
			float64(person.Y1) < c.Y && c.Y < float64(person.Y2) {
			return true
		}
	}
	return false
}

// ClampToFrame clamps the box to the frame bounds. ok is false when the
// clamped box is degenerate or below the minimum trusted size, in which
// case the person is excluded from all further processing.
func ClampToFrame(b compliance.Box, frameWidth, frameHeight int) (compliance.Box, bool) {
	if b.X1 < 0 {
		b.X1 = 0
	}
	if b.Y1 < 0 {
		b.Y1 = 0
	}
	if b.X2 > frameWidth {
		b.X2 = frameWidth
	}
	if b.Y2 > frameHeight {
		b.Y2 = frameHeight
	}
	if b.X1 >= b.X2 || b.Y1 >= b.Y2 {
		return b, false
	}
	if b.Width() < minPersonWidth || b.Height() < minPersonHeight {
		return b, false
	}
	return b, true
}
