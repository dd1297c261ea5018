// Package overlay places and drives the transient profile card that is
// anchored to a message avatar.
package overlay

// Card dimensions and spacing used by the conversation view.
const (
	CardWidth  = 220
	CardHeight = 220
	Margin     = 8
)

// Rect is an element's bounding box in viewport coordinates.
type Rect struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Bottom returns the rect's bottom edge.
func (r Rect) Bottom() float64 { return r.Top + r.Height }

// Size is a width/height pair.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Position is the top-left corner of the overlay.
type Position struct {
	Top  float64 `json:"top"`
	Left float64 `json:"left"`
}

// ComputePosition places an overlay of the given size centered above anchor
// and then corrects it against the viewport edges. The rules run in order and
// each runs once: flip below when the top edge is crossed, then clamp to the
// left edge, then clamp to the right edge. Overflow at the bottom is accepted.
func ComputePosition(anchor Rect, overlay Size, viewport Size, margin float64) Position {
	top := anchor.Top - overlay.Height - margin
	left := anchor.Left + anchor.Width/2 - overlay.Width/2

	if top < margin {
		top = anchor.Bottom() + margin
	}
	if left < margin {
		left = margin
	}
	if left+overlay.Width > viewport.Width-margin {
		left = viewport.Width - overlay.Width - margin
	}

	return Position{Top: top, Left: left}
}

// CardPosition is ComputePosition with the card's default size and margin.
func CardPosition(anchor Rect, viewport Size) Position {
	return ComputePosition(anchor, Size{Width: CardWidth, Height: CardHeight}, viewport, Margin)
}
