package calendar

// HiddenCount is the number of touching events beyond the inline capacity.
func HiddenCount(totalTouching int) int {
	return max(0, totalTouching-MaxVisibleEvents)
}

// InlineEvents keeps only events that own a lane, preserving order.
func InlineEvents(touching []PositionedEvent) []PositionedEvent {
	out := make([]PositionedEvent, 0, min(len(touching), MaxVisibleEvents))
	for _, p := range touching {
		if p.Inline() {
			out = append(out, p)
		}
	}
	return out
}
