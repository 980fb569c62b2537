package models

// IsFixed reports whether the search bar should stick to the top of the
// viewport: once the page has scrolled down to where the bar started.
func IsFixed(scrollOffset, thresholdOffset float64) bool {
	return scrollOffset >= thresholdOffset
}
