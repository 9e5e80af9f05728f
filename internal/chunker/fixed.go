package chunker

import "strings"

const defaultWindowWidth = 500

// FixedWidthSplitter splits free text into consecutive windows of a fixed
// rune count. It is the fallback for unstructured text where no better
// boundary is known.
type FixedWidthSplitter struct {
	width int
}

// NewFixedWidthSplitter creates a fixed-width splitter. A non-positive width
// falls back to the default window size.
func NewFixedWidthSplitter(width int) *FixedWidthSplitter {
	if width <= 0 {
		width = defaultWindowWidth
	}
	return &FixedWidthSplitter{width: width}
}

// Split implements Splitter.
func (s *FixedWidthSplitter) Split(src Source) ([]string, error) {
	runes := []rune(src.Text)

	var units []string
	for start := 0; start < len(runes); start += s.width {
		end := start + s.width
		if end > len(runes) {
			end = len(runes)
		}
		window := string(runes[start:end])
		if strings.TrimSpace(window) == "" {
			continue
		}
		units = append(units, window)
	}
	return units, nil
}
