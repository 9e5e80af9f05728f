package chunker

import "strings"

// ParagraphSplitter splits free text on blank-line boundaries. A run of
// non-blank lines is one unit; a trailing run without a closing blank line is
// still emitted. Lines are kept verbatim inside a unit, so joining the units
// back with blank lines reproduces every non-blank line of the input.
type ParagraphSplitter struct{}

// Split implements Splitter.
func (s *ParagraphSplitter) Split(src Source) ([]string, error) {
	lines := strings.Split(src.Text, "\n")

	var units []string
	var run []string

	flush := func() {
		if len(run) == 0 {
			return
		}
		unit := strings.Join(run, "\n")
		if strings.TrimSpace(unit) != "" {
			units = append(units, unit)
		}
		run = nil
	}

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		run = append(run, line)
	}
	flush()

	return units, nil
}
