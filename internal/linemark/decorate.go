package linemark

import "strings"

// MarkerGlyph prefixes every inline marker.
const MarkerGlyph = "✎ "

// Marker is one computed inline indicator: a zero-based line index and the
// text to render beside it.
type Marker struct {
	Line int    `json:"line"`
	Text string `json:"text"`
}

// ComputeMarkers derives the full marker set for a document snapshot. Pure
// over (lines, lookup): no I/O, no side effects, recomputed wholesale on
// every trigger. Lines with identical text each get the same marker;
// that is the content-addressing design, not a bug.
func ComputeMarkers(lines []string, lookup func(id string) (string, bool)) []Marker {
	var markers []Marker
	for i, line := range lines {
		content, ok := lookup(HashLine(line))
		if !ok {
			continue
		}
		markers = append(markers, Marker{
			Line: i,
			Text: MarkerGlyph + firstLine(content),
		})
	}
	return markers
}

func firstLine(content string) string {
	if idx := strings.IndexByte(content, '\n'); idx >= 0 {
		content = content[:idx]
	}
	return strings.TrimSuffix(content, "\r")
}
