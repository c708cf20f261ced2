package services

import "strings"

// TextSplitter splits text into overlapping chunks. It prefers breaking on
// paragraph boundaries, then single newlines, then sentence ends, then
// spaces, and only cuts mid-word as a last resort.
type TextSplitter struct {
	chunkSize    int
	chunkOverlap int
}

var splitterSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// NewTextSplitter creates a splitter. Non-positive sizes fall back to the
// ingestion defaults; an overlap >= size is clamped below size.
func NewTextSplitter(chunkSize, chunkOverlap int) *TextSplitter {
	if chunkSize <= 0 {
		chunkSize = 1200
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 2
	}
	return &TextSplitter{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// Split breaks text into chunks of at most chunkSize characters with
// chunkOverlap characters carried between consecutive chunks. Empty and
// whitespace-only input yields no chunks.
func (s *TextSplitter) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= s.chunkSize {
		return []string{text}
	}
	return s.splitRecursive(text, splitterSeparators)
}

func (s *TextSplitter) splitRecursive(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	nextSeparators := []string{}
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			nextSeparators = separators[i+1:]
			break
		}
	}

	splits := splitWithSeparator(text, separator)

	var (
		chunks     []string
		goodSplits []string
	)
	for _, piece := range splits {
		if len(piece) <= s.chunkSize {
			goodSplits = append(goodSplits, piece)
			continue
		}
		if len(goodSplits) > 0 {
			chunks = append(chunks, s.mergeSplits(goodSplits)...)
			goodSplits = nil
		}
		if len(nextSeparators) == 0 {
			chunks = append(chunks, piece)
		} else {
			chunks = append(chunks, s.splitRecursive(piece, nextSeparators)...)
		}
	}
	if len(goodSplits) > 0 {
		chunks = append(chunks, s.mergeSplits(goodSplits)...)
	}
	return chunks
}

// splitWithSeparator splits text on sep, keeping the separator attached to
// the preceding piece so merged chunks read naturally. An empty sep splits
// into rune-sized pieces.
func splitWithSeparator(text, sep string) []string {
	if sep == "" {
		runes := []rune(text)
		out := make([]string, 0, len(runes))
		for _, r := range runes {
			out = append(out, string(r))
		}
		return out
	}

	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	for i, p := range parts {
		if i < len(parts)-1 {
			p += sep
		}
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// mergeSplits packs pieces into chunks up to chunkSize, carrying the overlap
// window from the tail of each emitted chunk into the next one. Separators
// stay attached to the pieces, so joining is plain concatenation.
func (s *TextSplitter) mergeSplits(splits []string) []string {
	var (
		chunks  []string
		current []string
		total   int
	)

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunk := strings.TrimSpace(strings.Join(current, ""))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
	}

	for _, piece := range splits {
		if total+len(piece) > s.chunkSize && total > 0 {
			flush()
			// Drop pieces from the front until what remains fits the overlap
			for total > s.chunkOverlap || (total+len(piece) > s.chunkSize && total > 0) {
				total -= len(current[0])
				current = current[1:]
				if len(current) == 0 {
					break
				}
			}
		}
		current = append(current, piece)
		total += len(piece)
	}
	flush()
	return chunks
}
