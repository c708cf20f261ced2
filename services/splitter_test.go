package services

import (
	"strings"
	"testing"
)

func TestSplitEmptyInput(t *testing.T) {
	s := NewTextSplitter(100, 20)

	if got := s.Split(""); got != nil {
		t.Fatalf("expected no chunks for empty input, got %v", got)
	}
	if got := s.Split("   \n\t  "); got != nil {
		t.Fatalf("expected no chunks for whitespace input, got %v", got)
	}
}

func TestSplitShortTextSingleChunk(t *testing.T) {
	s := NewTextSplitter(100, 20)

	chunks := s.Split("  a short paragraph  ")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "a short paragraph" {
		t.Fatalf("expected trimmed text, got %q", chunks[0])
	}
}

func TestSplitPrefersParagraphBoundaries(t *testing.T) {
	s := NewTextSplitter(40, 0)

	text := "First paragraph is right here.\n\nSecond paragraph follows after it."
	chunks := s.Split(text)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %v", len(chunks), chunks)
	}
	if !strings.HasPrefix(chunks[0], "First paragraph") {
		t.Errorf("chunk 0 should start with the first paragraph, got %q", chunks[0])
	}
	if !strings.HasPrefix(chunks[1], "Second paragraph") {
		t.Errorf("chunk 1 should start with the second paragraph, got %q", chunks[1])
	}
}

func TestSplitRespectsChunkSize(t *testing.T) {
	s := NewTextSplitter(50, 10)

	var sb strings.Builder
	for i := 0; i < 40; i++ {
		sb.WriteString("some words that repeat over and over. ")
	}
	chunks := s.Split(sb.String())

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if len(ch) > 50 {
			t.Errorf("chunk %d exceeds size limit: %d chars", i, len(ch))
		}
		if strings.TrimSpace(ch) == "" {
			t.Errorf("chunk %d is blank", i)
		}
	}
}

func TestSplitCarriesOverlap(t *testing.T) {
	s := NewTextSplitter(30, 15)

	text := "one two three four five six seven eight nine ten eleven twelve"
	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %v", chunks)
	}

	// Consecutive chunks should share at least one word from the overlap window
	for i := 1; i < len(chunks); i++ {
		prevWords := strings.Fields(chunks[i-1])
		lastWord := prevWords[len(prevWords)-1]
		if !strings.Contains(chunks[i], lastWord) {
			t.Errorf("chunk %d does not carry overlap from chunk %d: %q then %q",
				i, i-1, chunks[i-1], chunks[i])
		}
	}
}

func TestSplitUnbrokenTextCutsHard(t *testing.T) {
	s := NewTextSplitter(20, 0)

	chunks := s.Split(strings.Repeat("x", 95))
	if len(chunks) < 5 {
		t.Fatalf("expected at least 5 chunks, got %d", len(chunks))
	}
	var total int
	for i, ch := range chunks {
		if len(ch) > 20 {
			t.Errorf("chunk %d exceeds size limit: %d chars", i, len(ch))
		}
		total += len(ch)
	}
	if total != 95 {
		t.Errorf("expected all 95 chars preserved with no overlap, got %d", total)
	}
}

func TestNewTextSplitterClampsConfig(t *testing.T) {
	s := NewTextSplitter(0, -5)
	if s.chunkSize != 1200 || s.chunkOverlap != 0 {
		t.Errorf("expected defaults 1200/0, got %d/%d", s.chunkSize, s.chunkOverlap)
	}

	s = NewTextSplitter(100, 100)
	if s.chunkOverlap != 50 {
		t.Errorf("expected overlap clamped to 50, got %d", s.chunkOverlap)
	}
}
