package services

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestParseWebVTTBasic(t *testing.T) {
	vtt := "WEBVTT\n" +
		"\n" +
		"00:00:01.000 --> 00:00:03.500\n" +
		"Hello there\n" +
		"General Kenobi\n" +
		"\n" +
		"00:00:04.000 --> 00:00:06.000\n" +
		"Second cue\n"

	cues := ParseWebVTT(vtt)
	if len(cues) != 2 {
		t.Fatalf("expected 2 cues, got %d", len(cues))
	}
	if !almostEqual(cues[0].StartSec, 1.0) || !almostEqual(cues[0].EndSec, 3.5) {
		t.Errorf("cue 0 timing wrong: %+v", cues[0])
	}
	if cues[0].Text != "Hello there General Kenobi" {
		t.Errorf("multi-line cue text should join with spaces, got %q", cues[0].Text)
	}
	if cues[1].Text != "Second cue" {
		t.Errorf("cue 1 text wrong: %q", cues[1].Text)
	}
}

func TestParseWebVTTShortTimestamps(t *testing.T) {
	vtt := "WEBVTT\n" +
		"\n" +
		"00:05.000 --> 01:07.250\n" +
		"Short form timing\n"

	cues := ParseWebVTT(vtt)
	if len(cues) != 1 {
		t.Fatalf("expected 1 cue, got %d", len(cues))
	}
	if !almostEqual(cues[0].StartSec, 5.0) {
		t.Errorf("expected start 5.0, got %f", cues[0].StartSec)
	}
	if !almostEqual(cues[0].EndSec, 67.25) {
		t.Errorf("expected end 67.25, got %f", cues[0].EndSec)
	}
}

func TestParseWebVTTSkipsMetadataBlocks(t *testing.T) {
	vtt := "WEBVTT\n" +
		"\n" +
		"NOTE This is a comment\n" +
		"that spans two lines\n" +
		"\n" +
		"STYLE\n" +
		"::cue { color: red }\n" +
		"\n" +
		"cue-1\n" +
		"00:00:01.000 --> 00:00:02.000\n" +
		"Real caption\n"

	cues := ParseWebVTT(vtt)
	if len(cues) != 1 {
		t.Fatalf("expected 1 cue, got %d: %+v", len(cues), cues)
	}
	if cues[0].Text != "Real caption" {
		t.Errorf("cue identifier should be skipped, got text %q", cues[0].Text)
	}
}

func TestParseWebVTTDropsEmptyAndSorts(t *testing.T) {
	vtt := "WEBVTT\n" +
		"\n" +
		"00:00:10.000 --> 00:00:12.000\n" +
		"Later cue\n" +
		"\n" +
		"00:00:05.000 --> 00:00:06.000\n" +
		"\n" +
		"00:00:01.000 --> 00:00:02.000\n" +
		"Earlier cue\n"

	cues := ParseWebVTT(vtt)
	if len(cues) != 2 {
		t.Fatalf("expected empty cue dropped, got %d cues", len(cues))
	}
	if cues[0].Text != "Earlier cue" || cues[1].Text != "Later cue" {
		t.Errorf("cues should be sorted by start time: %+v", cues)
	}
}

func TestParseWebVTTGarbageInput(t *testing.T) {
	if cues := ParseWebVTT(""); len(cues) != 0 {
		t.Errorf("empty input should yield no cues, got %d", len(cues))
	}
	if cues := ParseWebVTT("not a vtt file\nat all\n"); len(cues) != 0 {
		t.Errorf("non-VTT input should yield no cues, got %d", len(cues))
	}
}

func TestMergeCuesCharLimit(t *testing.T) {
	cues := []VTTCue{
		{StartSec: 0, EndSec: 2, Text: "aaaa"},
		{StartSec: 2, EndSec: 4, Text: "bbbb"},
		{StartSec: 4, EndSec: 6, Text: "cccc"},
	}

	merged := MergeCues(cues, 9, 100)
	if len(merged) != 2 {
		t.Fatalf("expected 2 merged cues, got %d: %+v", len(merged), merged)
	}
	if merged[0].Text != "aaaa bbbb" {
		t.Errorf("expected first two cues merged, got %q", merged[0].Text)
	}
	if !almostEqual(merged[0].StartSec, 0) || !almostEqual(merged[0].EndSec, 4) {
		t.Errorf("merged cue should span first start to last end: %+v", merged[0])
	}
	if merged[1].Text != "cccc" {
		t.Errorf("expected third cue on its own, got %q", merged[1].Text)
	}
}

func TestMergeCuesWindowLimit(t *testing.T) {
	cues := []VTTCue{
		{StartSec: 0, EndSec: 2, Text: "first"},
		{StartSec: 40, EndSec: 42, Text: "second"},
	}

	merged := MergeCues(cues, 1000, 30)
	if len(merged) != 2 {
		t.Fatalf("cues beyond the time window must not merge, got %d: %+v", len(merged), merged)
	}
}

func TestMergeCuesEmptyInput(t *testing.T) {
	if merged := MergeCues(nil, 700, 30); len(merged) != 0 {
		t.Errorf("expected no output for no cues, got %+v", merged)
	}
}
