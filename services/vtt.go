package services

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// VTTCue is a single timed caption from a WebVTT file
type VTTCue struct {
	StartSec float64
	EndSec   float64
	Text     string
}

// WebVTT supports either HH:MM:SS.mmm or MM:SS.mmm timestamps
var vttTimingPattern = regexp.MustCompile(
	`^\s*(\d{2}:\d{2}:\d{2}\.\d{3}|\d{1,2}:\d{2}\.\d{3})\s*-->\s*(\d{2}:\d{2}:\d{2}\.\d{3}|\d{1,2}:\d{2}\.\d{3})`)

func parseVTTTimestamp(ts string) (float64, error) {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return 0, fmt.Errorf("empty timestamp")
	}

	parts := strings.Split(ts, ":")
	var hh, mm int
	var rest string
	switch len(parts) {
	case 3:
		h, err := strconv.Atoi(parts[0])
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp %q", ts)
		}
		hh = h
		m, err := strconv.Atoi(parts[1])
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp %q", ts)
		}
		mm = m
		rest = parts[2]
	case 2:
		m, err := strconv.Atoi(parts[0])
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp %q", ts)
		}
		mm = m
		rest = parts[1]
	default:
		return 0, fmt.Errorf("invalid timestamp %q", ts)
	}

	secParts := strings.SplitN(rest, ".", 2)
	if len(secParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", ts)
	}
	ss, err := strconv.Atoi(secParts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q", ts)
	}
	ms, err := strconv.Atoi(secParts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q", ts)
	}

	return float64(hh)*3600 + float64(mm)*60 + float64(ss) + float64(ms)/1000.0, nil
}

// ParseWebVTT parses a WebVTT captions file into cues sorted by time.
// NOTE/STYLE/REGION blocks and cue identifiers are ignored; cue text lines
// are joined with single spaces. Cues with empty text are dropped.
func ParseWebVTT(text string) []VTTCue {
	raw := strings.ReplaceAll(text, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")
	lines := strings.Split(raw, "\n")

	var cues []VTTCue
	i := 0

	// Skip leading blanks and the WEBVTT header line
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	if i < len(lines) && strings.HasPrefix(strings.ToUpper(strings.TrimSpace(lines[i])), "WEBVTT") {
		i++
	}

	skipBlock := func() {
		for i < len(lines) && strings.TrimSpace(lines[i]) != "" {
			i++
		}
		for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
			i++
		}
	}

	for i < len(lines) {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			i++
			continue
		}

		upper := strings.ToUpper(line)
		if strings.HasPrefix(upper, "NOTE") || strings.HasPrefix(upper, "STYLE") || strings.HasPrefix(upper, "REGION") {
			i++
			skipBlock()
			continue
		}

		// A cue identifier line can appear before the timing line
		if i+1 < len(lines) && vttTimingPattern.MatchString(strings.TrimSpace(lines[i+1])) {
			i++
			line = strings.TrimSpace(lines[i])
		}

		m := vttTimingPattern.FindStringSubmatch(line)
		if m == nil {
			i++
			continue
		}

		start, startErr := parseVTTTimestamp(m[1])
		end, endErr := parseVTTTimestamp(m[2])
		i++
		if startErr != nil || endErr != nil {
			continue
		}

		var textLines []string
		for i < len(lines) && strings.TrimSpace(lines[i]) != "" {
			textLines = append(textLines, strings.TrimSpace(lines[i]))
			i++
		}
		for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
			i++
		}

		cueText := strings.TrimSpace(strings.Join(textLines, " "))
		if cueText != "" {
			cues = append(cues, VTTCue{StartSec: start, EndSec: end, Text: cueText})
		}
	}

	sort.SliceStable(cues, func(a, b int) bool {
		if cues[a].StartSec != cues[b].StartSec {
			return cues[a].StartSec < cues[b].StartSec
		}
		return cues[a].EndSec < cues[b].EndSec
	})
	return cues
}

// MergeCues greedily merges consecutive cues until adding the next one would
// push the combined text over maxChars or the covered window over
// maxWindowSec. Merged cues keep the first start and last end time.
func MergeCues(cues []VTTCue, maxChars int, maxWindowSec float64) []VTTCue {
	var out []VTTCue
	var buf []VTTCue

	flush := func() {
		if len(buf) == 0 {
			return
		}
		texts := make([]string, 0, len(buf))
		for _, c := range buf {
			texts = append(texts, c.Text)
		}
		text := strings.TrimSpace(strings.Join(texts, " "))
		if text != "" {
			out = append(out, VTTCue{
				StartSec: buf[0].StartSec,
				EndSec:   buf[len(buf)-1].EndSec,
				Text:     text,
			})
		}
		buf = nil
	}

	for _, cue := range cues {
		if len(buf) == 0 {
			buf = append(buf, cue)
			continue
		}

		candidateLen := len(cue.Text)
		for _, c := range buf {
			candidateLen += len(c.Text) + 1 // joining space
		}
		candidateWindow := cue.EndSec - buf[0].StartSec

		if candidateLen <= maxChars && candidateWindow <= maxWindowSec {
			buf = append(buf, cue)
		} else {
			flush()
			buf = append(buf, cue)
		}
	}

	flush()
	return out
}
