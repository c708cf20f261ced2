package services

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// PPTXExtractor extracts slide text and speaker notes from PPTX files.
// PPTX is a zip of DrawingML XML parts, so archive/zip plus a token walk is
// enough; no external office library is needed.
type PPTXExtractor struct{}

// NewPPTXExtractor creates a new PPTX extractor
func NewPPTXExtractor() *PPTXExtractor {
	return &PPTXExtractor{}
}

var slidePartPattern = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

type slidePart struct {
	no   int
	file *zip.File
}

// ExtractPages returns one entry per slide, numbered from 1 in deck order.
// Each entry combines a "Slide N" header, the slide title, body text, flattened
// tables and speaker notes.
func (p *PPTXExtractor) ExtractPages(content []byte) ([]ExtractedPage, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("empty PPTX content")
	}

	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PPTX archive: %w", err)
	}

	var parts []slidePart
	notesFiles := map[int]*zip.File{}
	for _, f := range zr.File {
		name := strings.TrimSpace(f.Name)
		if m := slidePartPattern.FindStringSubmatch(name); m != nil {
			no, convErr := strconv.Atoi(m[1])
			if convErr != nil {
				continue
			}
			parts = append(parts, slidePart{no: no, file: f})
			continue
		}
		if strings.HasPrefix(name, "ppt/notesSlides/notesSlide") && strings.HasSuffix(name, ".xml") {
			numPart := strings.TrimSuffix(strings.TrimPrefix(name, "ppt/notesSlides/notesSlide"), ".xml")
			if no, convErr := strconv.Atoi(numPart); convErr == nil {
				notesFiles[no] = f
			}
		}
	}
	if len(parts) == 0 {
		return []ExtractedPage{}, nil
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].no < parts[j].no })

	pages := make([]ExtractedPage, 0, len(parts))
	for idx, part := range parts {
		slideNo := idx + 1

		raw, readErr := readZipPart(part.file)
		if readErr != nil {
			pages = append(pages, ExtractedPage{PageNo: slideNo, Text: ""})
			continue
		}
		title, body := parseSlideXML(raw)

		notes := ""
		if nf, ok := notesFiles[part.no]; ok {
			if nraw, nerr := readZipPart(nf); nerr == nil {
				notes = collectSlideText(nraw)
			}
		}

		header := fmt.Sprintf("Slide %d", slideNo)
		if title != "" {
			header = fmt.Sprintf("%s — %s", header, title)
		}

		segments := []string{header}
		if body != "" {
			segments = append(segments, body)
		}
		if notes != "" {
			segments = append(segments, "Notes:\n"+notes)
		}

		pages = append(pages, ExtractedPage{
			PageNo: slideNo,
			Text:   strings.TrimSpace(strings.Join(segments, "\n")),
			Title:  title,
		})
	}

	return pages, nil
}

func readZipPart(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// parseSlideXML walks a slide part and returns the title placeholder's text
// and the combined body text. Shape text frames keep paragraph breaks; tables
// are flattened into pipe-separated rows.
func parseSlideXML(body []byte) (string, string) {
	dec := xml.NewDecoder(bytes.NewReader(body))

	var (
		title     string
		bodyParts []string

		inShape   bool
		isTitle   bool
		shapeText strings.Builder
		inText    bool

		inTable  bool
		rowCells []string
		rowLines []string
		cellText strings.Builder
	)

	flushShape := func() {
		txt := strings.TrimSpace(shapeText.String())
		if txt != "" {
			bodyParts = append(bodyParts, txt)
			if isTitle && title == "" {
				title = txt
			}
		}
		inShape = false
		isTitle = false
		shapeText.Reset()
	}

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "sp":
				if inShape {
					flushShape()
				}
				inShape = true
			case "ph":
				if !inShape {
					continue
				}
				for _, a := range t.Attr {
					if strings.EqualFold(a.Name.Local, "type") {
						v := strings.TrimSpace(a.Value)
						if v == "title" || v == "ctrTitle" {
							isTitle = true
						}
					}
				}
			case "tbl":
				inTable = true
				rowLines = nil
			case "tr":
				if inTable {
					rowCells = nil
				}
			case "tc":
				if inTable {
					cellText.Reset()
				}
			case "t":
				inText = true
			case "br":
				if inShape && !inTable {
					shapeText.WriteString("\n")
				}
			}
		case xml.CharData:
			if !inText {
				continue
			}
			if inTable {
				cellText.WriteString(string(t))
			} else if inShape {
				shapeText.WriteString(string(t))
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if inShape && !inTable {
					shapeText.WriteString("\n")
				}
			case "tc":
				if inTable {
					if cell := strings.TrimSpace(cellText.String()); cell != "" {
						rowCells = append(rowCells, cell)
					}
				}
			case "tr":
				if inTable && len(rowCells) > 0 {
					rowLines = append(rowLines, strings.Join(rowCells, " | "))
				}
			case "tbl":
				inTable = false
				if tbl := strings.TrimSpace(strings.Join(rowLines, "\n")); tbl != "" {
					bodyParts = append(bodyParts, tbl)
				}
			case "sp":
				if inShape {
					flushShape()
				}
			}
		}
	}

	return title, strings.TrimSpace(strings.Join(bodyParts, "\n"))
}

// collectSlideText gathers every text run in a slide part, keeping paragraph
// breaks. Used for speaker notes where placeholder roles don't matter.
func collectSlideText(body []byte) string {
	dec := xml.NewDecoder(bytes.NewReader(body))
	var (
		b      strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.CharData:
			if inText {
				b.WriteString(string(t))
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteString("\n")
			}
		}
	}

	lines := strings.Split(b.String(), "\n")
	kept := lines[:0]
	for _, l := range lines {
		if trimmed := strings.TrimSpace(l); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, "\n")
}
