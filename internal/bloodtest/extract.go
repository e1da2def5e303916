package bloodtest

import (
	"strconv"
	"strings"
)

// Extract pulls one measurement per spec out of raw OCR text.
//
// The whole document is split on whitespace. For each spec the first token
// containing one of its keywords (case-insensitive substring) anchors a
// forward scan; the first later token that is a plain number inside the
// spec's tolerance window becomes the value. Tokens containing '-' or '/'
// are reference ranges, units or dates and never qualify.
//
// Extract never fails: metrics that cannot be located are NotFound.
func Extract(text string, specs []FieldSpec) LabRecord {
	tokens := strings.Fields(text)
	lowered := make([]string, len(tokens))
	for i, tok := range tokens {
		lowered[i] = strings.ToLower(tok)
	}

	record := make(LabRecord, len(specs))
	for _, spec := range specs {
		record[spec.Metric] = findValue(tokens, lowered, spec)
	}
	return record
}

func findValue(tokens, lowered []string, spec FieldSpec) Value {
	anchor := findKeyword(lowered, spec.Keywords)
	if anchor < 0 {
		return NotFound
	}
	for _, tok := range tokens[anchor+1:] {
		v, ok := parseMeasurement(tok)
		if !ok || !spec.Accepts(v) {
			continue
		}
		return Found(v)
	}
	return NotFound
}

func findKeyword(lowered []string, keywords []string) int {
	needles := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			needles = append(needles, kw)
		}
	}
	for i, tok := range lowered {
		for _, kw := range needles {
			if strings.Contains(tok, kw) {
				return i
			}
		}
	}
	return -1
}

// parseMeasurement strips everything but digits and '.' and parses the rest.
func parseMeasurement(tok string) (float64, bool) {
	if strings.ContainsAny(tok, "-/") {
		return 0, false
	}
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, tok)
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
