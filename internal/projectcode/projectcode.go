// Package projectcode derives human-readable project codes of the form
// PREFIX-YY-TYPEnnn.
package projectcode

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

const DefaultAcronym = "XXX"

// Type tags.
const (
	TagProject    = "P"
	TagSubProject = "SP"
	TagInnovation = "I"
	TagConsulting = "C"
	TagBooth      = "B"
	TagFunding    = "FND"
)

var typeTags = map[string]string{
	TagProject:    "general project",
	TagSubProject: "sub-project",
	TagInnovation: "innovation",
	TagConsulting: "consulting",
	TagBooth:      "booth",
	TagFunding:    "funding",
}

// ValidTypeTag reports whether tag is one of the known type tags.
func ValidTypeTag(tag string) bool {
	_, ok := typeTags[tag]
	return ok
}

// TypeTags returns the known tags with their descriptions.
func TypeTags() map[string]string {
	out := make(map[string]string, len(typeTags))
	for k, v := range typeTags {
		out[k] = v
	}
	return out
}

// NormalizeAcronym upper-cases the acronym and drops hyphens and spaces so
// it stays a single code segment. Empty input falls back to XXX.
func NormalizeAcronym(acronym string) string {
	acronym = strings.Map(func(r rune) rune {
		if r == '-' || unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, acronym)
	if acronym == "" {
		return DefaultAcronym
	}
	return acronym
}

// NormalizeTypeTag upper-cases and trims tag. Empty means TagProject.
// The result is not checked against the known tags.
func NormalizeTypeTag(tag string) string {
	tag = strings.ToUpper(strings.TrimSpace(tag))
	if tag == "" {
		return TagProject
	}
	return tag
}

// YearYY reduces a calendar year to its last two digits.
func YearYY(year int) string {
	return fmt.Sprintf("%02d", ((year%100)+100)%100)
}

// ParseSequence extracts the sequence number from code when it belongs to
// the (yy, typeTag) space. Codes that do not have exactly three segments,
// belong to another year or tag, or carry a non-numeric suffix are
// reported as not matching.
func ParseSequence(code, typeTag, yy string) (int, bool) {
	parts := strings.Split(code, "-")
	if len(parts) != 3 {
		return 0, false
	}
	if parts[1] != yy || !strings.HasPrefix(parts[2], typeTag) {
		return 0, false
	}
	digits := strings.TrimPrefix(parts[2], typeTag)
	if !allDigits(digits) {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}

// MaxSequence returns the highest sequence in the (yy, typeTag) space, or 0.
func MaxSequence(existing []string, typeTag, yy string) int {
	maxSeq := 0
	for _, code := range existing {
		if n, ok := ParseSequence(code, typeTag, yy); ok && n > maxSeq {
			maxSeq = n
		}
	}
	return maxSeq
}

// Format composes a code from its parts. seq is zero padded to at least
// three digits.
func Format(acronym, yy, typeTag string, seq int) string {
	return fmt.Sprintf("%s-%s-%s%03d", NormalizeAcronym(acronym), yy, typeTag, seq)
}

// Generate returns the next code for (acronym, typeTag, year) given a
// snapshot of existing codes. The sequence space is shared by all
// acronyms with the same year and tag.
func Generate(existing []string, acronym, typeTag string, year int) string {
	yy := YearYY(year)
	typeTag = NormalizeTypeTag(typeTag)
	return Format(acronym, yy, typeTag, MaxSequence(existing, typeTag, yy)+1)
}

// Code is a well-formed PREFIX-YY-TYPEnnn code split into its parts.
type Code struct {
	Acronym string
	YY      string
	TypeTag string
	Seq     int
}

// Parse accepts a code only when it has three segments, a two digit year
// and a known type tag followed by digits.
func Parse(code string) (Code, bool) {
	parts := strings.Split(code, "-")
	if len(parts) != 3 || parts[0] == "" || len(parts[1]) != 2 || !allDigits(parts[1]) {
		return Code{}, false
	}
	tag := strings.TrimRightFunc(parts[2], func(r rune) bool { return r >= '0' && r <= '9' })
	if !ValidTypeTag(tag) {
		return Code{}, false
	}
	seq, ok := ParseSequence(code, tag, parts[1])
	if !ok {
		return Code{}, false
	}
	return Code{Acronym: parts[0], YY: parts[1], TypeTag: tag, Seq: seq}, true
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// Malformed lists the codes that would be skipped by the scan because they
// do not have the PREFIX-YY-TYPEnnn shape at all.
func Malformed(existing []string) []string {
	var out []string
	for _, code := range existing {
		parts := strings.Split(code, "-")
		if len(parts) != 3 || len(parts[1]) != 2 || parts[2] == "" {
			out = append(out, code)
		}
	}
	return out
}
