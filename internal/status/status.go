// Package status maps free-form project status strings onto the five
// dashboard buckets.
package status

import (
	"strings"

	"saraban/internal/apperr"
)

type Bucket int

const (
	Unclassified Bucket = iota
	Active
	Pending
	Completed
	Cancelled
	Draft
)

// Buckets is the fixed chart order.
var Buckets = []Bucket{Active, Pending, Completed, Cancelled, Draft}

func (b Bucket) String() string {
	switch b {
	case Active:
		return "Active"
	case Pending:
		return "Pending"
	case Completed:
		return "Completed"
	case Cancelled:
		return "Cancelled"
	case Draft:
		return "Draft"
	}
	return "Unclassified"
}

// Canonical returns the stored status value written for the bucket.
func (b Bucket) Canonical() string {
	if b == Unclassified {
		return ""
	}
	return strings.ToUpper(b.String())
}

// table is the only place status strings are interpreted. Spellings are
// in normalized form (trimmed, upper-cased).
var table = []struct {
	bucket Bucket
	names  []string
}{
	{Active, []string{"ACTIVE", "IN PROGRESS", "IN_PROGRESS", "ONGOING", "OPEN",
		"ดำเนินการ", "กำลังดำเนินการ", "อยู่ระหว่างดำเนินการ"}},
	{Pending, []string{"PENDING", "HOLD", "ON HOLD", "ON_HOLD", "WAITING",
		"รอดำเนินการ", "รออนุมัติ", "ระงับชั่วคราว", "พักไว้"}},
	{Completed, []string{"COMPLETED", "COMPLETE", "DONE", "CLOSED", "FINISHED",
		"เสร็จสิ้น", "เสร็จแล้ว", "ปิดโครงการ"}},
	{Cancelled, []string{"CANCELLED", "CANCELED", "CANCEL",
		"ยกเลิก", "ยกเลิกแล้ว"}},
	{Draft, []string{"DRAFT", "NEW",
		"ร่าง", "แบบร่าง", "ฉบับร่าง"}},
}

// synonyms maps each spelling to exactly one bucket.
var synonyms = buildSynonyms()

func buildSynonyms() map[string]Bucket {
	m := make(map[string]Bucket)
	for _, row := range table {
		for _, name := range row.names {
			if prev, dup := m[name]; dup {
				panic("status: " + name + " listed under both " + prev.String() + " and " + row.bucket.String())
			}
			m[name] = row.bucket
		}
	}
	return m
}

func normalize(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// Classify returns the bucket for a stored status string. Unknown values
// are Unclassified.
func Classify(raw string) Bucket {
	return synonyms[normalize(raw)]
}

// Normalize converts user input to the canonical stored value. Empty input
// means Draft; an unknown status is a validation error.
func Normalize(raw string) (string, error) {
	n := normalize(raw)
	if n == "" {
		return Draft.Canonical(), nil
	}
	b, ok := synonyms[n]
	if !ok {
		return "", apperr.Validation("unknown status %q", raw)
	}
	return b.Canonical(), nil
}

// Synonyms returns the accepted spellings for b in table order.
func Synonyms(b Bucket) []string {
	for _, row := range table {
		if row.bucket == b {
			return append([]string(nil), row.names...)
		}
	}
	return nil
}
