package status

import (
	"errors"
	"testing"

	"saraban/internal/apperr"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		raw  string
		want Bucket
	}{
		{"active", Active},
		{"ACTIVE", Active},
		{"  Active ", Active},
		{"ดำเนินการ", Active},
		{"รอดำเนินการ", Pending},
		{"on hold", Pending},
		{"Done", Completed},
		{"เสร็จสิ้น", Completed},
		{"canceled", Cancelled},
		{"ยกเลิก", Cancelled},
		{"draft", Draft},
		{"ร่าง", Draft},
		{"", Unclassified},
		{"archived", Unclassified},
	}

	for _, tt := range tests {
		if got := Classify(tt.raw); got != tt.want {
			t.Errorf("Classify(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestBucketsAreDisjoint(t *testing.T) {
	seen := map[string]Bucket{}
	for _, b := range Buckets {
		for _, name := range Synonyms(b) {
			if prev, ok := seen[name]; ok {
				t.Fatalf("%q appears in %v and %v", name, prev, b)
			}
			seen[name] = b
			if Classify(name) != b {
				t.Fatalf("%q should classify as %v", name, b)
			}
		}
	}
}

func TestBucketOrder(t *testing.T) {
	want := []string{"Active", "Pending", "Completed", "Cancelled", "Draft"}
	if len(Buckets) != len(want) {
		t.Fatalf("got %d buckets", len(Buckets))
	}
	for i, b := range Buckets {
		if b.String() != want[i] {
			t.Errorf("bucket %d = %s, want %s", i, b, want[i])
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{"", "DRAFT", false},
		{"ongoing", "ACTIVE", false},
		{"ระงับชั่วคราว", "PENDING", false},
		{"closed", "COMPLETED", false},
		{"Canceled", "CANCELLED", false},
		{"bogus", "", true},
	}

	for _, tt := range tests {
		got, err := Normalize(tt.raw)
		if tt.wantErr {
			if !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("Normalize(%q) error = %v, want validation error", tt.raw, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("Normalize(%q) = %q, %v; want %q", tt.raw, got, err, tt.want)
		}
	}
}
