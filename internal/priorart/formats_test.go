package priorart

import (
	"reflect"
	"testing"
)

func TestGenerateReferenceFormatsHyphenated(t *testing.T) {
	got := GenerateReferenceFormats("US-9876543-B2")
	want := []string{
		"US-9876543-B2",
		"US9876543B2",
		"US-9876543-B2",
		"9876543B2",
		"US9876543",
		"US 9,876,543",
	}
	// Dedupe collapses the derived hyphenated form back into the original.
	want = dedupe(want)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("formats = %v, want %v", got, want)
	}
}

func TestGenerateReferenceFormatsPlain(t *testing.T) {
	got := GenerateReferenceFormats("US 9,876,543 B2")
	if got[0] != "US 9,876,543 B2" {
		t.Fatalf("first candidate must be the original, got %q", got[0])
	}
	assertContains(t, got, "US9876543B2")
	assertContains(t, got, "US-9876543-B2")
	assertContains(t, got, "US9876543")
	assertContains(t, got, "US 9,876,543")
}

func TestGenerateReferenceFormatsHyphenStrippedComesEarly(t *testing.T) {
	got := GenerateReferenceFormats("EP-1234567-A1")
	if len(got) < 2 || got[1] != "EP1234567A1" {
		t.Fatalf("hyphen-stripped candidate should come second, got %v", got)
	}
}

func TestGenerateReferenceFormatsNonUSOmitsUSVariants(t *testing.T) {
	got := GenerateReferenceFormats("EP1234567A1")
	for _, c := range got {
		if c == "EP1234567" {
			t.Fatalf("non-US reference should not get base-number truncation: %v", got)
		}
	}
	assertContains(t, got, "EP-1234567-A1")
	assertContains(t, got, "1234567A1")
}

func TestGenerateReferenceFormatsNoDuplicates(t *testing.T) {
	got := GenerateReferenceFormats("US9876543")
	seen := map[string]bool{}
	for _, c := range got {
		if seen[c] {
			t.Fatalf("duplicate candidate %q in %v", c, got)
		}
		seen[c] = true
	}
}

func TestGenerateReferenceFormatsEmpty(t *testing.T) {
	if got := GenerateReferenceFormats("   "); got != nil {
		t.Fatalf("blank input should yield nil, got %v", got)
	}
}

func assertContains(t *testing.T, candidates []string, want string) {
	t.Helper()
	for _, c := range candidates {
		if c == want {
			return
		}
	}
	t.Fatalf("candidates %v missing %q", candidates, want)
}

func TestGroupDigits(t *testing.T) {
	cases := map[string]string{
		"9876543":  "9,876,543",
		"123":      "123",
		"1234":     "1,234",
		"12345678": "12,345,678",
	}
	for in, want := range cases {
		if got := groupDigits(in); got != want {
			t.Errorf("groupDigits(%q) = %q, want %q", in, got, want)
		}
	}
}
