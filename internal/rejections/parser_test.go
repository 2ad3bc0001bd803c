package rejections

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/joelkehle/oa-response/internal/apperr"
	"github.com/joelkehle/oa-response/internal/officeaction"
)

func TestNormalizeStatutoryType(t *testing.T) {
	cases := []struct {
		raw  string
		want officeaction.StatutoryType
	}{
		{"§101", officeaction.Statutory101},
		{"35 U.S.C. 102(a)(1)", officeaction.Statutory102},
		{"section 103", officeaction.Statutory103},
		{"112(b)", officeaction.Statutory112},
		{"double patenting", officeaction.StatutoryOther},
		{"", officeaction.StatutoryOther},
		{"§ 102", officeaction.Statutory102},
	}
	for _, c := range cases {
		if got := NormalizeStatutoryType(c.raw); got != c.want {
			t.Errorf("NormalizeStatutoryType(%q) = %q, want %q", c.raw, got, c.want)
		}
	}
}

const sampleOAText = `OFFICE ACTION SUMMARY
Claims 1-3 are rejected under 35 U.S.C. 103 as being unpatentable over Smith (US 9,876,543) in view of Jones.
The combination teaches every element of claim 1.`

func sampleOA() officeaction.OfficeAction {
	return officeaction.OfficeAction{ID: "oa-1", TenantID: "tenant-a", ExtractedText: sampleOAText}
}

func parsePayloadJSON(typeLabel string, confidence float64) string {
	return `{
	  "document_type": "NON_FINAL_REJECTION",
	  "examiner_name": "Lee",
	  "application_number": "16/123,456",
	  "rejections": [{
	    "type": "` + typeLabel + `",
	    "category": "obviousness",
	    "claims": [1, 2, 3],
	    "references": ["US 9,876,543", "Jones"],
	    "examiner_reasoning": "The combination teaches every element.",
	    "reasoning_insights": ["combination rationale is conclusory"],
	    "span_start": 22,
	    "span_end": 140,
	    "confidence": ` + strconv.FormatFloat(confidence, 'g', -1, 64) + `
	  }]
	}`
}

func TestParseMapsUnknownTypeToOtherKeepingRawLabel(t *testing.T) {
	caller := &fakeCaller{responses: []string{parsePayloadJSON("obviousness-type double patenting", 0.9)}}
	p := NewParser(NewJSONExecutor(caller))
	res, err := p.Parse(context.Background(), sampleOA())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	rej := res.Rejections[0]
	if rej.Type != officeaction.StatutoryOther {
		t.Fatalf("type = %q, want OTHER", rej.Type)
	}
	if rej.RawType != "obviousness-type double patenting" {
		t.Fatalf("raw label not preserved: %q", rej.RawType)
	}
}

func TestParseFlagsLowConfidenceForReview(t *testing.T) {
	caller := &fakeCaller{responses: []string{parsePayloadJSON("103", 0.4)}}
	res, err := NewParser(NewJSONExecutor(caller)).Parse(context.Background(), sampleOA())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !res.Rejections[0].RequiresHumanReview {
		t.Fatal("confidence 0.4 should require human review")
	}
	if res.Rejections[0].Type != officeaction.Statutory103 {
		t.Fatalf("type = %q", res.Rejections[0].Type)
	}
}

func TestParseClampsConfidenceAndSpans(t *testing.T) {
	caller := &fakeCaller{responses: []string{parsePayloadJSON("102", 1.7)}}
	res, err := NewParser(NewJSONExecutor(caller)).Parse(context.Background(), sampleOA())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	rej := res.Rejections[0]
	if rej.Confidence != 1 {
		t.Fatalf("confidence = %v, want clamped to 1", rej.Confidence)
	}
	if rej.SpanEnd > len(sampleOAText) {
		t.Fatalf("span end %d beyond text length %d", rej.SpanEnd, len(sampleOAText))
	}
}

func TestParseRefusesPlaceholderText(t *testing.T) {
	oa := sampleOA()
	oa.ExtractedText = officeaction.PlaceholderText
	_, err := NewParser(NewJSONExecutor(&fakeCaller{})).Parse(context.Background(), oa)
	if apperr.CodeOf(err) != apperr.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseUnusableOutputIsSchemaError(t *testing.T) {
	caller := &fakeCaller{responses: []string{"garbage", "garbage", "garbage"}}
	_, err := NewParser(NewJSONExecutor(caller)).Parse(context.Background(), sampleOA())
	if apperr.CodeOf(err) != apperr.CodeSchema {
		t.Fatalf("expected schema error, got %v", err)
	}
}

func TestParseTransportFailureIsDependencyError(t *testing.T) {
	boom := errors.New("status code: 400 bad request")
	caller := &fakeCaller{errs: []error{boom}}
	_, err := NewParser(NewJSONExecutor(caller)).Parse(context.Background(), sampleOA())
	if apperr.CodeOf(err) != apperr.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestParsePromptCarriesDocumentText(t *testing.T) {
	caller := &fakeCaller{responses: []string{parsePayloadJSON("103", 0.9)}}
	if _, err := NewParser(NewJSONExecutor(caller)).Parse(context.Background(), sampleOA()); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !strings.Contains(caller.prompts[0], "OFFICE ACTION SUMMARY") {
		t.Fatal("prompt missing document text")
	}
}
