package officeaction

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeExtractor struct {
	name string
	text string
	err  error
}

func (f *fakeExtractor) Name() string { return f.name }

func (f *fakeExtractor) Extract(context.Context, []byte, string) (string, error) {
	return f.text, f.err
}

type fakeBlobs struct {
	puts []string
	err  error
}

func (f *fakeBlobs) Put(_ context.Context, name string, _ []byte, _ string) error {
	f.puts = append(f.puts, name)
	return f.err
}

type fakeCreator struct {
	created []OfficeAction
	err     error
}

func (f *fakeCreator) CreateOfficeAction(_ context.Context, oa *OfficeAction) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, *oa)
	return nil
}

type fakeTrigger struct {
	calls int
	err   error
}

func (f *fakeTrigger) TriggerParse(context.Context, string, string) error {
	f.calls++
	return f.err
}

func pdfUpload(data string) Upload {
	return Upload{FileName: "oa.pdf", MimeType: MimePDF, Data: []byte(data), ProjectID: "proj-1"}
}

func TestIngestRejectsUnsupportedMime(t *testing.T) {
	creator := &fakeCreator{}
	in := NewIngestor(nil, &fakeBlobs{}, creator, nil)
	up := pdfUpload("content")
	up.MimeType = "text/plain"
	_, err := in.Ingest(context.Background(), "tenant-a", up)
	if err == nil || !strings.Contains(err.Error(), "validation") {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(creator.created) != 0 {
		t.Fatal("no record should be created for rejected upload")
	}
}

func TestIngestRejectsMissingFile(t *testing.T) {
	in := NewIngestor(nil, &fakeBlobs{}, &fakeCreator{}, nil)
	_, err := in.Ingest(context.Background(), "tenant-a", Upload{FileName: "oa.pdf", MimeType: MimePDF})
	if err == nil {
		t.Fatal("expected validation error for empty file")
	}
}

func TestIngestFallsThroughFailingExtractors(t *testing.T) {
	extractors := []Extractor{
		&fakeExtractor{name: "docai", err: errors.New("processor unavailable")},
		&fakeExtractor{name: "basic", text: strings.Repeat("examiner text ", 20)},
	}
	creator := &fakeCreator{}
	res, err := NewIngestor(extractors, &fakeBlobs{}, creator, nil).Ingest(context.Background(), "tenant-a", pdfUpload("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.OfficeAction.ExtractionMethod != "basic" {
		t.Fatalf("method = %q, want basic", res.OfficeAction.ExtractionMethod)
	}
	if res.Warning != "" {
		t.Fatalf("unexpected warning %q", res.Warning)
	}
}

func TestIngestAllExtractorsFailUsesPlaceholder(t *testing.T) {
	extractors := []Extractor{
		&fakeExtractor{name: "docai", err: errors.New("ocr down")},
		&fakeExtractor{name: "basic", err: errors.New("no text layer")},
	}
	trigger := &fakeTrigger{}
	res, err := NewIngestor(extractors, &fakeBlobs{}, &fakeCreator{}, trigger).Ingest(context.Background(), "tenant-a", pdfUpload("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.OfficeAction.ExtractedText != PlaceholderText {
		t.Fatalf("text = %q, want placeholder", res.OfficeAction.ExtractedText)
	}
	if res.Warning != WarningLikelyScanned {
		t.Fatalf("warning = %q, want likely-scanned", res.Warning)
	}
	if trigger.calls != 0 {
		t.Fatal("parse should not be triggered for placeholder text")
	}
}

func TestIngestParseTriggerFailureDoesNotFailUpload(t *testing.T) {
	extractors := []Extractor{&fakeExtractor{name: "basic", text: strings.Repeat("x", 300)}}
	trigger := &fakeTrigger{err: errors.New("llm unavailable")}
	creator := &fakeCreator{}
	res, err := NewIngestor(extractors, &fakeBlobs{}, creator, trigger).Ingest(context.Background(), "tenant-a", pdfUpload("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if trigger.calls != 1 {
		t.Fatalf("trigger calls = %d, want 1", trigger.calls)
	}
	if len(creator.created) != 1 {
		t.Fatal("office action should be persisted despite parse-trigger failure")
	}
	if res.OfficeAction.BlobName == "" || !strings.HasPrefix(res.OfficeAction.BlobName, "office-actions/tenant-a/") {
		t.Fatalf("unexpected blob name %q", res.OfficeAction.BlobName)
	}
}

func TestQualityWarningBands(t *testing.T) {
	cases := []struct {
		length int
		want   string
	}{
		{0, WarningLikelyScanned},
		{49, WarningLikelyScanned},
		{50, WarningLimitedText},
		{199, WarningLimitedText},
		{200, ""},
		{5000, ""},
	}
	for _, c := range cases {
		if got := QualityWarning(strings.Repeat("a", c.length)); got != c.want {
			t.Errorf("QualityWarning(len=%d) = %q, want %q", c.length, got, c.want)
		}
	}
}
