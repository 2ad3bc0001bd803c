package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/joelkehle/oa-response/internal/amendment"
	"github.com/joelkehle/oa-response/internal/apperr"
	"github.com/joelkehle/oa-response/internal/blob"
	"github.com/joelkehle/oa-response/internal/export"
	"github.com/joelkehle/oa-response/internal/officeaction"
	"github.com/joelkehle/oa-response/internal/priorart"
	"github.com/joelkehle/oa-response/internal/rejections"
	"github.com/joelkehle/oa-response/internal/store"
)

type fakeParser struct {
	result rejections.ParseResult
	err    error
}

func (f *fakeParser) Parse(_ context.Context, _ officeaction.OfficeAction) (rejections.ParseResult, error) {
	return f.result, f.err
}

type fakeAnalyzer struct {
	batch  rejections.BatchResult
	single rejections.RejectionAnalysis
	err    error
	calls  int
}

func (f *fakeAnalyzer) AnalyzeAll(_ context.Context, _ officeaction.OfficeAction, _ []officeaction.ParsedRejection, _ rejections.AnalyzeOptions) (rejections.BatchResult, error) {
	f.calls++
	return f.batch, f.err
}

func (f *fakeAnalyzer) AnalyzeOne(_ context.Context, _ officeaction.OfficeAction, _ officeaction.ParsedRejection, _ rejections.AnalyzeOptions) (rejections.RejectionAnalysis, error) {
	return f.single, f.err
}

type fakeComposer struct {
	resp *amendment.AmendmentResponse
	err  error
}

func (f *fakeComposer) Compose(_ context.Context, oa officeaction.OfficeAction, _ []officeaction.ParsedRejection, strategy rejections.Strategy, _ string) (*amendment.AmendmentResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	resp := *f.resp
	resp.OfficeActionID = oa.ID
	resp.TenantID = oa.TenantID
	resp.Strategy = strategy
	return &resp, nil
}

type fakeEnricher struct{}

func (fakeEnricher) EnrichAll(_ context.Context, refs []string) ([]priorart.Reference, error) {
	out := make([]priorart.Reference, 0, len(refs))
	for _, r := range refs {
		out = append(out, priorart.Reference{Identifier: r, Title: "Found"})
	}
	return out, nil
}

type fixture struct {
	store   *store.Store
	server  http.Handler
	parser  *fakeParser
	analyze *fakeAnalyzer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	blobs, err := blob.NewDirStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	parser := &fakeParser{}
	analyze := &fakeAnalyzer{}
	composer := &fakeComposer{resp: &amendment.AmendmentResponse{
		ID:     "amd-1",
		Status: amendment.StatusComplete,
		ClaimAmendments: []amendment.ClaimAmendment{{
			ClaimNumber: 1, OriginalText: "a", AmendedText: "b",
			Justification: "adds a limitation", Status: amendment.ClaimCurrentlyAmended,
		}},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}}
	ingestor := officeaction.NewIngestor(
		[]officeaction.Extractor{passthroughExtractor{}},
		blobs, st, nil,
	)
	srv := NewServer(Deps{
		Store:     st,
		Ingestor:  ingestor,
		Parser:    parser,
		Analyzer:  analyze,
		Composer:  composer,
		Assembler: export.NewAssembler(nil),
		Enricher:  fakeEnricher{},
		Blobs:     blobs,
		Tenants:   map[string]string{"key-a": "tenant-a", "key-b": "tenant-b"},
	})
	return &fixture{store: st, server: srv, parser: parser, analyze: analyze}
}

type passthroughExtractor struct{}

func (passthroughExtractor) Name() string { return "passthrough" }

func (passthroughExtractor) Extract(_ context.Context, data []byte, _ string) (string, error) {
	return strings.Repeat("Claims 1-3 are rejected under 35 U.S.C. 103. ", 10), nil
}

func (f *fixture) do(t *testing.T, method, path, apiKey string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body == nil {
		rd = bytes.NewReader(nil)
	} else {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) upload(t *testing.T, apiKey string) string {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "oa.pdf")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte("%PDF-1.4 test"))
	mw.WriteField("metadata", `{"applicationNumber":"16/123,456","mailingDate":"2024-01-05","examinerName":"Lee"}`)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/office-actions", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-API-Key", apiKey)
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d body=%s", rec.Code, rec.Body.String())
	}
	var resp struct {
		OfficeAction struct {
			ID string `json:"id"`
		} `json:"officeAction"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return resp.OfficeAction.ID
}

func TestUploadAndGet(t *testing.T) {
	f := newFixture(t)
	id := f.upload(t, "key-a")
	rec := f.do(t, http.MethodGet, "/v1/office-actions/"+id, "key-a", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "16/123,456") {
		t.Fatalf("metadata missing: %s", rec.Body.String())
	}
}

func TestMissingAPIKeyIsUnauthorized(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/v1/office-actions", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCrossTenantGetIs404(t *testing.T) {
	f := newFixture(t)
	id := f.upload(t, "key-a")
	rec := f.do(t, http.MethodGet, "/v1/office-actions/"+id, "key-b", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("cross-tenant status = %d, want 404", rec.Code)
	}
}

func TestParsePersistsRejections(t *testing.T) {
	f := newFixture(t)
	id := f.upload(t, "key-a")
	f.parser.result = rejections.ParseResult{
		DocumentType:      "NON_FINAL_REJECTION",
		ExaminerName:      "Lee",
		ApplicationNumber: "16/123,456",
		Rejections: []officeaction.ParsedRejection{{
			Type: officeaction.Statutory103, RawType: "103",
			Claims: []int{1}, Confidence: 0.9,
		}},
	}
	rec := f.do(t, http.MethodPost, "/v1/office-actions/"+id+"/parse", "key-a", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("parse status = %d body=%s", rec.Code, rec.Body.String())
	}
	rejs, err := f.store.ListRejections(context.Background(), "tenant-a", id)
	if err != nil || len(rejs) != 1 {
		t.Fatalf("stored rejections = %v err=%v", rejs, err)
	}
	oa, _ := f.store.GetOfficeAction(context.Background(), "tenant-a", id)
	if oa.Status != officeaction.StatusParsed {
		t.Fatalf("status = %q", oa.Status)
	}
}

func TestParseFailureLeavesStateUntouched(t *testing.T) {
	f := newFixture(t)
	id := f.upload(t, "key-a")
	f.parser.err = apperr.Schema("model output unusable")
	rec := f.do(t, http.MethodPost, "/v1/office-actions/"+id+"/parse", "key-a", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	oa, _ := f.store.GetOfficeAction(context.Background(), "tenant-a", id)
	if oa.Status != officeaction.StatusUploaded {
		t.Fatalf("failed parse must not advance status, got %q", oa.Status)
	}
}

func TestAnalyzeCachesUnlessForced(t *testing.T) {
	f := newFixture(t)
	id := f.upload(t, "key-a")
	f.parser.result = rejections.ParseResult{Rejections: []officeaction.ParsedRejection{{
		Type: officeaction.Statutory103, Confidence: 0.9,
	}}}
	f.do(t, http.MethodPost, "/v1/office-actions/"+id+"/parse", "key-a", nil)

	f.analyze.batch = rejections.BatchResult{
		Analyses: []rejections.RejectionAnalysis{{
			RejectionID: "r", Strength: rejections.StrengthModerate,
			Strategy: rejections.StrategyCombination, AnalyzedAt: time.Now().UTC(),
		}},
		Overall: rejections.StrategyRecommendation{
			Primary: rejections.StrategyCombination, Confidence: 0.7, RiskLevel: rejections.RiskMedium,
		},
	}
	rec := f.do(t, http.MethodPost, "/v1/office-actions/"+id+"/analyze", "key-a", map[string]any{})
	if rec.Code != http.StatusOK {
		t.Fatalf("analyze status = %d body=%s", rec.Code, rec.Body.String())
	}
	if f.analyze.calls != 1 {
		t.Fatalf("analyzer calls = %d", f.analyze.calls)
	}

	// Second call without forceRefresh serves the stored run.
	rec = f.do(t, http.MethodPost, "/v1/office-actions/"+id+"/analyze", "key-a", map[string]any{})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"cached":true`) {
		t.Fatalf("expected cached result: %d %s", rec.Code, rec.Body.String())
	}
	if f.analyze.calls != 1 {
		t.Fatalf("cached path re-ran the analyzer: %d calls", f.analyze.calls)
	}

	rec = f.do(t, http.MethodPost, "/v1/office-actions/"+id+"/analyze", "key-a", map[string]any{"forceRefresh": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("forced analyze status = %d", rec.Code)
	}
	if f.analyze.calls != 2 {
		t.Fatalf("force refresh did not re-run: %d calls", f.analyze.calls)
	}
}

func TestSingleReanalysisSupersedesStoredRow(t *testing.T) {
	f := newFixture(t)
	id := f.upload(t, "key-a")
	f.parser.result = rejections.ParseResult{Rejections: []officeaction.ParsedRejection{{
		Type: officeaction.Statutory103, Confidence: 0.9,
	}}}
	f.do(t, http.MethodPost, "/v1/office-actions/"+id+"/parse", "key-a", nil)
	rejs, err := f.store.ListRejections(context.Background(), "tenant-a", id)
	if err != nil || len(rejs) != 1 {
		t.Fatalf("stored rejections = %v err=%v", rejs, err)
	}
	rid := rejs[0].ID

	f.analyze.batch = rejections.BatchResult{
		Analyses: []rejections.RejectionAnalysis{{
			RejectionID: rid, Strength: rejections.StrengthStrong,
			Strategy: rejections.StrategyAmendClaims, AnalyzedAt: time.Now().UTC(),
		}},
		Overall: rejections.StrategyRecommendation{
			Primary: rejections.StrategyAmendClaims, Confidence: 0.7, RiskLevel: rejections.RiskMedium,
		},
	}
	f.do(t, http.MethodPost, "/v1/office-actions/"+id+"/analyze", "key-a", map[string]any{})

	f.analyze.single = rejections.RejectionAnalysis{
		RejectionID: rid, Strength: rejections.StrengthWeak,
		Strategy: rejections.StrategyArgueRejection, AnalyzedAt: time.Now().UTC(),
	}
	rec := f.do(t, http.MethodPost, "/v1/rejections/"+rid+"/analyze", "key-a", map[string]any{})
	if rec.Code != http.StatusOK {
		t.Fatalf("single analyze status = %d body=%s", rec.Code, rec.Body.String())
	}

	// Non-forced batch read must serve the refreshed analysis, not the
	// superseded one.
	rec = f.do(t, http.MethodPost, "/v1/office-actions/"+id+"/analyze", "key-a", map[string]any{})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"cached":true`) {
		t.Fatalf("expected cached result: %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"WEAK"`) {
		t.Fatalf("cached read serves the superseded analysis: %s", rec.Body.String())
	}
	stored, err := f.store.ListAnalyses(context.Background(), "tenant-a", id)
	if err != nil || len(stored) != 1 {
		t.Fatalf("stored analyses = %v err=%v", stored, err)
	}
	if stored[0].Strength != rejections.StrengthWeak {
		t.Fatalf("stored strength = %q, want WEAK", stored[0].Strength)
	}
}

func TestComposePersistsAmendment(t *testing.T) {
	f := newFixture(t)
	id := f.upload(t, "key-a")
	f.parser.result = rejections.ParseResult{Rejections: []officeaction.ParsedRejection{{
		Type: officeaction.Statutory103, Confidence: 0.9,
	}}}
	f.do(t, http.MethodPost, "/v1/office-actions/"+id+"/parse", "key-a", nil)

	rec := f.do(t, http.MethodPost, "/v1/office-actions/"+id+"/amendment", "key-a",
		map[string]any{"strategy": "COMBINATION"})
	if rec.Code != http.StatusOK {
		t.Fatalf("compose status = %d body=%s", rec.Code, rec.Body.String())
	}
	resp, err := f.store.LatestAmendmentForOfficeAction(context.Background(), "tenant-a", id)
	if err != nil {
		t.Fatalf("amendment not persisted: %v", err)
	}
	if resp.Strategy != rejections.StrategyCombination {
		t.Fatalf("strategy = %q", resp.Strategy)
	}
}

func TestComposeRejectsUnknownStrategy(t *testing.T) {
	f := newFixture(t)
	id := f.upload(t, "key-a")
	rec := f.do(t, http.MethodPost, "/v1/office-actions/"+id+"/amendment", "key-a",
		map[string]any{"strategy": "WING_IT"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestExportStreamsAttachment(t *testing.T) {
	f := newFixture(t)
	body := map[string]any{
		"content": export.Content{
			Title: "Amendment",
			ClaimAmendments: []amendment.ClaimAmendment{{
				ClaimNumber: 1, OriginalText: "a", AmendedText: "b",
				Justification: "adds a limitation", Status: amendment.ClaimCurrentlyAmended,
			}},
		},
		"options": export.Options{Format: export.FormatDOCX, DocumentType: export.DocFull},
	}
	rec := f.do(t, http.MethodPost, "/v1/amendment/export", "key-a", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d body=%s", rec.Code, rec.Body.String())
	}
	cd := rec.Header().Get("Content-Disposition")
	if !strings.HasPrefix(cd, "attachment;") || !strings.Contains(cd, "Amendment_Response") {
		t.Fatalf("content disposition = %q", cd)
	}
	if len(rec.Body.Bytes()) == 0 {
		t.Fatal("empty document stream")
	}
}

func TestExportRecordsBlobAgainstAmendment(t *testing.T) {
	f := newFixture(t)
	oaID := f.upload(t, "key-a")
	resp := &amendment.AmendmentResponse{
		ID:             "amd-blob",
		OfficeActionID: oaID,
		TenantID:       "tenant-a",
		Status:         amendment.StatusComplete,
		ClaimAmendments: []amendment.ClaimAmendment{{
			ClaimNumber: 1, OriginalText: "a", AmendedText: "b",
			Justification: "adds a limitation", Status: amendment.ClaimCurrentlyAmended,
		}},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := f.store.SaveAmendmentResponse(context.Background(), resp); err != nil {
		t.Fatalf("SaveAmendmentResponse: %v", err)
	}

	body := map[string]any{
		"content": export.Content{
			Title:           "Amendment",
			ClaimAmendments: resp.ClaimAmendments,
		},
		"options":             export.Options{Format: export.FormatDOCX, DocumentType: export.DocFull},
		"amendmentResponseId": "amd-blob",
	}
	rec := f.do(t, http.MethodPost, "/v1/amendment/export", "key-a", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d body=%s", rec.Code, rec.Body.String())
	}

	stored, err := f.store.GetAmendmentResponse(context.Background(), "tenant-a", "amd-blob")
	if err != nil {
		t.Fatalf("GetAmendmentResponse: %v", err)
	}
	if stored.DocumentBlobName == "" {
		t.Fatal("document blob name not recorded")
	}
	if !strings.HasPrefix(stored.DocumentBlobName, "exports/tenant-a/") {
		t.Fatalf("blob name = %q", stored.DocumentBlobName)
	}
}

func TestASMBDataEndpoint(t *testing.T) {
	f := newFixture(t)
	id := f.upload(t, "key-a")
	rec := f.do(t, http.MethodGet, "/v1/office-actions/"+id+"/asmb?submissionType=AMENDMENT", "key-a", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("asmb status = %d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "January 5, 2024") {
		t.Fatalf("submission statement missing mailing date: %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "2024-04-05") {
		t.Fatalf("response deadline missing: %s", rec.Body.String())
	}
}

func TestEnrichEndpoint(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/v1/references/enrich", "key-a",
		map[string]any{"references": []string{"US 9,876,543"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("enrich status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Found") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestHealthNeedsNoAuth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/v1/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
}
