package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joelkehle/oa-response/internal/amendment"
	"github.com/joelkehle/oa-response/internal/apperr"
	"github.com/joelkehle/oa-response/internal/blob"
	"github.com/joelkehle/oa-response/internal/export"
	"github.com/joelkehle/oa-response/internal/officeaction"
	"github.com/joelkehle/oa-response/internal/priorart"
	"github.com/joelkehle/oa-response/internal/rejections"
	"github.com/joelkehle/oa-response/internal/store"
)

type Ingestor interface {
	Ingest(ctx context.Context, tenantID string, up officeaction.Upload) (officeaction.IngestResult, error)
}

type Parser interface {
	Parse(ctx context.Context, oa officeaction.OfficeAction) (rejections.ParseResult, error)
}

type Analyzer interface {
	AnalyzeAll(ctx context.Context, oa officeaction.OfficeAction, rejs []officeaction.ParsedRejection, opts rejections.AnalyzeOptions) (rejections.BatchResult, error)
	AnalyzeOne(ctx context.Context, oa officeaction.OfficeAction, rej officeaction.ParsedRejection, opts rejections.AnalyzeOptions) (rejections.RejectionAnalysis, error)
}

type Composer interface {
	Compose(ctx context.Context, oa officeaction.OfficeAction, rejs []officeaction.ParsedRejection, strategy rejections.Strategy, instructions string) (*amendment.AmendmentResponse, error)
}

type Enricher interface {
	EnrichAll(ctx context.Context, refs []string) ([]priorart.Reference, error)
}

type Deps struct {
	Store     *store.Store
	Ingestor  Ingestor
	Parser    Parser
	Analyzer  Analyzer
	Composer  Composer
	Assembler *export.Assembler
	Enricher  Enricher
	Blobs     blob.Store

	// Tenants maps API keys to tenant identifiers.
	Tenants map[string]string

	// Health detail, reported as configured/unconfigured flags.
	LLMConfigured      bool
	DocAIConfigured    bool
	PriorArtConfigured bool
}

type Server struct {
	deps Deps
}

func NewServer(deps Deps) http.Handler {
	s := &Server{deps: deps}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/office-actions", s.withTenant(s.handleOfficeActions))
	mux.HandleFunc("/v1/office-actions/", s.withTenant(s.handleOfficeActionSubroute))
	mux.HandleFunc("/v1/rejections/", s.withTenant(s.handleRejectionSubroute))
	mux.HandleFunc("/v1/amendment/export", s.withTenant(s.handleExport))
	mux.HandleFunc("/v1/references/enrich", s.withTenant(s.handleEnrich))
	mux.HandleFunc("/v1/health", s.handleHealth)
	return mux
}

// --- plumbing ---

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	ae := apperr.From(err)
	writeJSON(w, ae.Status, map[string]any{
		"ok": false,
		"error": map[string]any{
			"code":      ae.Code,
			"message":   ae.Message,
			"transient": ae.Transient,
		},
	})
}

func decodeJSON(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, 4<<20))
	if err != nil {
		return apperr.Validation("read request body: %v", err)
	}
	if len(body) == 0 {
		body = []byte("{}")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return apperr.Validation("invalid JSON body: %v", err)
	}
	return nil
}

func methodOnly(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

type tenantHandler func(w http.ResponseWriter, r *http.Request, tenantID string)

func (s *Server) withTenant(next tenantHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(r.Header.Get("X-API-Key"))
		if key == "" {
			writeError(w, apperr.Unauthorized("X-API-Key required"))
			return
		}
		tenantID, ok := s.deps.Tenants[key]
		if !ok {
			writeError(w, apperr.Unauthorized("unknown API key"))
			return
		}
		next(w, r, tenantID)
	}
}

// --- office actions ---

func (s *Server) handleOfficeActions(w http.ResponseWriter, r *http.Request, tenantID string) {
	switch r.Method {
	case http.MethodPost:
		s.handleUpload(w, r, tenantID)
	case http.MethodGet:
		list, err := s.deps.Store.ListOfficeActions(r.Context(), tenantID)
		if err != nil {
			writeError(w, err)
			return
		}
		summaries := make([]map[string]any, 0, len(list))
		for _, oa := range list {
			summaries = append(summaries, s.officeActionSummary(r.Context(), tenantID, oa))
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "officeActions": summaries})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type uploadMetadata struct {
	ProjectID         string `json:"projectId"`
	ApplicationNumber string `json:"applicationNumber"`
	MailingDate       string `json:"mailingDate"`
	ExaminerName      string `json:"examinerName"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request, tenantID string) {
	if err := r.ParseMultipartForm(officeaction.MaxUploadBytes + 1<<20); err != nil {
		writeError(w, apperr.Validation("invalid multipart body: %v", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, apperr.Validation("file field is required"))
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, officeaction.MaxUploadBytes+1))
	if err != nil {
		writeError(w, apperr.Validation("read uploaded file: %v", err))
		return
	}

	var meta uploadMetadata
	if raw := r.FormValue("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			writeError(w, apperr.Validation("invalid metadata JSON: %v", err))
			return
		}
	}
	up := officeaction.Upload{
		FileName:          header.Filename,
		MimeType:          detectMime(header, data),
		Data:              data,
		ProjectID:         meta.ProjectID,
		ApplicationNumber: meta.ApplicationNumber,
		ExaminerName:      meta.ExaminerName,
	}
	if meta.MailingDate != "" {
		t, err := time.Parse("2006-01-02", meta.MailingDate)
		if err != nil {
			writeError(w, apperr.Validation("mailingDate must be YYYY-MM-DD"))
			return
		}
		up.MailingDate = &t
	}

	res, err := s.deps.Ingestor.Ingest(r.Context(), tenantID, up)
	if err != nil {
		writeError(w, err)
		return
	}
	payload := map[string]any{
		"success": true,
		"officeAction": map[string]any{
			"id":             res.OfficeAction.ID,
			"fileName":       res.OfficeAction.FileName,
			"status":         res.OfficeAction.Status,
			"rejectionCount": 0,
			"createdAt":      res.OfficeAction.CreatedAt,
		},
	}
	// Degraded extraction is still a successful upload.
	if res.Warning != "" {
		payload["warning"] = res.Warning
	}
	writeJSON(w, http.StatusOK, payload)
}

func detectMime(header *multipart.FileHeader, data []byte) string {
	if ct := header.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	name := strings.ToLower(header.Filename)
	switch {
	case strings.HasSuffix(name, ".pdf"):
		return officeaction.MimePDF
	case strings.HasSuffix(name, ".docx"):
		return officeaction.MimeDOCX
	}
	return http.DetectContentType(data)
}

func (s *Server) officeActionSummary(ctx context.Context, tenantID string, oa officeaction.OfficeAction) map[string]any {
	count := 0
	if rejs, err := s.deps.Store.ListRejections(ctx, tenantID, oa.ID); err == nil {
		count = len(rejs)
	}
	return map[string]any{
		"id":             oa.ID,
		"fileName":       oa.FileName,
		"status":         oa.Status,
		"rejectionCount": count,
		"createdAt":      oa.CreatedAt,
	}
}

func (s *Server) handleOfficeActionSubroute(w http.ResponseWriter, r *http.Request, tenantID string) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/office-actions/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	switch {
	case len(parts) == 1 && parts[0] != "":
		s.handleGetOfficeAction(w, r, tenantID, parts[0])
	case len(parts) == 2 && parts[1] == "parse":
		s.handleParse(w, r, tenantID, parts[0])
	case len(parts) == 2 && parts[1] == "analyze":
		s.handleAnalyze(w, r, tenantID, parts[0])
	case len(parts) == 2 && parts[1] == "amendment":
		s.handleCompose(w, r, tenantID, parts[0])
	case len(parts) == 2 && parts[1] == "asmb":
		s.handleASMB(w, r, tenantID, parts[0])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (s *Server) handleGetOfficeAction(w http.ResponseWriter, r *http.Request, tenantID, id string) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	oa, err := s.deps.Store.GetOfficeAction(r.Context(), tenantID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	rejs, err := s.deps.Store.ListRejections(r.Context(), tenantID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	oa.Rejections = rejs
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "officeAction": oa})
}

// --- parse ---

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request, tenantID, id string) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	if s.deps.Parser == nil {
		writeError(w, apperr.Dependency("rejection parsing is not configured"))
		return
	}
	oa, err := s.deps.Store.GetOfficeAction(r.Context(), tenantID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := s.deps.Parser.Parse(r.Context(), *oa)
	if err != nil {
		// Parse failure never mutates the stored office action.
		writeError(w, err)
		return
	}
	if err := s.deps.Store.ReplaceRejections(r.Context(), tenantID, id, res.Rejections); err != nil {
		writeError(w, err)
		return
	}
	if err := s.deps.Store.UpdateOfficeActionParseResult(r.Context(), tenantID, id, res.DocumentType, res.ExaminerName, res.ApplicationNumber); err != nil {
		writeError(w, err)
		return
	}
	stored, err := s.deps.Store.ListRejections(r.Context(), tenantID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":                true,
		"documentType":      res.DocumentType,
		"examinerName":      res.ExaminerName,
		"applicationNumber": res.ApplicationNumber,
		"rejections":        stored,
	})
}

// --- analyze ---

type analyzeRequest struct {
	IncludeClaimCharts  bool `json:"includeClaimCharts"`
	IncludePriorArtText bool `json:"includePriorArtText"`
	ForceRefresh        bool `json:"forceRefresh"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request, tenantID, id string) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	var req analyzeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	oa, err := s.deps.Store.GetOfficeAction(r.Context(), tenantID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	rejs, err := s.deps.Store.ListRejections(r.Context(), tenantID, id)
	if err != nil {
		writeError(w, err)
		return
	}

	if !req.ForceRefresh {
		if cached, err := s.deps.Store.ListAnalyses(r.Context(), tenantID, id); err == nil && len(cached) > 0 {
			if rec, err := s.deps.Store.GetRecommendation(r.Context(), tenantID, id); err == nil {
				writeJSON(w, http.StatusOK, map[string]any{
					"ok": true, "cached": true, "analyses": cached, "overallStrategy": rec,
				})
				return
			}
		}
	}

	if s.deps.Analyzer == nil {
		writeError(w, apperr.Dependency("rejection analysis is not configured"))
		return
	}
	opts := rejections.AnalyzeOptions{
		IncludeClaimCharts:  req.IncludeClaimCharts,
		IncludePriorArtText: req.IncludePriorArtText,
		ForceRefresh:        req.ForceRefresh,
	}
	batch, err := s.deps.Analyzer.AnalyzeAll(r.Context(), *oa, rejs, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.deps.Store.ReplaceAnalyses(r.Context(), tenantID, id, batch.Analyses, batch.Overall); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true, "cached": false, "analyses": batch.Analyses, "overallStrategy": batch.Overall,
	})
}

func (s *Server) handleRejectionSubroute(w http.ResponseWriter, r *http.Request, tenantID string) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/rejections/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 || parts[1] != "analyze" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	if s.deps.Analyzer == nil {
		writeError(w, apperr.Dependency("rejection analysis is not configured"))
		return
	}
	var req analyzeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	rej, err := s.deps.Store.GetRejection(r.Context(), tenantID, parts[0])
	if err != nil {
		writeError(w, err)
		return
	}
	oa, err := s.deps.Store.GetOfficeAction(r.Context(), tenantID, rej.OfficeActionID)
	if err != nil {
		writeError(w, err)
		return
	}
	an, err := s.deps.Analyzer.AnalyzeOne(r.Context(), *oa, *rej, rejections.AnalyzeOptions{
		IncludeClaimCharts:  req.IncludeClaimCharts,
		IncludePriorArtText: req.IncludePriorArtText,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	// The fresh analysis supersedes the stored one for this rejection, so a
	// later batch read serves it rather than the superseded row.
	if err := s.deps.Store.ReplaceAnalysis(r.Context(), tenantID, oa.ID, an); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "analysis": an})
}

// --- compose ---

type composeRequest struct {
	Strategy     string `json:"strategy"`
	Instructions string `json:"instructions"`
}

func (s *Server) handleCompose(w http.ResponseWriter, r *http.Request, tenantID, id string) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	var req composeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	strategy := rejections.Strategy(strings.ToUpper(strings.TrimSpace(req.Strategy)))
	switch strategy {
	case rejections.StrategyAmendClaims, rejections.StrategyArgueRejection, rejections.StrategyCombination:
	default:
		writeError(w, apperr.Validation("unknown strategy %q", req.Strategy))
		return
	}
	oa, err := s.deps.Store.GetOfficeAction(r.Context(), tenantID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	rejs, err := s.deps.Store.ListRejections(r.Context(), tenantID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if s.deps.Composer == nil {
		writeError(w, apperr.Dependency("amendment composition is not configured"))
		return
	}
	resp, err := s.deps.Composer.Compose(r.Context(), *oa, rejs, strategy, req.Instructions)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.deps.Store.SaveAmendmentResponse(r.Context(), resp); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "amendmentResponse": resp})
}

// --- export ---

type exportRequest struct {
	Content export.Content `json:"content"`
	Options export.Options `json:"options"`
	// AmendmentResponseID, when set, records the rendered document as a new
	// blob against that amendment response.
	AmendmentResponseID string `json:"amendmentResponseId"`
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, tenantID string) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	var req exportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Options.Format == "" {
		req.Options.Format = export.FormatDOCX
	}
	res, err := s.deps.Assembler.Export(r.Context(), req.Content, req.Options)
	if err != nil {
		writeError(w, err)
		return
	}
	if req.AmendmentResponseID != "" && s.deps.Blobs != nil {
		// Best effort: the download already succeeded, so blob bookkeeping
		// failures are logged, not surfaced.
		name := fmt.Sprintf("exports/%s/%s/%s", tenantID, uuid.NewString(), res.FileName)
		if err := s.deps.Blobs.Put(r.Context(), name, res.Data, res.ContentType); err != nil {
			log.Printf("export blob tenant=%s amendment=%s: %v", tenantID, req.AmendmentResponseID, err)
		} else if err := s.deps.Store.SetAmendmentBlob(r.Context(), tenantID, req.AmendmentResponseID, name); err != nil {
			log.Printf("export blob record tenant=%s amendment=%s: %v", tenantID, req.AmendmentResponseID, err)
		}
	}
	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.FileName))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.Data); err != nil {
		log.Printf("export write tenant=%s file=%s: %v", tenantID, res.FileName, err)
	}
}

// --- ASMB data ---

func (s *Server) handleASMB(w http.ResponseWriter, r *http.Request, tenantID, id string) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	submissionType := export.SubmissionType(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("submissionType"))))
	if submissionType == "" {
		submissionType = export.SubmissionAmendment
	}
	oa, err := s.deps.Store.GetOfficeAction(r.Context(), tenantID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	content := export.Content{
		Title:         oa.FileName,
		ApplicationNo: oa.ApplicationNumber,
		MailingDate:   oa.MailingDate,
	}
	data, err := export.BuildASMBData(content, oa.ExaminerName, "", "", submissionType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "asmb": data})
}

// --- reference enrichment ---

type enrichRequest struct {
	References []string `json:"references"`
}

func (s *Server) handleEnrich(w http.ResponseWriter, r *http.Request, tenantID string) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	if s.deps.Enricher == nil {
		writeError(w, apperr.Dependency("reference lookup is not configured"))
		return
	}
	var req enrichRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(req.References) == 0 {
		writeError(w, apperr.Validation("references are required"))
		return
	}
	refs, err := s.deps.Enricher.EnrichAll(r.Context(), req.References)
	if err != nil && !errors.Is(err, context.Canceled) {
		writeError(w, apperr.Dependency("reference enrichment interrupted"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "references": refs})
}

// --- health ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"time":      time.Now().UTC().Format(time.RFC3339),
		"llm":       s.deps.LLMConfigured,
		"docai":     s.deps.DocAIConfigured,
		"prior_art": s.deps.PriorArtConfigured,
	})
}
