package officeaction

import (
	"context"
	"fmt"
	"log"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joelkehle/oa-response/internal/apperr"
)

// Extractor is one text-extraction strategy. Strategies are tried in order;
// the first one to return usable text wins.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, data []byte, mimeType string) (string, error)
}

type BlobStore interface {
	Put(ctx context.Context, name string, data []byte, contentType string) error
}

type Creator interface {
	CreateOfficeAction(ctx context.Context, oa *OfficeAction) error
}

// ParseTrigger kicks off rejection parsing after a successful upload.
// Failures here are logged, never surfaced: the upload already succeeded.
type ParseTrigger interface {
	TriggerParse(ctx context.Context, tenantID, officeActionID string) error
}

type Ingestor struct {
	extractors []Extractor
	blobs      BlobStore
	store      Creator
	parser     ParseTrigger
}

func NewIngestor(extractors []Extractor, blobs BlobStore, store Creator, parser ParseTrigger) *Ingestor {
	return &Ingestor{extractors: extractors, blobs: blobs, store: store, parser: parser}
}

func (in *Ingestor) Ingest(ctx context.Context, tenantID string, up Upload) (IngestResult, error) {
	if len(up.Data) == 0 {
		return IngestResult{}, apperr.Validation("file is required")
	}
	if len(up.Data) > MaxUploadBytes {
		return IngestResult{}, apperr.Validation("file exceeds %d byte limit", MaxUploadBytes)
	}
	if !AllowedMime(up.MimeType) {
		return IngestResult{}, apperr.Validation("unsupported file type %q: only PDF and DOCX are accepted", up.MimeType)
	}
	if strings.TrimSpace(tenantID) == "" {
		return IngestResult{}, apperr.Unauthorized("tenant required")
	}

	text, method := in.extractText(ctx, up)
	warning := QualityWarning(text)

	blobName := fmt.Sprintf("office-actions/%s/%s%s", tenantID, uuid.NewString(), path.Ext(up.FileName))
	if err := in.blobs.Put(ctx, blobName, up.Data, up.MimeType); err != nil {
		return IngestResult{}, apperr.Dependency("failed to store uploaded file")
	}

	now := time.Now().UTC()
	oa := OfficeAction{
		ID:                uuid.NewString(),
		TenantID:          tenantID,
		ProjectID:         up.ProjectID,
		FileName:          up.FileName,
		BlobName:          blobName,
		ExtractedText:     text,
		ExtractionMethod:  method,
		ApplicationNumber: up.ApplicationNumber,
		Status:            StatusUploaded,
		MailingDate:       up.MailingDate,
		ExaminerName:      up.ExaminerName,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := in.store.CreateOfficeAction(ctx, &oa); err != nil {
		return IngestResult{}, err
	}

	if in.parser != nil && method != "placeholder" {
		if err := in.parser.TriggerParse(ctx, tenantID, oa.ID); err != nil {
			log.Printf("office-action ingest id=%s parse trigger failed (upload kept): %v", oa.ID, err)
		}
	}

	return IngestResult{OfficeAction: oa, Warning: warning}, nil
}

// extractText walks the strategy list. If every extractor fails the upload
// still succeeds with placeholder text; the caller sees a quality warning.
func (in *Ingestor) extractText(ctx context.Context, up Upload) (text, method string) {
	for _, ex := range in.extractors {
		out, err := ex.Extract(ctx, up.Data, up.MimeType)
		if err != nil {
			log.Printf("office-action extract strategy=%s file=%s failed: %v", ex.Name(), up.FileName, err)
			continue
		}
		out = strings.TrimSpace(out)
		if out == "" {
			log.Printf("office-action extract strategy=%s file=%s returned no text", ex.Name(), up.FileName)
			continue
		}
		return out, ex.Name()
	}
	return PlaceholderText, "placeholder"
}
