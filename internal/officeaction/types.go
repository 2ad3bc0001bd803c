package officeaction

import "time"

const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	MaxUploadBytes = 25 << 20

	// Extraction quality bands, by extracted text length.
	QualityFineMinChars    = 200
	QualityLimitedMinChars = 50

	PlaceholderText = "manual review required"

	WarningLimitedText   = "limited text extracted; results may be incomplete"
	WarningLikelyScanned = "document appears to be scanned; manual review recommended"

	// Parser confidence below this flags a rejection for human review.
	ReviewConfidenceThreshold = 0.6
)

// Office action lifecycle, advanced as pipeline stages persist their
// output.
const (
	StatusUploaded = "UPLOADED"
	StatusParsed   = "PARSED"
	StatusAnalyzed = "ANALYZED"
)

type StatutoryType string

const (
	Statutory101   StatutoryType = "§101"
	Statutory102   StatutoryType = "§102"
	Statutory103   StatutoryType = "§103"
	Statutory112   StatutoryType = "§112"
	StatutoryOther StatutoryType = "OTHER"
)

type ParsedRejection struct {
	ID                  string        `json:"id" db:"id"`
	OfficeActionID      string        `json:"office_action_id" db:"office_action_id"`
	Type                StatutoryType `json:"type" db:"type"`
	RawType             string        `json:"raw_type" db:"raw_type"`
	Category            string        `json:"category" db:"category"`
	Claims              []int         `json:"claims"`
	References          []string      `json:"references"`
	ExaminerReasoning   string        `json:"examiner_reasoning" db:"examiner_reasoning"`
	ReasoningInsights   []string      `json:"reasoning_insights"`
	SpanStart           int           `json:"span_start" db:"span_start"`
	SpanEnd             int           `json:"span_end" db:"span_end"`
	Confidence          float64       `json:"confidence" db:"confidence"`
	RequiresHumanReview bool          `json:"requires_human_review" db:"requires_human_review"`
}

type OfficeAction struct {
	ID                string            `json:"id" db:"id"`
	TenantID          string            `json:"tenant_id" db:"tenant_id"`
	ProjectID         string            `json:"project_id" db:"project_id"`
	FileName          string            `json:"file_name" db:"file_name"`
	BlobName          string            `json:"blob_name" db:"blob_name"`
	ExtractedText     string            `json:"extracted_text" db:"extracted_text"`
	ExtractionMethod  string            `json:"extraction_method" db:"extraction_method"`
	DocumentType      string            `json:"document_type" db:"document_type"`
	ExaminerName      string            `json:"examiner_name" db:"examiner_name"`
	ApplicationNumber string            `json:"application_number" db:"application_number"`
	Status            string            `json:"status" db:"status"`
	MailingDate       *time.Time        `json:"mailing_date"`
	Rejections        []ParsedRejection `json:"rejections"`
	CitedReferences   []string          `json:"cited_references"`
	CreatedAt         time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at" db:"updated_at"`
}

// Upload is the ingestion input: one file plus optional examiner metadata.
type Upload struct {
	FileName          string
	MimeType          string
	Data              []byte
	ProjectID         string
	ApplicationNumber string
	MailingDate       *time.Time
	ExaminerName      string
}

type IngestResult struct {
	OfficeAction OfficeAction
	Warning      string
}

func AllowedMime(mime string) bool {
	return mime == MimePDF || mime == MimeDOCX
}

// QualityWarning classifies extraction quality by text length.
// Empty string means the extraction looks fine.
func QualityWarning(text string) string {
	n := len(text)
	switch {
	case n >= QualityFineMinChars:
		return ""
	case n >= QualityLimitedMinChars:
		return WarningLimitedText
	default:
		return WarningLikelyScanned
	}
}
