package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/joelkehle/oa-response/internal/amendment"
	"github.com/joelkehle/oa-response/internal/apperr"
)

type Format string

const (
	FormatDOCX Format = "docx"
	FormatPDF  Format = "pdf"
)

// DocumentType selects which portion of the response package to render.
type DocumentType string

const (
	DocFull DocumentType = "FULL"
	DocASMB DocumentType = "ASMB"
	DocCLM  DocumentType = "CLM"
	DocREM  DocumentType = "REM"
)

type SubmissionType string

const (
	SubmissionAmendment    SubmissionType = "AMENDMENT"
	SubmissionContinuation SubmissionType = "CONTINUATION"
	SubmissionRCE          SubmissionType = "RCE"
)

const (
	// InventorsPlaceholder stands in when the application record carries no
	// named inventors.
	InventorsPlaceholder = "[INVENTOR(S)]"
	datePlaceholder      = "[DATE]"
)

type Content struct {
	Title            string                      `json:"title"`
	ResponseType     string                      `json:"responseType"`
	ApplicationNo    string                      `json:"applicationNumber"`
	MailingDate      *time.Time                  `json:"mailingDate,omitempty"`
	Inventors        []string                    `json:"inventors"`
	ClaimAmendments  []amendment.ClaimAmendment  `json:"claimAmendments"`
	ArgumentSections []amendment.ArgumentSection `json:"argumentSections"`
	IncludeASMB      bool                        `json:"includeASMB"`
	SubmissionType   SubmissionType              `json:"submissionType,omitempty"`
}

type Options struct {
	Format          Format       `json:"format"`
	IncludeMetadata bool         `json:"includeMetadata"`
	FirmName        string       `json:"firmName"`
	AttorneyName    string       `json:"attorneyName"`
	DocketNumber    string       `json:"docketNumber"`
	DocumentType    DocumentType `json:"documentType"`
}

// ASMBData is the read model for the amendment cover page, served to
// clients with dates as ISO strings.
type ASMBData struct {
	ApplicationNumber   string         `json:"application_number"`
	FilingDate          string         `json:"filing_date,omitempty"`
	Title               string         `json:"title"`
	Inventors           string         `json:"inventors"`
	ExaminerName        string         `json:"examiner_name,omitempty"`
	ArtUnit             string         `json:"art_unit,omitempty"`
	MailingDate         string         `json:"mailing_date,omitempty"`
	ResponseDeadline    string         `json:"response_deadline,omitempty"`
	SubmissionType      SubmissionType `json:"submission_type"`
	SubmissionStatement string         `json:"submission_statement"`
}

// PDFRenderer turns a standalone HTML document into PDF bytes.
type PDFRenderer interface {
	RenderPDF(ctx context.Context, htmlDoc string) ([]byte, error)
}

type Result struct {
	FileName    string
	ContentType string
	Data        []byte
}

type Assembler struct {
	pdf PDFRenderer
}

func NewAssembler(pdf PDFRenderer) *Assembler {
	return &Assembler{pdf: pdf}
}

func (a *Assembler) Export(ctx context.Context, content Content, opts Options) (*Result, error) {
	if opts.Format != FormatDOCX && opts.Format != FormatPDF {
		return nil, apperr.Validation("unsupported export format %q", opts.Format)
	}
	docType := opts.DocumentType
	if docType == "" {
		docType = DocFull
	}
	switch docType {
	case DocFull, DocASMB, DocCLM, DocREM:
	default:
		return nil, apperr.Validation("unsupported document type %q", docType)
	}
	if docType != DocASMB && len(content.ClaimAmendments) == 0 && len(content.ArgumentSections) == 0 {
		return nil, apperr.Validation("nothing to export: no claim amendments or argument sections")
	}

	name := FileName(content.ApplicationNo, content.MailingDate, time.Now(), opts.Format)
	switch opts.Format {
	case FormatDOCX:
		data, err := renderDOCX(content, opts, docType)
		if err != nil {
			return nil, apperr.Internal("docx render failed: %v", err)
		}
		return &Result{
			FileName:    name,
			ContentType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			Data:        data,
		}, nil
	default:
		if a.pdf == nil {
			return nil, apperr.Internal("pdf rendering is not configured")
		}
		htmlDoc, err := buildHTMLDocument(content, opts, docType)
		if err != nil {
			return nil, apperr.Internal("html build failed: %v", err)
		}
		data, err := a.pdf.RenderPDF(ctx, htmlDoc)
		if err != nil {
			return nil, apperr.Dependency("pdf render failed")
		}
		return &Result{FileName: name, ContentType: "application/pdf", Data: data}, nil
	}
}

// FileName builds the deterministic download name: base, sanitized
// application number, office-action mailing date, export date, extension.
// Optional parts are skipped when unknown.
func FileName(applicationNo string, mailingDate *time.Time, now time.Time, format Format) string {
	parts := []string{"Amendment_Response"}
	if s := sanitizeToken(applicationNo); s != "" {
		parts = append(parts, s)
	}
	if mailingDate != nil {
		parts = append(parts, mailingDate.Format("2006-01-02"))
	}
	parts = append(parts, now.Format("2006-01-02"))
	return strings.Join(parts, "_") + "." + string(format)
}

func sanitizeToken(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

// CalculateResponseDeadline is the statutory shortened period: three
// calendar months from the mailing date. Unknown mailing date means no
// deadline can be computed.
func CalculateResponseDeadline(mailingDate *time.Time) *time.Time {
	if mailingDate == nil {
		return nil
	}
	d := mailingDate.AddDate(0, 3, 0)
	return &d
}

func FormatInventors(names []string) string {
	trimmed := make([]string, 0, len(names))
	for _, n := range names {
		if s := strings.TrimSpace(n); s != "" {
			trimmed = append(trimmed, s)
		}
	}
	switch len(trimmed) {
	case 0:
		return InventorsPlaceholder
	case 1:
		return trimmed[0]
	case 2:
		return trimmed[0] + " and " + trimmed[1]
	default:
		return trimmed[0] + ", " + trimmed[1] + ", et al."
	}
}

// SubmissionStatement maps submission type to its boilerplate sentence with
// the mailing date interpolated in long form.
func SubmissionStatement(submissionType SubmissionType, mailingDate *time.Time) (string, error) {
	date := datePlaceholder
	if mailingDate != nil {
		date = mailingDate.Format("January 2, 2006")
	}
	switch submissionType {
	case SubmissionAmendment:
		return fmt.Sprintf("In response to the Office Action mailed %s, please amend the above-identified application as follows.", date), nil
	case SubmissionContinuation:
		return fmt.Sprintf("This is a continuation submission responsive to the Office Action mailed %s.", date), nil
	case SubmissionRCE:
		return fmt.Sprintf("This submission accompanies a Request for Continued Examination of the above-identified application, responsive to the Office Action mailed %s.", date), nil
	default:
		return "", apperr.Validation("unknown submission type %q", submissionType)
	}
}

// BuildASMBData assembles the cover-page read model, dates as ISO strings.
func BuildASMBData(content Content, examinerName, artUnit, filingDate string, submissionType SubmissionType) (*ASMBData, error) {
	statement, err := SubmissionStatement(submissionType, content.MailingDate)
	if err != nil {
		return nil, err
	}
	data := &ASMBData{
		ApplicationNumber:   content.ApplicationNo,
		FilingDate:          filingDate,
		Title:               content.Title,
		Inventors:           FormatInventors(content.Inventors),
		ExaminerName:        examinerName,
		ArtUnit:             artUnit,
		SubmissionType:      submissionType,
		SubmissionStatement: statement,
	}
	if content.MailingDate != nil {
		data.MailingDate = content.MailingDate.Format("2006-01-02")
	}
	if d := CalculateResponseDeadline(content.MailingDate); d != nil {
		data.ResponseDeadline = d.Format("2006-01-02")
	}
	return data, nil
}
