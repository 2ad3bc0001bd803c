package rejections

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/joelkehle/oa-response/internal/apperr"
	"github.com/joelkehle/oa-response/internal/officeaction"
)

// Parser splits extracted office-action text into discrete examiner
// rejections. A failed parse is a visible, retryable error: it never
// degrades silently the way ingestion does.
type Parser struct {
	exec *JSONExecutor
}

func NewParser(exec *JSONExecutor) *Parser {
	return &Parser{exec: exec}
}

type parsedRejectionPayload struct {
	Type              string   `json:"type"`
	Category          string   `json:"category"`
	Claims            []int    `json:"claims"`
	References        []string `json:"references"`
	ExaminerReasoning string   `json:"examiner_reasoning"`
	ReasoningInsights []string `json:"reasoning_insights"`
	SpanStart         int      `json:"span_start"`
	SpanEnd           int      `json:"span_end"`
	Confidence        float64  `json:"confidence"`
}

type parsePayload struct {
	DocumentType      string                   `json:"document_type"`
	ExaminerName      string                   `json:"examiner_name"`
	ApplicationNumber string                   `json:"application_number"`
	Rejections        []parsedRejectionPayload `json:"rejections"`
}

type ParseResult struct {
	DocumentType      string
	ExaminerName      string
	ApplicationNumber string
	Rejections        []officeaction.ParsedRejection
}

func (p *Parser) Parse(ctx context.Context, oa officeaction.OfficeAction) (ParseResult, error) {
	text := strings.TrimSpace(oa.ExtractedText)
	if text == "" || text == officeaction.PlaceholderText {
		return ParseResult{}, apperr.Validation("office action has no extracted text to parse")
	}

	prompt := fmt.Sprintf(
		"Parse the following office action into discrete rejections.\n%s\n\n%s\n\nDocument text:\n%s",
		parsePromptContext,
		parseSchemaPrompt,
		text,
	)

	payload := parsePayload{}
	err := p.exec.Run(ctx, "parse_rejections", prompt, &payload, func() error {
		return validateParsePayload(payload)
	})
	if err != nil {
		var se *SchemaError
		if errors.As(err, &se) {
			return ParseResult{}, apperr.Schema("rejection parse returned unusable output: %v", se.Err)
		}
		return ParseResult{}, apperr.Dependency("rejection parse failed")
	}

	res := ParseResult{
		DocumentType:      strings.TrimSpace(payload.DocumentType),
		ExaminerName:      strings.TrimSpace(payload.ExaminerName),
		ApplicationNumber: strings.TrimSpace(payload.ApplicationNumber),
	}
	for _, raw := range payload.Rejections {
		confidence := clamp01(raw.Confidence)
		res.Rejections = append(res.Rejections, officeaction.ParsedRejection{
			ID:                  uuid.NewString(),
			OfficeActionID:      oa.ID,
			Type:                NormalizeStatutoryType(raw.Type),
			RawType:             raw.Type,
			Category:            strings.TrimSpace(raw.Category),
			Claims:              raw.Claims,
			References:          trimAll(raw.References),
			ExaminerReasoning:   strings.TrimSpace(raw.ExaminerReasoning),
			ReasoningInsights:   trimAll(raw.ReasoningInsights),
			SpanStart:           clampSpan(raw.SpanStart, len(text)),
			SpanEnd:             clampSpan(raw.SpanEnd, len(text)),
			Confidence:          confidence,
			RequiresHumanReview: confidence < officeaction.ReviewConfidenceThreshold,
		})
	}
	return res, nil
}

// NormalizeStatutoryType maps the model's label onto the closed statutory
// set. Anything unrecognized becomes OTHER; the raw label is kept for audit.
func NormalizeStatutoryType(raw string) officeaction.StatutoryType {
	label := strings.ToUpper(strings.TrimSpace(raw))
	label = strings.NewReplacer("§", "", "35 U.S.C.", "", "35 USC", "", "SECTION", "", " ", "").Replace(label)
	switch {
	case strings.HasPrefix(label, "101"):
		return officeaction.Statutory101
	case strings.HasPrefix(label, "102"):
		return officeaction.Statutory102
	case strings.HasPrefix(label, "103"):
		return officeaction.Statutory103
	case strings.HasPrefix(label, "112"):
		return officeaction.Statutory112
	default:
		return officeaction.StatutoryOther
	}
}

func validateParsePayload(p parsePayload) error {
	for i, r := range p.Rejections {
		if strings.TrimSpace(r.Type) == "" {
			return fmt.Errorf("rejections[%d].type is empty", i)
		}
		if len(r.Claims) == 0 {
			return fmt.Errorf("rejections[%d].claims is empty", i)
		}
		for _, c := range r.Claims {
			if c <= 0 {
				return fmt.Errorf("rejections[%d] has non-positive claim number %d", i, c)
			}
		}
		if strings.TrimSpace(r.ExaminerReasoning) == "" {
			return fmt.Errorf("rejections[%d].examiner_reasoning is empty", i)
		}
		if r.SpanEnd < r.SpanStart {
			return fmt.Errorf("rejections[%d] span end before start", i)
		}
	}
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampSpan(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
