package amendment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joelkehle/oa-response/internal/apperr"
	"github.com/joelkehle/oa-response/internal/officeaction"
	"github.com/joelkehle/oa-response/internal/rejections"
)

const composePromptContext = `Draft a response to a USPTO office action. Follow amendment-practice
status conventions exactly:

- CURRENTLY_AMENDED: a claim whose text changes in this response
- PREVIOUSLY_PRESENTED: an untouched claim carried forward unchanged
- NEW: a claim introduced for the first time in this response
- CANCELLED: a claim withdrawn in this response

Every claim affected by an addressed rejection must appear once in
claim_amendments; an unchanged claim appears as PREVIOUSLY_PRESENTED with a
justification explaining why no change is needed. Argument sections address
specific rejections by identifier and must name the prior-art references
they discuss.`

const composeSchemaPrompt = `Required JSON schema:
{
  "claim_amendments": [
    {
      "claim_number": "int (positive)",
      "original_text": "string (empty only for NEW claims)",
      "amended_text": "string",
      "justification": "string (min 10 chars)",
      "status": "CURRENTLY_AMENDED | PREVIOUSLY_PRESENTED | NEW | CANCELLED"
    }
  ],
  "argument_sections": [
    {
      "rejection_id": "string (one of the rejection identifiers provided)",
      "title": "string",
      "content": "string (min 50 chars)",
      "section_type": "string (e.g. TRAVERSAL | AMENDMENT_SUPPORT | COMBINATION)",
      "references": ["string (prior-art identifiers relied on, empty if none)"]
    }
  ]
}`

// Composer turns a chosen strategy into claim amendments and argument
// sections. Generation or validation failure persists nothing: an
// incomplete amendment is worse than none.
type Composer struct {
	exec *rejections.JSONExecutor
}

func NewComposer(exec *rejections.JSONExecutor) *Composer {
	return &Composer{exec: exec}
}

type composePayload struct {
	ClaimAmendments  []ClaimAmendment  `json:"claim_amendments"`
	ArgumentSections []ArgumentSection `json:"argument_sections"`
}

func (c *Composer) Compose(ctx context.Context, oa officeaction.OfficeAction, rejs []officeaction.ParsedRejection, strategy rejections.Strategy, instructions string) (*AmendmentResponse, error) {
	if len(rejs) == 0 {
		return nil, apperr.Validation("no parsed rejections to respond to")
	}

	resp := &AmendmentResponse{
		ID:             uuid.NewString(),
		OfficeActionID: oa.ID,
		ProjectID:      oa.ProjectID,
		TenantID:       oa.TenantID,
		Status:         StatusPending,
		Strategy:       strategy,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	if err := resp.Transition(StatusAnalyzing); err != nil {
		return nil, apperr.Internal("%s", err.Error())
	}

	var rejSummary strings.Builder
	for _, rej := range rejs {
		fmt.Fprintf(&rejSummary, "- id=%s basis=%s claims=%v references=%v reasoning=%s\n",
			rej.ID, rej.Type, rej.Claims, rej.References, rej.ExaminerReasoning)
	}
	prompt := fmt.Sprintf(
		"Compose an office action response using strategy %s.\n%s\n\n%s\n\nRejections to address:\n%s",
		strategy,
		composePromptContext,
		composeSchemaPrompt,
		rejSummary.String(),
	)
	if strings.TrimSpace(instructions) != "" {
		prompt += "\n\nPractitioner instructions:\n" + strings.TrimSpace(instructions)
	}

	payload := composePayload{}
	err := c.exec.Run(ctx, "compose_amendment", prompt, &payload, func() error {
		return ValidateContent(payload.ClaimAmendments, payload.ArgumentSections, rejs)
	})
	if err != nil {
		var se *rejections.SchemaError
		if errors.As(err, &se) {
			return nil, apperr.Schema("amendment composition returned output that failed validation: %v", se.Err)
		}
		return nil, apperr.Dependency("amendment composition failed")
	}

	resp.ClaimAmendments = payload.ClaimAmendments
	resp.ArgumentSections = payload.ArgumentSections
	if err := resp.Transition(StatusComplete); err != nil {
		return nil, apperr.Schema("%s", err.Error())
	}
	return resp, nil
}
