package rejections

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joelkehle/oa-response/internal/apperr"
	"github.com/joelkehle/oa-response/internal/officeaction"
)

// Analyzer produces a RejectionAnalysis per parsed rejection plus one
// overall strategy recommendation. Batch mode is the common path; single-
// rejection analysis exists for re-analysis. Nothing is merged on force
// refresh: a fresh run replaces the prior one wholesale at the store layer.
type Analyzer struct {
	exec    *JSONExecutor
	timeout time.Duration
}

// analyzeConcurrency bounds in-flight generation calls during a batch run.
const analyzeConcurrency = 3

func NewAnalyzer(exec *JSONExecutor) *Analyzer {
	return &Analyzer{exec: exec, timeout: BatchTimeout}
}

type analysisPayload struct {
	Strength            string          `json:"strength"`
	Confidence          float64         `json:"confidence"`
	MissingElements     []string        `json:"missing_elements"`
	WeakArguments       []string        `json:"weak_arguments"`
	Strategy            string          `json:"strategy"`
	SuggestedAmendments []string        `json:"suggested_amendments"`
	TalkingPoints       []string        `json:"talking_points"`
	Rationale           string          `json:"rationale"`
	ClaimChart          []ClaimChartRow `json:"claim_chart"`
}

type overallPayload struct {
	Primary           string   `json:"primary"`
	Alternatives      []string `json:"alternatives"`
	Confidence        float64  `json:"confidence"`
	Reasoning         string   `json:"reasoning"`
	RiskLevel         string   `json:"risk_level"`
	KeyConsiderations []string `json:"key_considerations"`
}

func (a *Analyzer) AnalyzeAll(ctx context.Context, oa officeaction.OfficeAction, rejs []officeaction.ParsedRejection, opts AnalyzeOptions) (BatchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	// Zero parsed rejections is a valid, resumable state, not an error:
	// the caller gets an empty list and a low-confidence recommendation.
	if len(rejs) == 0 {
		return BatchResult{
			Analyses: []RejectionAnalysis{},
			Overall: StrategyRecommendation{
				Primary:           StrategyArgueRejection,
				Confidence:        LowConfidence,
				Reasoning:         "No parsed rejections are available for this office action; parse the document before requesting a strategy.",
				RiskLevel:         RiskHigh,
				KeyConsiderations: []string{"no rejections parsed yet"},
			},
		}, nil
	}

	// Rejections analyze independently; a bounded group keeps large office
	// actions inside the batch timeout. Results keep rejection order.
	out := BatchResult{Analyses: make([]RejectionAnalysis, len(rejs))}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(analyzeConcurrency)
	for i, rej := range rejs {
		g.Go(func() error {
			analysis, err := a.AnalyzeOne(gctx, oa, rej, opts)
			if err != nil {
				return err
			}
			out.Analyses[i] = analysis
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return BatchResult{}, err
	}

	overall, err := a.recommendOverall(ctx, oa, out.Analyses)
	if err != nil {
		return BatchResult{}, err
	}
	out.Overall = overall
	return out, nil
}

func (a *Analyzer) AnalyzeOne(ctx context.Context, oa officeaction.OfficeAction, rej officeaction.ParsedRejection, opts AnalyzeOptions) (RejectionAnalysis, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	schema := analyzeSchemaPrompt
	if opts.IncludeClaimCharts {
		schema += "\n" + claimChartSchemaPrompt
	}
	prompt := fmt.Sprintf(
		"Analyze this examiner rejection.\n%s\n\n%s\n\nStatutory basis: %s (examiner stated %q)\nClaims: %v\nReferences: %v\n\nExaminer reasoning:\n%s\n\nRejection source text:\n%s",
		analyzePromptContext,
		schema,
		rej.Type,
		rej.RawType,
		rej.Claims,
		rej.References,
		rej.ExaminerReasoning,
		sourceSpan(oa.ExtractedText, rej),
	)

	payload := analysisPayload{}
	err := a.exec.Run(ctx, "analyze_rejection", prompt, &payload, func() error {
		return validateAnalysisPayload(payload, opts.IncludeClaimCharts)
	})
	if err != nil {
		return RejectionAnalysis{}, classifyLLMError("rejection analysis", err)
	}

	analysis := RejectionAnalysis{
		RejectionID:         rej.ID,
		Strength:            Strength(strings.ToUpper(strings.TrimSpace(payload.Strength))),
		RawStrength:         payload.Strength,
		Confidence:          clamp01(payload.Confidence),
		MissingElements:     trimAll(payload.MissingElements),
		WeakArguments:       trimAll(payload.WeakArguments),
		Strategy:            Strategy(strings.ToUpper(strings.TrimSpace(payload.Strategy))),
		RawStrategy:         payload.Strategy,
		SuggestedAmendments: trimAll(payload.SuggestedAmendments),
		TalkingPoints:       trimAll(payload.TalkingPoints),
		Rationale:           strings.TrimSpace(payload.Rationale),
		AnalyzedAt:          time.Now().UTC(),
	}
	if opts.IncludeClaimCharts {
		analysis.ClaimChart = payload.ClaimChart
	}
	return analysis, nil
}

func (a *Analyzer) recommendOverall(ctx context.Context, oa officeaction.OfficeAction, analyses []RejectionAnalysis) (StrategyRecommendation, error) {
	var summary strings.Builder
	for _, an := range analyses {
		fmt.Fprintf(&summary, "- rejection %s: strength=%s strategy=%s rationale=%s\n", an.RejectionID, an.Strength, an.Strategy, an.Rationale)
	}
	prompt := fmt.Sprintf(
		"Recommend one overall response strategy for an office action given these per-rejection analyses.\n\n%s\n\nApplication: %s\nPer-rejection analyses:\n%s",
		overallSchemaPrompt,
		oa.ApplicationNumber,
		summary.String(),
	)

	payload := overallPayload{}
	err := a.exec.Run(ctx, "overall_strategy", prompt, &payload, func() error {
		return validateOverallPayload(payload)
	})
	if err != nil {
		return StrategyRecommendation{}, classifyLLMError("strategy recommendation", err)
	}

	alts := make([]Strategy, 0, len(payload.Alternatives))
	for _, s := range payload.Alternatives {
		alts = append(alts, Strategy(strings.ToUpper(strings.TrimSpace(s))))
	}
	return StrategyRecommendation{
		Primary:           Strategy(strings.ToUpper(strings.TrimSpace(payload.Primary))),
		Alternatives:      alts,
		Confidence:        clamp01(payload.Confidence),
		Reasoning:         strings.TrimSpace(payload.Reasoning),
		RiskLevel:         RiskLevel(strings.ToUpper(strings.TrimSpace(payload.RiskLevel))),
		KeyConsiderations: trimAll(payload.KeyConsiderations),
	}, nil
}

func classifyLLMError(op string, err error) error {
	var se *SchemaError
	if errors.As(err, &se) {
		return apperr.Schema("%s returned output that failed validation: %v", op, se.Err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Timeout("%s timed out", op)
	}
	return apperr.Dependency("%s failed", op)
}

func sourceSpan(text string, rej officeaction.ParsedRejection) string {
	start, end := rej.SpanStart, rej.SpanEnd
	if start < 0 || end > len(text) || start >= end {
		return text
	}
	return text[start:end]
}
