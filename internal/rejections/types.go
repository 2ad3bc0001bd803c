package rejections

import "time"

const (
	// BatchTimeout bounds a full analyze-all run; generation is slow, not
	// concurrent, so the budget is generous.
	BatchTimeout = 2 * time.Minute

	// LowConfidence is reported when there is nothing to analyze.
	LowConfidence = 0.2
)

type Strength string

const (
	StrengthStrong   Strength = "STRONG"
	StrengthModerate Strength = "MODERATE"
	StrengthWeak     Strength = "WEAK"
	StrengthFlawed   Strength = "FLAWED"
)

type Strategy string

const (
	StrategyAmendClaims    Strategy = "AMEND_CLAIMS"
	StrategyArgueRejection Strategy = "ARGUE_REJECTION"
	StrategyCombination    Strategy = "COMBINATION"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// ClaimChartRow maps one claim element to where (or whether) a cited
// reference discloses it.
type ClaimChartRow struct {
	Element    string `json:"element"`
	Disclosure string `json:"disclosure"`
	Disclosed  bool   `json:"disclosed"`
	Notes      string `json:"notes"`
}

// RejectionAnalysis is created fresh per analysis run and replaced
// wholesale on force-refresh; it is never partially updated.
type RejectionAnalysis struct {
	RejectionID         string          `json:"rejection_id"`
	Strength            Strength        `json:"strength"`
	RawStrength         string          `json:"raw_strength"`
	Confidence          float64         `json:"confidence"`
	MissingElements     []string        `json:"missing_elements"`
	WeakArguments       []string        `json:"weak_arguments"`
	Strategy            Strategy        `json:"strategy"`
	RawStrategy         string          `json:"raw_strategy"`
	SuggestedAmendments []string        `json:"suggested_amendments"`
	TalkingPoints       []string        `json:"talking_points"`
	Rationale           string          `json:"rationale"`
	ClaimChart          []ClaimChartRow `json:"claim_chart,omitempty"`
	AnalyzedAt          time.Time       `json:"analyzed_at"`
}

type StrategyRecommendation struct {
	Primary           Strategy   `json:"primary"`
	Alternatives      []Strategy `json:"alternatives"`
	Confidence        float64    `json:"confidence"`
	Reasoning         string     `json:"reasoning"`
	RiskLevel         RiskLevel  `json:"risk_level"`
	KeyConsiderations []string   `json:"key_considerations"`
}

type BatchResult struct {
	Analyses []RejectionAnalysis    `json:"analyses"`
	Overall  StrategyRecommendation `json:"overall_strategy"`
}

type AnalyzeOptions struct {
	IncludeClaimCharts  bool
	IncludePriorArtText bool
	ForceRefresh        bool
}
