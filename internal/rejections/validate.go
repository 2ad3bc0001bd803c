package rejections

import (
	"fmt"
	"strings"
)

func validStrength(s string) bool {
	switch Strength(strings.ToUpper(strings.TrimSpace(s))) {
	case StrengthStrong, StrengthModerate, StrengthWeak, StrengthFlawed:
		return true
	}
	return false
}

func validStrategy(s string) bool {
	switch Strategy(strings.ToUpper(strings.TrimSpace(s))) {
	case StrategyAmendClaims, StrategyArgueRejection, StrategyCombination:
		return true
	}
	return false
}

func validRisk(s string) bool {
	switch RiskLevel(strings.ToUpper(strings.TrimSpace(s))) {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

func validateAnalysisPayload(p analysisPayload, requireChart bool) error {
	if !validStrength(p.Strength) {
		return fmt.Errorf("strength %q outside STRONG|MODERATE|WEAK|FLAWED", p.Strength)
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return fmt.Errorf("confidence out of range")
	}
	if !validStrategy(p.Strategy) {
		return fmt.Errorf("strategy %q outside AMEND_CLAIMS|ARGUE_REJECTION|COMBINATION", p.Strategy)
	}
	if len(strings.TrimSpace(p.Rationale)) < 20 {
		return fmt.Errorf("rationale too short")
	}
	if requireChart {
		if len(p.ClaimChart) == 0 {
			return fmt.Errorf("claim_chart required but empty")
		}
		for i, row := range p.ClaimChart {
			if strings.TrimSpace(row.Element) == "" {
				return fmt.Errorf("claim_chart[%d].element is empty", i)
			}
			if row.Disclosed && strings.TrimSpace(row.Disclosure) == "" {
				return fmt.Errorf("claim_chart[%d] marked disclosed without disclosure text", i)
			}
		}
	}
	return nil
}

func validateOverallPayload(p overallPayload) error {
	if !validStrategy(p.Primary) {
		return fmt.Errorf("primary strategy %q invalid", p.Primary)
	}
	for i, alt := range p.Alternatives {
		if !validStrategy(alt) {
			return fmt.Errorf("alternatives[%d] %q invalid", i, alt)
		}
		if strings.EqualFold(strings.TrimSpace(alt), strings.TrimSpace(p.Primary)) {
			return fmt.Errorf("alternatives must not repeat the primary strategy")
		}
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return fmt.Errorf("confidence out of range")
	}
	if len(strings.TrimSpace(p.Reasoning)) < 50 {
		return fmt.Errorf("reasoning too short")
	}
	if !validRisk(p.RiskLevel) {
		return fmt.Errorf("risk_level %q outside LOW|MEDIUM|HIGH", p.RiskLevel)
	}
	if len(p.KeyConsiderations) < 1 || len(p.KeyConsiderations) > 10 {
		return fmt.Errorf("key_considerations count")
	}
	return nil
}
