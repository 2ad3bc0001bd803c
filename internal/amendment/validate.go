package amendment

import (
	"fmt"
	"strings"

	"github.com/joelkehle/oa-response/internal/officeaction"
)

// ValidateContent checks a generated response against the rejections it is
// supposed to address. Rules:
//
//   - every claim number appears at most once, with a recognized status
//   - every argument section targets a rejection that actually exists
//   - sections leaning on prior art name the references they discuss
//   - every claim cited by an addressed rejection either has an amendment
//     entry or an explicit no-change entry with a justification
func ValidateContent(claims []ClaimAmendment, sections []ArgumentSection, rejs []officeaction.ParsedRejection) error {
	if len(claims) == 0 && len(sections) == 0 {
		return fmt.Errorf("response has no claim amendments and no argument sections")
	}

	seen := map[int]ClaimAmendment{}
	for _, ca := range claims {
		if ca.ClaimNumber <= 0 {
			return fmt.Errorf("claim_number %d is not positive", ca.ClaimNumber)
		}
		if _, dup := seen[ca.ClaimNumber]; dup {
			return fmt.Errorf("claim %d appears more than once", ca.ClaimNumber)
		}
		if !ValidClaimStatus(ca.Status) {
			return fmt.Errorf("claim %d has unknown status %q", ca.ClaimNumber, ca.Status)
		}
		if ca.Status == ClaimCurrentlyAmended && strings.TrimSpace(ca.AmendedText) == "" {
			return fmt.Errorf("claim %d is marked CURRENTLY_AMENDED but has no amended text", ca.ClaimNumber)
		}
		if ca.Status != ClaimNew && strings.TrimSpace(ca.OriginalText) == "" {
			return fmt.Errorf("claim %d is missing original text", ca.ClaimNumber)
		}
		if len(strings.TrimSpace(ca.Justification)) < 10 {
			return fmt.Errorf("claim %d justification is too short", ca.ClaimNumber)
		}
		seen[ca.ClaimNumber] = ca
	}

	rejByID := map[string]officeaction.ParsedRejection{}
	for _, rej := range rejs {
		rejByID[rej.ID] = rej
	}
	addressed := map[string]bool{}
	for i, sec := range sections {
		rej, ok := rejByID[sec.RejectionID]
		if !ok {
			return fmt.Errorf("argument section %d targets unknown rejection %q", i, sec.RejectionID)
		}
		if strings.TrimSpace(sec.Title) == "" {
			return fmt.Errorf("argument section %d has no title", i)
		}
		if len(strings.TrimSpace(sec.Content)) < 50 {
			return fmt.Errorf("argument section %d content is too short", i)
		}
		if len(rej.References) > 0 && len(sec.References) == 0 && mentionsPriorArt(sec.Content) {
			return fmt.Errorf("argument section %d discusses prior art without naming references", i)
		}
		addressed[sec.RejectionID] = true
	}

	// A claim under an addressed rejection must show up somewhere in the
	// amendment listing, even if only as an unchanged carry-forward.
	for id := range addressed {
		rej := rejByID[id]
		for _, n := range rej.Claims {
			if _, ok := seen[n]; !ok {
				return fmt.Errorf("rejection %s covers claim %d but the response does not list it", id, n)
			}
		}
	}
	return nil
}

func mentionsPriorArt(content string) bool {
	lower := strings.ToLower(content)
	for _, kw := range []string{"prior art", "reference", "teaches", "discloses", "in view of"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
