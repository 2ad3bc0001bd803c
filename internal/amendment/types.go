package amendment

import (
	"fmt"
	"time"

	"github.com/joelkehle/oa-response/internal/rejections"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusAnalyzing Status = "ANALYZING"
	StatusComplete  Status = "COMPLETE"
	StatusError     Status = "ERROR"
)

// CanTransition enforces PENDING→ANALYZING→COMPLETE, with ERROR reachable
// from any non-terminal state.
func CanTransition(from, to Status) bool {
	switch {
	case from == StatusPending && to == StatusAnalyzing:
		return true
	case from == StatusAnalyzing && to == StatusComplete:
		return true
	case to == StatusError && (from == StatusPending || from == StatusAnalyzing):
		return true
	}
	return false
}

type ClaimStatus string

const (
	ClaimCurrentlyAmended    ClaimStatus = "CURRENTLY_AMENDED"
	ClaimPreviouslyPresented ClaimStatus = "PREVIOUSLY_PRESENTED"
	ClaimNew                 ClaimStatus = "NEW"
	ClaimCancelled           ClaimStatus = "CANCELLED"
)

func ValidClaimStatus(s ClaimStatus) bool {
	switch s {
	case ClaimCurrentlyAmended, ClaimPreviouslyPresented, ClaimNew, ClaimCancelled:
		return true
	}
	return false
}

type ClaimAmendment struct {
	ClaimNumber   int         `json:"claim_number"`
	OriginalText  string      `json:"original_text"`
	AmendedText   string      `json:"amended_text"`
	Justification string      `json:"justification"`
	Status        ClaimStatus `json:"status"`
}

type ArgumentSection struct {
	RejectionID string   `json:"rejection_id"`
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	SectionType string   `json:"section_type"`
	References  []string `json:"references"`
}

type AmendmentResponse struct {
	ID               string               `json:"id"`
	OfficeActionID   string               `json:"office_action_id"`
	ProjectID        string               `json:"project_id"`
	TenantID         string               `json:"tenant_id"`
	Status           Status               `json:"status"`
	Strategy         rejections.Strategy  `json:"strategy"`
	ClaimAmendments  []ClaimAmendment     `json:"claim_amendments"`
	ArgumentSections []ArgumentSection    `json:"argument_sections"`
	DocumentBlobName string               `json:"document_blob_name,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

// Transition validates and applies a status change.
func (r *AmendmentResponse) Transition(to Status) error {
	if !CanTransition(r.Status, to) {
		return fmt.Errorf("invalid status transition %s -> %s", r.Status, to)
	}
	if to == StatusComplete && len(r.ClaimAmendments) == 0 && len(r.ArgumentSections) == 0 {
		return fmt.Errorf("cannot complete an amendment response with no claim amendments or argument sections")
	}
	r.Status = to
	r.UpdatedAt = time.Now().UTC()
	return nil
}
