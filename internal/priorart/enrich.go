package priorart

import (
	"context"
	"log"
	"time"
)

// DefaultStagger spaces batch lookups so N references do not burst the
// external API at once.
const DefaultStagger = 300 * time.Millisecond

// Lookup is the single-reference resolution interface used by the
// enricher; *Client satisfies it.
type Lookup interface {
	LookupByNumber(ctx context.Context, number string) (*Reference, error)
}

type Enricher struct {
	lookup  Lookup
	stagger time.Duration
}

func NewEnricher(lookup Lookup, stagger time.Duration) *Enricher {
	if stagger <= 0 {
		stagger = DefaultStagger
	}
	return &Enricher{lookup: lookup, stagger: stagger}
}

// Enrich resolves one free-form reference, trying each candidate format in
// order. Lookup failure is non-fatal: the caller always gets a Reference,
// with placeholder bibliographic fields when nothing resolved.
func (e *Enricher) Enrich(ctx context.Context, raw string) Reference {
	for _, candidate := range GenerateReferenceFormats(raw) {
		ref, err := e.lookup.LookupByNumber(ctx, candidate)
		if err != nil {
			if err == ErrNoResult {
				continue
			}
			log.Printf("prior-art lookup failed reference=%q format=%q err=%v", raw, candidate, err)
			continue
		}
		ref.Identifier = raw
		return *ref
	}
	log.Printf("prior-art lookup exhausted all formats reference=%q", raw)
	return Reference{
		Identifier:      raw,
		Title:           NotAvailable,
		Abstract:        NotAvailable,
		PublicationDate: "",
		Assignee:        NotAvailable,
	}
}

// EnrichAll resolves a batch with a fixed inter-request stagger. One bad
// lookup never fails the batch; its slot carries the placeholder instead.
func (e *Enricher) EnrichAll(ctx context.Context, refs []string) ([]Reference, error) {
	out := make([]Reference, 0, len(refs))
	for i, raw := range refs {
		if i > 0 {
			if err := sleepCtx(ctx, e.stagger); err != nil {
				return out, err
			}
		}
		out = append(out, e.Enrich(ctx, raw))
	}
	return out, nil
}
