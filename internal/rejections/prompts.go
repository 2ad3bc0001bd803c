package rejections

const parsePromptContext = `An office action is a USPTO examiner document rejecting or objecting to
patent claims. Each discrete rejection cites a statutory basis:

- § 101: subject-matter eligibility
- § 102: anticipation by a single prior-art reference
- § 103: obviousness over one or more references
- § 112: written description, enablement, or indefiniteness

Split the document into discrete examiner rejections. For each one report
the statutory basis, the affected claim numbers, the prior-art references
cited (as the examiner names them, e.g. "US 9,876,543 B2" or "Smith"),
the examiner's reasoning, and the character offsets of the rejection's
source text within the document.`

const parseSchemaPrompt = `Required JSON schema:
{
  "document_type": "string (e.g. NON_FINAL_REJECTION | FINAL_REJECTION | ADVISORY_ACTION | OTHER)",
  "examiner_name": "string or empty",
  "application_number": "string or empty",
  "rejections": [
    {
      "type": "string (statutory basis as stated by the examiner)",
      "category": "string (short free-text label, e.g. 'obviousness over Smith in view of Jones')",
      "claims": [int],
      "references": ["string"],
      "examiner_reasoning": "string",
      "reasoning_insights": ["string (key points extracted from the reasoning)"],
      "span_start": "int (character offset into the document text)",
      "span_end": "int",
      "confidence": "float (0.0-1.0)"
    }
  ]
}`

const analyzePromptContext = `Assess one examiner rejection for a practitioner drafting a response.

Strength bands:
- STRONG: the rejection is well supported; arguing alone is unlikely to succeed
- MODERATE: partially supported; a combination of argument and amendment is viable
- WEAK: reasoning has identifiable gaps a response can exploit
- FLAWED: the rejection misreads the claims or the reference

Response strategies:
- AMEND_CLAIMS: amend the rejected claims to distinguish the art
- ARGUE_REJECTION: traverse the rejection without amendment
- COMBINATION: amend some claims and argue others`

const analyzeSchemaPrompt = `Required JSON schema:
{
  "strength": "STRONG | MODERATE | WEAK | FLAWED",
  "confidence": "float (0.0-1.0)",
  "missing_elements": ["string (claim elements the cited art does not disclose)"],
  "weak_arguments": ["string (weaknesses in the examiner's reasoning)"],
  "strategy": "AMEND_CLAIMS | ARGUE_REJECTION | COMBINATION",
  "suggested_amendments": ["string"],
  "talking_points": ["string"],
  "rationale": "string (min 20 chars)"
}`

const claimChartSchemaPrompt = `Additionally include:
  "claim_chart": [
    {
      "element": "string (one claim element)",
      "disclosure": "string (where the reference discloses it, or empty)",
      "disclosed": "boolean",
      "notes": "string"
    }
  ]`

const overallSchemaPrompt = `Required JSON schema:
{
  "primary": "AMEND_CLAIMS | ARGUE_REJECTION | COMBINATION",
  "alternatives": ["AMEND_CLAIMS | ARGUE_REJECTION | COMBINATION (ranked, excluding primary)"],
  "confidence": "float (0.0-1.0)",
  "reasoning": "string (min 50 chars)",
  "risk_level": "LOW | MEDIUM | HIGH",
  "key_considerations": ["string (1-10 entries)"]
}`
