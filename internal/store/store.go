package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/joelkehle/oa-response/internal/amendment"
	"github.com/joelkehle/oa-response/internal/apperr"
	"github.com/joelkehle/oa-response/internal/officeaction"
	"github.com/joelkehle/oa-response/internal/rejections"
)

// Store is the tenant-scoped repository layer. Every query carries a
// tenant_id filter; a row belonging to another tenant looks exactly like a
// row that does not exist.
type Store struct {
	db *sqlx.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS office_actions (
	id                 TEXT PRIMARY KEY,
	tenant_id          TEXT NOT NULL,
	project_id         TEXT NOT NULL DEFAULT '',
	file_name          TEXT NOT NULL DEFAULT '',
	blob_name          TEXT NOT NULL DEFAULT '',
	extracted_text     TEXT NOT NULL DEFAULT '',
	extraction_method  TEXT NOT NULL DEFAULT '',
	document_type      TEXT NOT NULL DEFAULT '',
	examiner_name      TEXT NOT NULL DEFAULT '',
	application_number TEXT NOT NULL DEFAULT '',
	status             TEXT NOT NULL DEFAULT 'UPLOADED',
	mailing_date       TEXT NOT NULL DEFAULT '',
	cited_references   TEXT NOT NULL DEFAULT '[]',
	created_at         TEXT NOT NULL,
	updated_at         TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_office_actions_tenant ON office_actions (tenant_id, created_at);

CREATE TABLE IF NOT EXISTS rejections (
	id                    TEXT PRIMARY KEY,
	office_action_id      TEXT NOT NULL,
	tenant_id             TEXT NOT NULL,
	type                  TEXT NOT NULL,
	raw_type              TEXT NOT NULL DEFAULT '',
	category              TEXT NOT NULL DEFAULT '',
	claims                TEXT NOT NULL DEFAULT '[]',
	refs                  TEXT NOT NULL DEFAULT '[]',
	examiner_reasoning    TEXT NOT NULL DEFAULT '',
	reasoning_insights    TEXT NOT NULL DEFAULT '[]',
	span_start            INTEGER NOT NULL DEFAULT 0,
	span_end              INTEGER NOT NULL DEFAULT 0,
	confidence            REAL NOT NULL DEFAULT 0,
	requires_human_review INTEGER NOT NULL DEFAULT 0,
	position              INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_rejections_oa ON rejections (tenant_id, office_action_id, position);

CREATE TABLE IF NOT EXISTS analyses (
	id                   TEXT PRIMARY KEY,
	rejection_id         TEXT NOT NULL,
	office_action_id     TEXT NOT NULL,
	tenant_id            TEXT NOT NULL,
	strength             TEXT NOT NULL,
	raw_strength         TEXT NOT NULL DEFAULT '',
	confidence           REAL NOT NULL DEFAULT 0,
	missing_elements     TEXT NOT NULL DEFAULT '[]',
	weak_arguments       TEXT NOT NULL DEFAULT '[]',
	strategy             TEXT NOT NULL,
	raw_strategy         TEXT NOT NULL DEFAULT '',
	suggested_amendments TEXT NOT NULL DEFAULT '[]',
	talking_points       TEXT NOT NULL DEFAULT '[]',
	rationale            TEXT NOT NULL DEFAULT '',
	claim_chart          TEXT NOT NULL DEFAULT '[]',
	analyzed_at          TEXT NOT NULL,
	position             INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_analyses_oa ON analyses (tenant_id, office_action_id, position);

CREATE TABLE IF NOT EXISTS strategy_recommendations (
	office_action_id   TEXT PRIMARY KEY,
	tenant_id          TEXT NOT NULL,
	primary_strategy   TEXT NOT NULL,
	alternatives       TEXT NOT NULL DEFAULT '[]',
	confidence         REAL NOT NULL DEFAULT 0,
	reasoning          TEXT NOT NULL DEFAULT '',
	risk_level         TEXT NOT NULL DEFAULT '',
	key_considerations TEXT NOT NULL DEFAULT '[]',
	created_at         TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS amendment_responses (
	id                 TEXT PRIMARY KEY,
	office_action_id   TEXT NOT NULL,
	project_id         TEXT NOT NULL DEFAULT '',
	tenant_id          TEXT NOT NULL,
	status             TEXT NOT NULL,
	strategy           TEXT NOT NULL DEFAULT '',
	claim_amendments   TEXT NOT NULL DEFAULT '[]',
	argument_sections  TEXT NOT NULL DEFAULT '[]',
	document_blob_name TEXT NOT NULL DEFAULT '',
	created_at         TEXT NOT NULL,
	updated_at         TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_amendments_oa ON amendment_responses (tenant_id, office_action_id, created_at);
`

func Open(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func timeToString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func marshalJSON(v any) string {
	if v == nil {
		return "[]"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// --- office actions ---

func (s *Store) CreateOfficeAction(ctx context.Context, oa *officeaction.OfficeAction) error {
	if oa.ID == "" {
		oa.ID = uuid.NewString()
	}
	mailing := ""
	if oa.MailingDate != nil {
		mailing = oa.MailingDate.UTC().Format("2006-01-02")
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO office_actions
		(id, tenant_id, project_id, file_name, blob_name, extracted_text, extraction_method,
		 document_type, examiner_name, application_number, status, mailing_date, cited_references,
		 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		oa.ID, oa.TenantID, oa.ProjectID, oa.FileName, oa.BlobName, oa.ExtractedText, oa.ExtractionMethod,
		oa.DocumentType, oa.ExaminerName, oa.ApplicationNumber, oa.Status, mailing, marshalJSON(oa.CitedReferences),
		timeToString(oa.CreatedAt), timeToString(oa.UpdatedAt),
	)
	if err != nil {
		return apperr.Internal("persist office action: %v", err)
	}
	return nil
}

func (s *Store) GetOfficeAction(ctx context.Context, tenantID, id string) (*officeaction.OfficeAction, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, tenant_id, project_id, file_name, blob_name,
		extracted_text, extraction_method, document_type, examiner_name, application_number,
		status, mailing_date, cited_references, created_at, updated_at
		FROM office_actions WHERE id = ? AND tenant_id = ?`, id, tenantID)
	oa, err := scanOfficeAction(row)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("office action %s", id)
	}
	if err != nil {
		return nil, apperr.Internal("load office action: %v", err)
	}
	return oa, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOfficeAction(row rowScanner) (*officeaction.OfficeAction, error) {
	var oa officeaction.OfficeAction
	var mailing, cited, createdAt, updatedAt string
	err := row.Scan(&oa.ID, &oa.TenantID, &oa.ProjectID, &oa.FileName, &oa.BlobName,
		&oa.ExtractedText, &oa.ExtractionMethod, &oa.DocumentType, &oa.ExaminerName, &oa.ApplicationNumber,
		&oa.Status, &mailing, &cited, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if mailing != "" {
		if t, perr := time.Parse("2006-01-02", mailing); perr == nil {
			oa.MailingDate = &t
		}
	}
	_ = json.Unmarshal([]byte(cited), &oa.CitedReferences)
	oa.CreatedAt = parseTime(createdAt)
	oa.UpdatedAt = parseTime(updatedAt)
	return &oa, nil
}

func (s *Store) ListOfficeActions(ctx context.Context, tenantID string) ([]officeaction.OfficeAction, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, tenant_id, project_id, file_name, blob_name,
		extracted_text, extraction_method, document_type, examiner_name, application_number,
		status, mailing_date, cited_references, created_at, updated_at
		FROM office_actions WHERE tenant_id = ? ORDER BY created_at DESC`, tenantID)
	if err != nil {
		return nil, apperr.Internal("list office actions: %v", err)
	}
	defer rows.Close()
	out := []officeaction.OfficeAction{}
	for rows.Next() {
		oa, err := scanOfficeAction(rows)
		if err != nil {
			return nil, apperr.Internal("scan office action: %v", err)
		}
		out = append(out, *oa)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal("list office actions: %v", err)
	}
	return out, nil
}

// UpdateOfficeActionParseResult records parser-derived metadata and the
// PARSED status in one write.
func (s *Store) UpdateOfficeActionParseResult(ctx context.Context, tenantID, id, documentType, examinerName, applicationNumber string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE office_actions
		SET document_type = ?, examiner_name = ?, application_number = ?, status = ?, updated_at = ?
		WHERE id = ? AND tenant_id = ?`,
		documentType, examinerName, applicationNumber, officeaction.StatusParsed, timeToString(time.Now()), id, tenantID)
	if err != nil {
		return apperr.Internal("update office action: %v", err)
	}
	return requireRow(res, id)
}

func (s *Store) SetOfficeActionStatus(ctx context.Context, tenantID, id, status string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE office_actions SET status = ?, updated_at = ? WHERE id = ? AND tenant_id = ?`,
		status, timeToString(time.Now()), id, tenantID)
	if err != nil {
		return apperr.Internal("update office action status: %v", err)
	}
	return requireRow(res, id)
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Internal("rows affected: %v", err)
	}
	if n == 0 {
		return apperr.NotFound("office action %s", id)
	}
	return nil
}

// --- rejections ---

// ReplaceRejections swaps an office action's parsed rejections wholesale.
// Re-parse never merges with stale rows.
func (s *Store) ReplaceRejections(ctx context.Context, tenantID, officeActionID string, rejs []officeaction.ParsedRejection) error {
	if _, err := s.GetOfficeAction(ctx, tenantID, officeActionID); err != nil {
		return err
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperr.Internal("begin tx: %v", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM rejections WHERE office_action_id = ? AND tenant_id = ?`, officeActionID, tenantID); err != nil {
		return apperr.Internal("clear rejections: %v", err)
	}
	for i := range rejs {
		rej := &rejs[i]
		if rej.ID == "" {
			rej.ID = uuid.NewString()
		}
		rej.OfficeActionID = officeActionID
		if _, err := tx.ExecContext(ctx, `INSERT INTO rejections
			(id, office_action_id, tenant_id, type, raw_type, category, claims, refs,
			 examiner_reasoning, reasoning_insights, span_start, span_end, confidence, requires_human_review, position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rej.ID, officeActionID, tenantID, string(rej.Type), rej.RawType, rej.Category,
			marshalJSON(rej.Claims), marshalJSON(rej.References), rej.ExaminerReasoning,
			marshalJSON(rej.ReasoningInsights), rej.SpanStart, rej.SpanEnd, rej.Confidence,
			boolToInt(rej.RequiresHumanReview), i,
		); err != nil {
			return apperr.Internal("persist rejection: %v", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE office_actions SET status = ?, updated_at = ? WHERE id = ? AND tenant_id = ?`,
		officeaction.StatusParsed, timeToString(time.Now()), officeActionID, tenantID); err != nil {
		return apperr.Internal("update office action status: %v", err)
	}
	if err := tx.Commit(); err != nil {
		return apperr.Internal("commit rejections: %v", err)
	}
	return nil
}

func (s *Store) ListRejections(ctx context.Context, tenantID, officeActionID string) ([]officeaction.ParsedRejection, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, office_action_id, type, raw_type, category, claims, refs,
		examiner_reasoning, reasoning_insights, span_start, span_end, confidence, requires_human_review
		FROM rejections WHERE office_action_id = ? AND tenant_id = ? ORDER BY position`, officeActionID, tenantID)
	if err != nil {
		return nil, apperr.Internal("list rejections: %v", err)
	}
	defer rows.Close()
	out := []officeaction.ParsedRejection{}
	for rows.Next() {
		rej, err := scanRejection(rows)
		if err != nil {
			return nil, apperr.Internal("scan rejection: %v", err)
		}
		out = append(out, *rej)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal("list rejections: %v", err)
	}
	return out, nil
}

func (s *Store) GetRejection(ctx context.Context, tenantID, rejectionID string) (*officeaction.ParsedRejection, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, office_action_id, type, raw_type, category, claims, refs,
		examiner_reasoning, reasoning_insights, span_start, span_end, confidence, requires_human_review
		FROM rejections WHERE id = ? AND tenant_id = ?`, rejectionID, tenantID)
	rej, err := scanRejection(row)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("rejection %s", rejectionID)
	}
	if err != nil {
		return nil, apperr.Internal("load rejection: %v", err)
	}
	return rej, nil
}

func scanRejection(row rowScanner) (*officeaction.ParsedRejection, error) {
	var rej officeaction.ParsedRejection
	var typ, claims, refs, insights string
	var review int
	err := row.Scan(&rej.ID, &rej.OfficeActionID, &typ, &rej.RawType, &rej.Category, &claims, &refs,
		&rej.ExaminerReasoning, &insights, &rej.SpanStart, &rej.SpanEnd, &rej.Confidence, &review)
	if err != nil {
		return nil, err
	}
	rej.Type = officeaction.StatutoryType(typ)
	_ = json.Unmarshal([]byte(claims), &rej.Claims)
	_ = json.Unmarshal([]byte(refs), &rej.References)
	_ = json.Unmarshal([]byte(insights), &rej.ReasoningInsights)
	rej.RequiresHumanReview = review != 0
	return &rej, nil
}

// --- analyses ---

// ReplaceAnalyses persists a full analysis batch: per-rejection analyses
// plus the overall recommendation, replacing any prior run.
func (s *Store) ReplaceAnalyses(ctx context.Context, tenantID, officeActionID string, analyses []rejections.RejectionAnalysis, overall rejections.StrategyRecommendation) error {
	if _, err := s.GetOfficeAction(ctx, tenantID, officeActionID); err != nil {
		return err
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperr.Internal("begin tx: %v", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM analyses WHERE office_action_id = ? AND tenant_id = ?`, officeActionID, tenantID); err != nil {
		return apperr.Internal("clear analyses: %v", err)
	}
	for i, an := range analyses {
		if _, err := tx.ExecContext(ctx, `INSERT INTO analyses
			(id, rejection_id, office_action_id, tenant_id, strength, raw_strength, confidence,
			 missing_elements, weak_arguments, strategy, raw_strategy, suggested_amendments,
			 talking_points, rationale, claim_chart, analyzed_at, position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), an.RejectionID, officeActionID, tenantID, string(an.Strength), an.RawStrength, an.Confidence,
			marshalJSON(an.MissingElements), marshalJSON(an.WeakArguments), string(an.Strategy), an.RawStrategy,
			marshalJSON(an.SuggestedAmendments), marshalJSON(an.TalkingPoints), an.Rationale,
			marshalJSON(an.ClaimChart), timeToString(an.AnalyzedAt), i,
		); err != nil {
			return apperr.Internal("persist analysis: %v", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO strategy_recommendations
		(office_action_id, tenant_id, primary_strategy, alternatives, confidence, reasoning, risk_level, key_considerations, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		officeActionID, tenantID, string(overall.Primary), marshalJSON(overall.Alternatives), overall.Confidence,
		overall.Reasoning, string(overall.RiskLevel), marshalJSON(overall.KeyConsiderations), timeToString(time.Now()),
	); err != nil {
		return apperr.Internal("persist recommendation: %v", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE office_actions SET status = ?, updated_at = ? WHERE id = ? AND tenant_id = ?`,
		officeaction.StatusAnalyzed, timeToString(time.Now()), officeActionID, tenantID); err != nil {
		return apperr.Internal("update office action status: %v", err)
	}
	if err := tx.Commit(); err != nil {
		return apperr.Internal("commit analyses: %v", err)
	}
	return nil
}

// ReplaceAnalysis supersedes the stored analysis for one rejection. Same
// policy as the batch path, scoped to a single row: the prior analysis is
// removed, never merged. A rejection analyzed for the first time is
// appended after the existing rows.
func (s *Store) ReplaceAnalysis(ctx context.Context, tenantID, officeActionID string, an rejections.RejectionAnalysis) error {
	if _, err := s.GetOfficeAction(ctx, tenantID, officeActionID); err != nil {
		return err
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperr.Internal("begin tx: %v", err)
	}
	defer tx.Rollback()

	var position int
	err = tx.GetContext(ctx, &position, `SELECT position FROM analyses WHERE rejection_id = ? AND tenant_id = ?`,
		an.RejectionID, tenantID)
	switch {
	case err == sql.ErrNoRows:
		if err := tx.GetContext(ctx, &position, `SELECT COUNT(*) FROM analyses WHERE office_action_id = ? AND tenant_id = ?`,
			officeActionID, tenantID); err != nil {
			return apperr.Internal("count analyses: %v", err)
		}
	case err != nil:
		return apperr.Internal("find analysis: %v", err)
	default:
		if _, err := tx.ExecContext(ctx, `DELETE FROM analyses WHERE rejection_id = ? AND tenant_id = ?`,
			an.RejectionID, tenantID); err != nil {
			return apperr.Internal("clear analysis: %v", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO analyses
		(id, rejection_id, office_action_id, tenant_id, strength, raw_strength, confidence,
		 missing_elements, weak_arguments, strategy, raw_strategy, suggested_amendments,
		 talking_points, rationale, claim_chart, analyzed_at, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), an.RejectionID, officeActionID, tenantID, string(an.Strength), an.RawStrength, an.Confidence,
		marshalJSON(an.MissingElements), marshalJSON(an.WeakArguments), string(an.Strategy), an.RawStrategy,
		marshalJSON(an.SuggestedAmendments), marshalJSON(an.TalkingPoints), an.Rationale,
		marshalJSON(an.ClaimChart), timeToString(an.AnalyzedAt), position,
	); err != nil {
		return apperr.Internal("persist analysis: %v", err)
	}
	if err := tx.Commit(); err != nil {
		return apperr.Internal("commit analysis: %v", err)
	}
	return nil
}

func (s *Store) ListAnalyses(ctx context.Context, tenantID, officeActionID string) ([]rejections.RejectionAnalysis, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT rejection_id, strength, raw_strength, confidence,
		missing_elements, weak_arguments, strategy, raw_strategy, suggested_amendments,
		talking_points, rationale, claim_chart, analyzed_at
		FROM analyses WHERE office_action_id = ? AND tenant_id = ? ORDER BY position`, officeActionID, tenantID)
	if err != nil {
		return nil, apperr.Internal("list analyses: %v", err)
	}
	defer rows.Close()
	out := []rejections.RejectionAnalysis{}
	for rows.Next() {
		var an rejections.RejectionAnalysis
		var strength, strategy, missing, weak, suggested, talking, chart, analyzedAt string
		if err := rows.Scan(&an.RejectionID, &strength, &an.RawStrength, &an.Confidence,
			&missing, &weak, &strategy, &an.RawStrategy, &suggested,
			&talking, &an.Rationale, &chart, &analyzedAt); err != nil {
			return nil, apperr.Internal("scan analysis: %v", err)
		}
		an.Strength = rejections.Strength(strength)
		an.Strategy = rejections.Strategy(strategy)
		_ = json.Unmarshal([]byte(missing), &an.MissingElements)
		_ = json.Unmarshal([]byte(weak), &an.WeakArguments)
		_ = json.Unmarshal([]byte(suggested), &an.SuggestedAmendments)
		_ = json.Unmarshal([]byte(talking), &an.TalkingPoints)
		_ = json.Unmarshal([]byte(chart), &an.ClaimChart)
		an.AnalyzedAt = parseTime(analyzedAt)
		out = append(out, an)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal("list analyses: %v", err)
	}
	return out, nil
}

func (s *Store) GetRecommendation(ctx context.Context, tenantID, officeActionID string) (*rejections.StrategyRecommendation, error) {
	row := s.db.QueryRowContext(ctx, `SELECT primary_strategy, alternatives, confidence, reasoning, risk_level, key_considerations
		FROM strategy_recommendations WHERE office_action_id = ? AND tenant_id = ?`, officeActionID, tenantID)
	var rec rejections.StrategyRecommendation
	var primary, alternatives, risk, considerations string
	err := row.Scan(&primary, &alternatives, &rec.Confidence, &rec.Reasoning, &risk, &considerations)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("strategy recommendation for office action %s", officeActionID)
	}
	if err != nil {
		return nil, apperr.Internal("load recommendation: %v", err)
	}
	rec.Primary = rejections.Strategy(primary)
	rec.RiskLevel = rejections.RiskLevel(risk)
	_ = json.Unmarshal([]byte(alternatives), &rec.Alternatives)
	_ = json.Unmarshal([]byte(considerations), &rec.KeyConsiderations)
	return &rec, nil
}

// --- amendment responses ---

func (s *Store) SaveAmendmentResponse(ctx context.Context, resp *amendment.AmendmentResponse) error {
	if resp.ID == "" {
		resp.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO amendment_responses
		(id, office_action_id, project_id, tenant_id, status, strategy, claim_amendments, argument_sections,
		 document_blob_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		resp.ID, resp.OfficeActionID, resp.ProjectID, resp.TenantID, string(resp.Status), string(resp.Strategy),
		marshalJSON(resp.ClaimAmendments), marshalJSON(resp.ArgumentSections),
		resp.DocumentBlobName, timeToString(resp.CreatedAt), timeToString(resp.UpdatedAt),
	)
	if err != nil {
		return apperr.Internal("persist amendment response: %v", err)
	}
	return nil
}

func (s *Store) GetAmendmentResponse(ctx context.Context, tenantID, id string) (*amendment.AmendmentResponse, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, office_action_id, project_id, tenant_id, status, strategy,
		claim_amendments, argument_sections, document_blob_name, created_at, updated_at
		FROM amendment_responses WHERE id = ? AND tenant_id = ?`, id, tenantID)
	resp, err := scanAmendment(row)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("amendment response %s", id)
	}
	if err != nil {
		return nil, apperr.Internal("load amendment response: %v", err)
	}
	return resp, nil
}

// LatestAmendmentForOfficeAction returns the most recent response for an
// office action, or not_found when none exists.
func (s *Store) LatestAmendmentForOfficeAction(ctx context.Context, tenantID, officeActionID string) (*amendment.AmendmentResponse, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, office_action_id, project_id, tenant_id, status, strategy,
		claim_amendments, argument_sections, document_blob_name, created_at, updated_at
		FROM amendment_responses WHERE office_action_id = ? AND tenant_id = ?
		ORDER BY created_at DESC LIMIT 1`, officeActionID, tenantID)
	resp, err := scanAmendment(row)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("amendment response for office action %s", officeActionID)
	}
	if err != nil {
		return nil, apperr.Internal("load amendment response: %v", err)
	}
	return resp, nil
}

func scanAmendment(row rowScanner) (*amendment.AmendmentResponse, error) {
	var resp amendment.AmendmentResponse
	var status, strategy, claims, sections, createdAt, updatedAt string
	err := row.Scan(&resp.ID, &resp.OfficeActionID, &resp.ProjectID, &resp.TenantID, &status, &strategy,
		&claims, &sections, &resp.DocumentBlobName, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	resp.Status = amendment.Status(status)
	resp.Strategy = rejections.Strategy(strategy)
	_ = json.Unmarshal([]byte(claims), &resp.ClaimAmendments)
	_ = json.Unmarshal([]byte(sections), &resp.ArgumentSections)
	resp.CreatedAt = parseTime(createdAt)
	resp.UpdatedAt = parseTime(updatedAt)
	return &resp, nil
}

// SetAmendmentBlob records the blob written by an export. Blobs are
// immutable; re-export writes a new name rather than overwriting.
func (s *Store) SetAmendmentBlob(ctx context.Context, tenantID, id, blobName string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE amendment_responses SET document_blob_name = ?, updated_at = ?
		WHERE id = ? AND tenant_id = ?`, blobName, timeToString(time.Now()), id, tenantID)
	if err != nil {
		return apperr.Internal("update amendment blob: %v", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Internal("rows affected: %v", err)
	}
	if n == 0 {
		return apperr.NotFound("amendment response %s", id)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
