package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"hireflow/internal/common"
	"hireflow/internal/domain/application"
)

const applicationColumns = `id, job_id, job_title, employment_type, first_name, last_name, email, phone, cover_letter, resume_url,
	status, onboarding_status, screening_answers, tags, rating, notes, metadata,
	shortlist, document_request, offer, attachments, timeline, email_logs, processed_by, version, created_at, updated_at`

const uniqueViolation = "23505"

type ApplicationRepository struct {
	db *sql.DB
}

func NewApplicationRepository(db *sql.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

func (r *ApplicationRepository) Create(ctx context.Context, app application.Application) (*application.Application, error) {
	if app.ID == "" {
		app.ID = common.NewUUID()
	}
	if app.Status == "" {
		app.Status = application.StatusNew
	}
	now := time.Now().UTC()
	app.CreatedAt = now
	app.UpdatedAt = now
	app.Version = 1
	docs, err := encodeDocuments(app)
	if err != nil {
		return nil, err
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO applications (`+applicationColumns+`, shortlist_token, document_request_token, offer_token)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30)`,
		app.ID, app.JobID, app.JobTitle, app.EmploymentType, app.FirstName, app.LastName, app.Email, app.Phone, app.CoverLetter, app.ResumeURL,
		app.Status, app.OnboardingStatus, docs.screening, pq.Array(app.Tags), app.Rating, app.Notes, docs.metadata,
		docs.shortlist, docs.documentRequest, docs.offer, docs.attachments, docs.timeline, docs.emailLogs, app.ProcessedBy, app.Version, app.CreatedAt, app.UpdatedAt,
		nullableToken(app.Shortlist.Token), nullableToken(app.DocumentRequest.Token), nullableToken(app.Offer.Token))
	if err != nil {
		return nil, mapWriteError(err, "failed to create application")
	}
	return &app, nil
}

func (r *ApplicationRepository) GetByID(ctx context.Context, id common.UUID) (*application.Application, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id)
	app, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewError(common.CodeNotFound, "application not found", err)
		}
		return nil, common.NewError(common.CodeInternal, "failed to load application", err)
	}
	return app, nil
}

func (r *ApplicationRepository) FindByToken(ctx context.Context, stage application.StageKind, token string) (*application.Application, error) {
	column, err := tokenColumn(stage)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, common.NewError(common.CodeNotFound, "token not found", nil)
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+applicationColumns+` FROM applications WHERE `+column+` = $1`, token)
	app, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewError(common.CodeNotFound, "token not found", err)
		}
		return nil, common.NewError(common.CodeInternal, "failed to resolve token", err)
	}
	return app, nil
}

func (r *ApplicationRepository) List(ctx context.Context, filter application.Filter) ([]application.Application, int, error) {
	where, args := buildFilter(filter, true)
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM applications`+where, args...).Scan(&total); err != nil {
		return nil, 0, common.NewError(common.CodeInternal, "failed to count applications", err)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf(`SELECT %s FROM applications%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, applicationColumns, where, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, filter.Offset)...)
	if err != nil {
		return nil, 0, common.NewError(common.CodeInternal, "failed to list applications", err)
	}
	defer rows.Close()
	items := make([]application.Application, 0, limit)
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, 0, common.NewError(common.CodeInternal, "failed to scan application", err)
		}
		items = append(items, *app)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, common.NewError(common.CodeInternal, "failed to list applications", err)
	}
	return items, total, nil
}

func (r *ApplicationRepository) CountByStatus(ctx context.Context, filter application.Filter) (map[application.Status]int, error) {
	where, args := buildFilter(filter, false)
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM applications`+where+` GROUP BY status`, args...)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to count statuses", err)
	}
	defer rows.Close()
	counts := make(map[application.Status]int)
	for rows.Next() {
		var status application.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, common.NewError(common.CodeInternal, "failed to scan status count", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (r *ApplicationRepository) TopJobs(ctx context.Context, filter application.Filter, limit int) ([]application.JobCount, error) {
	where, args := buildFilter(filter, true)
	query := fmt.Sprintf(`SELECT job_id, MAX(job_title), COUNT(*) AS total FROM applications%s
		GROUP BY job_id ORDER BY total DESC, MAX(job_title) ASC LIMIT $%d`, where, len(args)+1)
	rows, err := r.db.QueryContext(ctx, query, append(args, limit)...)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to aggregate jobs", err)
	}
	defer rows.Close()
	var items []application.JobCount
	for rows.Next() {
		var item application.JobCount
		if err := rows.Scan(&item.JobID, &item.JobTitle, &item.Count); err != nil {
			return nil, common.NewError(common.CodeInternal, "failed to scan job count", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *ApplicationRepository) Update(ctx context.Context, app application.Application) (*application.Application, error) {
	docs, err := encodeDocuments(app)
	if err != nil {
		return nil, err
	}
	updatedAt := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `UPDATE applications SET
		status = $1, onboarding_status = $2, tags = $3, rating = $4, notes = $5, metadata = $6,
		shortlist = $7, shortlist_token = $8, document_request = $9, document_request_token = $10,
		offer = $11, offer_token = $12, attachments = $13, timeline = $14, email_logs = $15,
		processed_by = $16, version = version + 1, updated_at = $17
		WHERE id = $18 AND version = $19`,
		app.Status, app.OnboardingStatus, pq.Array(app.Tags), app.Rating, app.Notes, docs.metadata,
		docs.shortlist, nullableToken(app.Shortlist.Token), docs.documentRequest, nullableToken(app.DocumentRequest.Token),
		docs.offer, nullableToken(app.Offer.Token), docs.attachments, docs.timeline, docs.emailLogs,
		app.ProcessedBy, updatedAt, app.ID, app.Version)
	if err != nil {
		return nil, mapWriteError(err, "failed to update application")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to update application", err)
	}
	if affected == 0 {
		if _, err := r.GetByID(ctx, app.ID); err != nil {
			return nil, err
		}
		return nil, common.NewError(common.CodeConflict, "application was modified concurrently", nil)
	}
	app.Version++
	app.UpdatedAt = updatedAt
	return &app, nil
}

func (r *ApplicationRepository) Delete(ctx context.Context, id common.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM applications WHERE id = $1`, id)
	if err != nil {
		return common.NewError(common.CodeInternal, "failed to delete application", err)
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return common.NewError(common.CodeNotFound, "application not found", sql.ErrNoRows)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (*application.Application, error) {
	var app application.Application
	var screening, metadata, shortlist, documentRequest, offer, attachments, timeline, emailLogs []byte
	var processedBy sql.NullString
	if err := row.Scan(&app.ID, &app.JobID, &app.JobTitle, &app.EmploymentType, &app.FirstName, &app.LastName, &app.Email, &app.Phone, &app.CoverLetter, &app.ResumeURL,
		&app.Status, &app.OnboardingStatus, &screening, pq.Array(&app.Tags), &app.Rating, &app.Notes, &metadata,
		&shortlist, &documentRequest, &offer, &attachments, &timeline, &emailLogs, &processedBy, &app.Version, &app.CreatedAt, &app.UpdatedAt); err != nil {
		return nil, err
	}
	decoders := []struct {
		raw    []byte
		target any
	}{
		{screening, &app.ScreeningAnswers},
		{metadata, &app.Metadata},
		{shortlist, &app.Shortlist},
		{documentRequest, &app.DocumentRequest},
		{offer, &app.Offer},
		{attachments, &app.Attachments},
		{timeline, &app.Timeline},
		{emailLogs, &app.EmailLogs},
	}
	for _, d := range decoders {
		if len(d.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(d.raw, d.target); err != nil {
			return nil, fmt.Errorf("decode application %s: %w", app.ID, err)
		}
	}
	if processedBy.Valid {
		id := common.UUID(processedBy.String)
		app.ProcessedBy = &id
	}
	if status, ok := application.ParseStatus(string(app.Status)); ok {
		app.Status = status
	}
	return &app, nil
}

type encodedDocuments struct {
	screening       []byte
	metadata        []byte
	shortlist       []byte
	documentRequest []byte
	offer           []byte
	attachments     []byte
	timeline        []byte
	emailLogs       []byte
}

func encodeDocuments(app application.Application) (encodedDocuments, error) {
	var docs encodedDocuments
	targets := []struct {
		value any
		dest  *[]byte
	}{
		{nonNil(app.ScreeningAnswers), &docs.screening},
		{nonNilMap(app.Metadata), &docs.metadata},
		{app.Shortlist, &docs.shortlist},
		{app.DocumentRequest, &docs.documentRequest},
		{app.Offer, &docs.offer},
		{nonNil(app.Attachments), &docs.attachments},
		{nonNil(app.Timeline), &docs.timeline},
		{nonNil(app.EmailLogs), &docs.emailLogs},
	}
	for _, t := range targets {
		raw, err := json.Marshal(t.value)
		if err != nil {
			return docs, common.NewError(common.CodeInternal, "failed to encode application", err)
		}
		*t.dest = raw
	}
	return docs, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func nonNilMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func nullableToken(token string) sql.NullString {
	return sql.NullString{String: token, Valid: token != ""}
}

func tokenColumn(stage application.StageKind) (string, error) {
	switch stage {
	case application.StageShortlist:
		return "shortlist_token", nil
	case application.StageDocuments:
		return "document_request_token", nil
	case application.StageOffer:
		return "offer_token", nil
	default:
		return "", common.NewError(common.CodeValidation, "unknown stage", nil)
	}
}

func buildFilter(filter application.Filter, withStatus bool) (string, []any) {
	var clauses []string
	var args []any
	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if filter.JobID != "" {
		add("job_id = $%d", filter.JobID)
	}
	if withStatus && filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		add("(first_name || ' ' || last_name || ' ' || email) ILIKE $%d", "%"+search+"%")
	}
	if filter.From != nil {
		add("created_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("created_at <= $%d", *filter.To)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func mapWriteError(err error, message string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return common.NewError(common.CodeConflict, "stage token already in use", fmt.Errorf("%w: %w", application.ErrTokenInUse, err))
	}
	return common.NewError(common.CodeInternal, message, err)
}
