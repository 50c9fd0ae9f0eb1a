package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/readshelf/internal/core/domain"
)

const uniqueViolationCode = "23505"

const documentColumns = `id, url, raw_content, clean_content, title, author, publish_date, source, content_type,
	primary_category, reading_time, word_count, character_count, reading_status, created_at, updated_at`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101701)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	url TEXT NOT NULL UNIQUE,
	raw_content TEXT NOT NULL,
	clean_content TEXT NOT NULL,
	title TEXT NOT NULL,
	author TEXT NOT NULL DEFAULT '',
	publish_date TIMESTAMPTZ,
	source TEXT NOT NULL,
	content_type TEXT NOT NULL,
	primary_category TEXT NOT NULL DEFAULT '',
	reading_time INTEGER NOT NULL DEFAULT 0,
	word_count INTEGER NOT NULL DEFAULT 0,
	character_count INTEGER NOT NULL DEFAULT 0,
	reading_status TEXT NOT NULL DEFAULT 'UNREAD',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_reading_status ON documents(reading_status);
CREATE INDEX IF NOT EXISTS idx_documents_content_type ON documents(content_type);
CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	var publishDate any
	if doc.Metadata.PublishDate != nil {
		publishDate = *doc.Metadata.PublishDate
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO documents (
	id, url, raw_content, clean_content, title, author, publish_date, source, content_type,
	primary_category, reading_time, word_count, character_count, reading_status, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
`,
		doc.ID, doc.URL, doc.RawContent, doc.CleanContent, doc.Metadata.Title, doc.Metadata.Author, publishDate,
		doc.Metadata.Source, doc.Metadata.ContentType, doc.Metadata.PrimaryCategory, doc.Metadata.ReadingTime,
		doc.Metadata.WordCount, doc.Metadata.CharacterCount, string(doc.ReadingStatus), doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.WrapError(domain.ErrDuplicateKey, "insert document", err)
		}
		return domain.WrapError(domain.ErrStorage, "insert document", err)
	}
	return nil
}

func (r *DocumentRepository) FindByURL(ctx context.Context, url string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE url = $1`, url)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, domain.WrapError(domain.ErrStorage, "find document by url", err)
	}
	return doc, nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id %s", id))
		}
		return nil, domain.WrapError(domain.ErrStorage, "get document", err)
	}
	return doc, nil
}

func (r *DocumentRepository) List(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	query := psql.Select(documentColumns).From("documents").OrderBy("created_at DESC", "id")
	if v := strings.TrimSpace(filter.ContentType); v != "" {
		query = query.Where(sq.Eq{"content_type": v})
	}
	if v := strings.TrimSpace(filter.PrimaryCategory); v != "" {
		query = query.Where(sq.Eq{"primary_category": v})
	}
	if filter.ReadingStatus != "" {
		query = query.Where(sq.Eq{"reading_status": string(filter.ReadingStatus)})
	}

	sqlText, args, err := query.ToSql()
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "build list query", err)
	}
	rows, err := r.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "list documents", err)
	}
	defer rows.Close()

	docs := make([]domain.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, domain.WrapError(domain.ErrStorage, "scan document", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "iterate documents", err)
	}
	return docs, nil
}

func (r *DocumentRepository) UpdateReadingStatus(ctx context.Context, id string, status domain.ReadingStatus) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
UPDATE documents
SET reading_status = $2, updated_at = $3
WHERE id = $1
RETURNING `+documentColumns, id, string(status), time.Now().UTC())

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "update reading status", fmt.Errorf("id %s", id))
		}
		return nil, domain.WrapError(domain.ErrStorage, "update reading status", err)
	}
	return doc, nil
}

func (r *DocumentRepository) DeleteByURL(ctx context.Context, url string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE url = $1`, url)
	if err != nil {
		return domain.WrapError(domain.ErrStorage, "delete document", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return domain.WrapError(domain.ErrStorage, "delete document rows affected", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, "delete document", fmt.Errorf("url %s", url))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var publishDate sql.NullTime
	var status string

	err := row.Scan(
		&doc.ID, &doc.URL, &doc.RawContent, &doc.CleanContent, &doc.Metadata.Title, &doc.Metadata.Author,
		&publishDate, &doc.Metadata.Source, &doc.Metadata.ContentType, &doc.Metadata.PrimaryCategory,
		&doc.Metadata.ReadingTime, &doc.Metadata.WordCount, &doc.Metadata.CharacterCount, &status,
		&doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if publishDate.Valid {
		published := publishDate.Time.UTC()
		doc.Metadata.PublishDate = &published
	}
	doc.ReadingStatus = domain.ReadingStatus(status)
	return &doc, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
