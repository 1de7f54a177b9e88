package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/config"
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/model"
)

const (
	tablePitches = "pitches"
	tableDemos   = "demos"
)

var pitchColumns = []string{
	"id",
	"startup_name",
	"one_liner",
	"category",
	"problem_statement",
	"product_url",
	"is_product_live",
	"product_stage",
	"founder_id",
	"quality_score",
	"flags",
	"review_status",
	"is_published",
	"rejection_reason",
	"review_notes",
	"reviewed_at",
	"created_at",
}

var demoColumns = []string{
	"id",
	"pitch_id",
	"title",
	"description",
	"video_url",
	"thumbnail_url",
	"duration_seconds",
}

// SQLStore stores pitches in PostgreSQL or SQLite.
type SQLStore struct {
	db      *sql.DB
	dialect string
}

// Ensure SQLStore implements PitchStore
var _ PitchStore = (*SQLStore)(nil)

// NewStorage opens the database configured by cfg.Driver and creates the schema.
func NewStorage(cfg config.DBConfig) (*SQLStore, error) {
	switch cfg.Driver {
	case "", "postgres":
		connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name)
		return open("postgres", connStr, dialect.Postgres)
	case "sqlite":
		if strings.TrimSpace(cfg.Path) == "" {
			return nil, fmt.Errorf("sqlite path is required")
		}
		dsn := filepath.Clean(cfg.Path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
		return open("sqlite", dsn, dialect.SQLite)
	default:
		return nil, fmt.Errorf("unknown database driver: %s", cfg.Driver)
	}
}

func open(driver, dsn, d string) (*SQLStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLStore{db: db, dialect: d}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS pitches (
			id TEXT PRIMARY KEY,
			startup_name TEXT NOT NULL DEFAULT '',
			one_liner TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT 'Other',
			problem_statement TEXT NOT NULL DEFAULT '',
			product_url TEXT NOT NULL DEFAULT '',
			is_product_live BOOLEAN NOT NULL DEFAULT FALSE,
			product_stage TEXT NOT NULL DEFAULT '',
			founder_id TEXT NOT NULL DEFAULT '',
			quality_score INTEGER NOT NULL DEFAULT 0,
			flags TEXT NOT NULL DEFAULT '[]',
			review_status TEXT NOT NULL DEFAULT 'pending',
			is_published BOOLEAN NOT NULL DEFAULT FALSE,
			rejection_reason TEXT,
			review_notes TEXT,
			reviewed_at BIGINT,
			created_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pitches_review_status ON pitches (review_status, created_at)`,
		`CREATE TABLE IF NOT EXISTS demos (
			id TEXT PRIMARY KEY,
			pitch_id TEXT NOT NULL REFERENCES pitches(id),
			title TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			video_url TEXT NOT NULL DEFAULT '',
			thumbnail_url TEXT NOT NULL DEFAULT '',
			duration_seconds INTEGER NOT NULL DEFAULT 0,
			created_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_demos_pitch_id ON demos (pitch_id)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query %s: %w", query, err)
		}
	}
	return nil
}

func (s *SQLStore) builder() *entsql.DialectBuilder {
	return entsql.Dialect(s.dialect)
}

func (s *SQLStore) GetPitch(ctx context.Context, id string) (*model.Pitch, error) {
	query, args := s.builder().
		Select(pitchColumns...).
		From(entsql.Table(tablePitches)).
		Where(entsql.EQ("id", id)).
		Query()

	var (
		p          model.Pitch
		flags      string
		status     string
		reason     sql.NullString
		notes      sql.NullString
		reviewedAt sql.NullInt64
		createdAt  int64
	)
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&p.ID,
		&p.StartupName,
		&p.OneLiner,
		&p.Category,
		&p.ProblemStatement,
		&p.ProductURL,
		&p.IsProductLive,
		&p.ProductStage,
		&p.FounderID,
		&p.QualityScore,
		&flags,
		&status,
		&p.IsPublished,
		&reason,
		&notes,
		&reviewedAt,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query pitch: %w", err)
	}

	if err := json.Unmarshal([]byte(flags), &p.Flags); err != nil {
		return nil, fmt.Errorf("failed to decode flags: %w", err)
	}
	if notes.Valid && notes.String != "" {
		p.ReviewNotes = &model.ReviewNotes{}
		if err := json.Unmarshal([]byte(notes.String), p.ReviewNotes); err != nil {
			return nil, fmt.Errorf("failed to decode review notes: %w", err)
		}
	}
	if reviewedAt.Valid {
		t := fromMillis(reviewedAt.Int64)
		p.ReviewedAt = &t
	}
	p.ReviewStatus = model.ReviewStatus(status)
	p.RejectionReason = reason.String
	p.CreatedAt = fromMillis(createdAt)
	return &p, nil
}

func (s *SQLStore) GetDemo(ctx context.Context, pitchID string) (*model.Demo, error) {
	query, args := s.builder().
		Select(demoColumns...).
		From(entsql.Table(tableDemos)).
		Where(entsql.EQ("pitch_id", pitchID)).
		OrderBy(entsql.Desc("created_at")).
		Limit(1).
		Query()

	var d model.Demo
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&d.ID,
		&d.PitchID,
		&d.Title,
		&d.Description,
		&d.VideoURL,
		&d.ThumbnailURL,
		&d.DurationSeconds,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query demo: %w", err)
	}
	return &d, nil
}

// SaveReview writes every derived field in one UPDATE so a run is never partially persisted.
func (s *SQLStore) SaveReview(ctx context.Context, id string, update *model.ReviewUpdate) error {
	flags := update.Flags
	if flags == nil {
		flags = []string{}
	}
	flagsJSON, err := json.Marshal(flags)
	if err != nil {
		return fmt.Errorf("failed to encode flags: %w", err)
	}

	b := s.builder().Update(tablePitches).
		Set("quality_score", update.QualityScore).
		Set("flags", string(flagsJSON)).
		Set("review_status", string(update.ReviewStatus)).
		Set("is_published", update.IsPublished).
		Set("reviewed_at", toMillis(update.ReviewedAt))

	if update.RejectionReason != "" {
		b.Set("rejection_reason", update.RejectionReason)
	} else {
		b.SetNull("rejection_reason")
	}
	if update.ReviewNotes != nil {
		notesJSON, err := json.Marshal(update.ReviewNotes)
		if err != nil {
			return fmt.Errorf("failed to encode review notes: %w", err)
		}
		b.Set("review_notes", string(notesJSON))
	} else {
		b.SetNull("review_notes")
	}

	query, args := b.Where(entsql.EQ("id", id)).Query()
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update pitch review: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPending skips pitches that already carry a review, such as a deep analysis left pending.
func (s *SQLStore) ListPending(ctx context.Context, limit int) ([]string, error) {
	sel := s.builder().
		Select("id").
		From(entsql.Table(tablePitches)).
		Where(entsql.And(
			entsql.EQ("review_status", string(model.StatusPending)),
			entsql.IsNull("reviewed_at"),
		)).
		OrderBy("created_at")
	if limit > 0 {
		sel.Limit(limit)
	}
	query, args := sel.Query()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending pitches: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLStore) CreatePitch(ctx context.Context, p *model.Pitch) (string, error) {
	id := strings.TrimSpace(p.ID)
	if id == "" {
		id = uuid.NewString()
	}
	query, args := s.builder().Insert(tablePitches).
		Columns(
			"id", "startup_name", "one_liner", "category", "problem_statement", "product_url",
			"is_product_live", "product_stage", "founder_id", "quality_score", "flags",
			"review_status", "is_published", "created_at",
		).
		Values(
			id, p.StartupName, p.OneLiner, p.CategoryOrDefault(), p.ProblemStatement, p.ProductURL,
			p.IsProductLive, p.ProductStage, p.FounderID, 0, "[]",
			string(model.StatusPending), false, toMillis(time.Now()),
		).
		Query()

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("failed to insert pitch: %w", err)
	}
	return id, nil
}

func (s *SQLStore) CreateDemo(ctx context.Context, d *model.Demo) (string, error) {
	id := strings.TrimSpace(d.ID)
	if id == "" {
		id = uuid.NewString()
	}
	query, args := s.builder().Insert(tableDemos).
		Columns(append(demoColumns, "created_at")...).
		Values(id, d.PitchID, d.Title, d.Description, d.VideoURL, d.ThumbnailURL, d.DurationSeconds, toMillis(time.Now())).
		Query()

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("failed to insert demo: %w", err)
	}
	return id, nil
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}
