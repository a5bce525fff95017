package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/autotunecode/image-meta-api/internal/domain"
	"github.com/google/uuid"
)

const imagesTable = "images"

var imageColumns = []string{
	"id", "storage_key", "content_hash", "original_filename", "mime_type",
	"size_bytes", "title", "description", "analysis_note", "created_at", "updated_at",
}

func (r *PGRepo) ImageByHash(ctx context.Context, hash string) (domain.Image, error) {
	q := r.qb().Select(imageColumns...).
		From(imagesTable).
		Where(sq.Eq{"content_hash": hash})

	sqlStr, args, _ := q.ToSql()
	r.logSQL("ImageByHash", sqlStr, args)

	start := time.Now()
	img, err := scanImage(r.pool.QueryRow(ctx, sqlStr, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Printf("ImageByHash not found in %s hash=%s", time.Since(start), hash)
			return domain.Image{}, fmt.Errorf("image by hash %s: %w", hash, domain.ErrNotFound)
		}
		r.logger.Printf("ImageByHash scan error after %s: %v", time.Since(start), err)
		return domain.Image{}, mapPgError("image by hash", err)
	}
	r.logger.Printf("ImageByHash ok in %s id=%s", time.Since(start), img.ID)
	return img, nil
}

func (r *PGRepo) ImageByID(ctx context.Context, id domain.ImageID) (domain.Image, error) {
	q := r.qb().Select(imageColumns...).
		From(imagesTable).
		Where(sq.Eq{"id": id})

	sqlStr, args, _ := q.ToSql()
	r.logSQL("ImageByID", sqlStr, args)

	start := time.Now()
	img, err := scanImage(r.pool.QueryRow(ctx, sqlStr, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Image{}, fmt.Errorf("image %s: %w", id, domain.ErrNotFound)
		}
		r.logger.Printf("ImageByID scan error after %s: %v", time.Since(start), err)
		return domain.Image{}, mapPgError("image by id", err)
	}
	r.logger.Printf("ImageByID ok in %s id=%s", time.Since(start), img.ID)
	return img, nil
}

func (r *PGRepo) CreateImage(ctx context.Context, img domain.Image) (domain.Image, error) {
	if img.ID == uuid.Nil {
		img.ID = uuid.New()
	}

	q := r.qb().Insert(imagesTable).
		Columns("id", "storage_key", "content_hash", "original_filename",
			"mime_type", "size_bytes", "title", "description", "analysis_note").
		Values(img.ID, img.StorageKey, img.ContentHash, img.OriginalFilename,
			img.MIME, img.SizeBytes, img.Title, img.Description, img.AnalysisNote).
		Suffix("RETURNING " + strings.Join(imageColumns, ", "))

	sqlStr, args, _ := q.ToSql()
	r.logSQL("CreateImage", sqlStr, args)

	start := time.Now()
	out, err := scanImage(r.pool.QueryRow(ctx, sqlStr, args...))
	if err != nil {
		r.logger.Printf("CreateImage error after %s: %v", time.Since(start), err)
		return domain.Image{}, mapPgError("create image", err)
	}
	r.logger.Printf("CreateImage ok in %s id=%s hash=%s", time.Since(start), out.ID, out.ContentHash)
	return out, nil
}

func (r *PGRepo) ImagesList(ctx context.Context, limit, offset int) ([]domain.Image, error) {
	limit, offset = domain.ClampListPage(limit, offset)

	q := r.qb().Select(imageColumns...).
		From(imagesTable).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset))

	sqlStr, args, _ := q.ToSql()
	r.logSQL("ImagesList", sqlStr, args)

	start := time.Now()
	rows, err := r.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		r.logger.Printf("ImagesList query error after %s: %v", time.Since(start), err)
		return nil, mapPgError("list images", err)
	}
	defer rows.Close()

	var res []domain.Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			r.logger.Printf("ImagesList scan error: %v", err)
			return nil, mapPgError("list images", err)
		}
		res = append(res, img)
	}
	if err := rows.Err(); err != nil {
		r.logger.Printf("ImagesList rows error: %v", err)
		return nil, mapPgError("list images", err)
	}
	r.logger.Printf("ImagesList ok in %s count=%d", time.Since(start), len(res))
	return res, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanImage(row rowScanner) (domain.Image, error) {
	var img domain.Image
	err := row.Scan(
		&img.ID, &img.StorageKey, &img.ContentHash, &img.OriginalFilename,
		&img.MIME, &img.SizeBytes, &img.Title, &img.Description,
		&img.AnalysisNote, &img.CreatedAt, &img.UpdatedAt,
	)
	return img, err
}

// mapPgError переводит ошибки драйвера в доменные.
// 23505 → ConflictError с именем нарушенного поля: финальный арбитр
// дедупликации — уникальные ограничения БД, не пре-чек координатора.
func mapPgError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return &domain.ConflictError{Field: conflictField(pgErr.ConstraintName)}
	}
	return fmt.Errorf("%s: %v: %w", op, err, domain.ErrMetaUnavailable)
}

func conflictField(constraint string) string {
	switch {
	case strings.Contains(constraint, "content_hash"):
		return "content_hash"
	case strings.Contains(constraint, "storage_key"):
		return "storage_key"
	default:
		return constraint
	}
}
