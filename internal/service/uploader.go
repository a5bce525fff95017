// Package service содержит координатор загрузки: hash → pre-check →
// запись блоба → коммит метаданных → компенсация при конфликте.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/autotunecode/image-meta-api/internal/domain"
	"github.com/autotunecode/image-meta-api/internal/fingerprint"
)

type Uploader struct {
	log      *log.Logger
	storage  domain.BlobStorage
	repo     domain.ImagesRepo
	cache    domain.Cache
	analyzer domain.ImageAnalyzer // nil — анализ выключен

	presignTTL time.Duration
}

func NewUploader(logger *log.Logger, storage domain.BlobStorage, repo domain.ImagesRepo,
	cache domain.Cache, analyzer domain.ImageAnalyzer, presignTTL time.Duration) *Uploader {
	return &Uploader{
		log:        logger,
		storage:    storage,
		repo:       repo,
		cache:      cache,
		analyzer:   analyzer,
		presignTTL: presignTTL,
	}
}

type UploadInput struct {
	File     io.Reader
	Filename string
	MIME     string
	Meta     domain.UploadMeta
}

// Upload проводит загрузку от начала до конца. Порядок фиксирован:
// отпечаток, дубль-чек, блоб, метаданные. Пре-чек — лишь оптимизация,
// финальный арбитр уникальности — ограничение БД на content_hash;
// проигрыш гонки на вставке компенсируется удалением свежего блоба.
func (u *Uploader) Upload(ctx context.Context, in UploadInput) (domain.UploadResult, error) {
	if err := in.Meta.Validate(); err != nil {
		return domain.UploadResult{}, err
	}
	if in.Filename == "" || !domain.AllowedImageExt(in.Filename) {
		return domain.UploadResult{}, fmt.Errorf("file %q: %w", in.Filename, domain.ErrBadParams)
	}

	// Файл ограничен лимитом тела запроса, держим его в памяти целиком:
	// он нужен дважды — на проверку содержимого и на выгрузку в S3.
	data, err := io.ReadAll(in.File)
	if err != nil {
		return domain.UploadResult{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return domain.UploadResult{}, fmt.Errorf("empty file: %w", domain.ErrBadParams)
	}

	detected := http.DetectContentType(data)
	if !strings.HasPrefix(detected, "image/") {
		return domain.UploadResult{}, fmt.Errorf("not an image (%s): %w", detected, domain.ErrBadParams)
	}
	mime := in.MIME
	if mime == "" || mime == "application/octet-stream" {
		mime = detected
	}

	hash, size, err := fingerprint.Sum(bytes.NewReader(data))
	if err != nil {
		return domain.UploadResult{}, fmt.Errorf("fingerprint: %w", err)
	}

	// Дубль-чек до выгрузки, чтобы не гонять блоб зря
	if existing, err := u.repo.ImageByHash(ctx, hash); err == nil {
		return domain.UploadResult{}, &domain.DuplicateError{Existing: existing}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.UploadResult{}, err
	}

	var note *string
	if u.analyzer != nil {
		if text, err := u.analyzer.Analyze(ctx, data, mime); err != nil {
			// анализ опционален — загрузку не валим
			u.log.Printf("analyzer failed for hash=%s: %v", hash, err)
		} else if text != "" {
			note = &text
		}
	}

	key := StorageKey(hash, in.Filename)

	// Обрыв клиента после этой точки не должен бросить блоб без
	// компенсации: запись и коммит доводим на отвязанном контексте.
	dctx := context.WithoutCancel(ctx)

	if err := u.storage.Put(dctx, key, bytes.NewReader(data), size, mime); err != nil {
		return domain.UploadResult{}, err
	}

	created, err := u.repo.CreateImage(dctx, domain.Image{
		StorageKey:       key,
		ContentHash:      hash,
		OriginalFilename: in.Filename,
		MIME:             mime,
		SizeBytes:        size,
		Title:            in.Meta.Title,
		Description:      in.Meta.Description,
		AnalysisNote:     note,
	})
	if err != nil {
		if _, ok := domain.AsConflict(err); ok {
			// конкурент успел вставить между пре-чеком и коммитом;
			// сперва узнаём его запись — только потом решаем про блоб
			existing, lookErr := u.repo.ImageByHash(dctx, hash)
			if lookErr != nil {
				// ключ победителя неизвестен: блоб не трогаем, чтобы
				// не снести тот, на который ссылается его запись
				u.log.Printf("existing lookup after conflict failed hash=%s: %v", hash, lookErr)
				return domain.UploadResult{}, &domain.DuplicateError{Existing: domain.Image{ContentHash: hash}}
			}
			// при одинаковом имени файла ключи совпадают — это блоб
			// победителя, осиротел наш только при расхождении ключей
			if existing.StorageKey != key {
				if delErr := u.storage.Delete(dctx, key); delErr != nil {
					u.log.Printf("orphan cleanup failed key=%s: %v", key, delErr)
				}
			}
			return domain.UploadResult{}, &domain.DuplicateError{Existing: existing}
		}
		// метаданные недоступны после успешной записи блоба: блоб
		// остаётся сиротой до внешней сверки, это осознанный зазор
		u.log.Printf("metadata commit failed, blob %s orphaned: %v", key, err)
		return domain.UploadResult{}, err
	}

	res := domain.UploadResult{Image: created}
	if dlURL, err := u.storage.PresignedGet(ctx, created.StorageKey, u.presignTTL); err != nil {
		// запись уже создана — отдаём её без ссылки
		u.log.Printf("presign failed key=%s: %v", created.StorageKey, err)
	} else {
		res.DownloadURL = dlURL
	}

	if u.cache != nil {
		if _, err := u.cache.Incr(ctx, domain.CacheKeyListVersion()); err != nil {
			u.log.Printf("list version bump failed: %v", err)
		}
	}

	u.log.Printf("uploaded id=%s hash=%s key=%s size=%d", created.ID, hash, key, size)
	return res, nil
}

// StorageKey детерминированно выводит ключ блоба из отпечатка и имени
// файла — повтор той же логической загрузки идемпотентен на уровне S3.
func StorageKey(hash, filename string) string {
	return "images/" + hash + "_" + sanitize(filename)
}

func sanitize(name string) string {
	u := url.PathEscape(name)
	return strings.ReplaceAll(u, "%2F", "_")
}
