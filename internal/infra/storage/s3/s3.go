package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/autotunecode/image-meta-api/internal/domain"
)

type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	PathStyle bool
}

// Узкий срез minio-клиента, который нужен провижену бакета.
// Вынесен в интерфейс, чтобы ретраи были тестируемы без настоящего S3.
type bucketAPI interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
}

type Storage struct {
	cl     *minio.Client
	log    *log.Logger
	bucket string
	region string

	buckets bucketAPI
	// подменяются в тестах
	wait        func(ctx context.Context, d time.Duration) error
	listObjects func(ctx context.Context, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

func New(cfg Config, logger *log.Logger) (*Storage, error) {
	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	}
	if cfg.PathStyle {
		opts.BucketLookup = minio.BucketLookupPath
	}
	cl, err := minio.New(cfg.Endpoint, opts)
	if err != nil {
		return nil, err
	}
	return &Storage{
		cl:      cl,
		log:     logger,
		bucket:  cfg.Bucket,
		region:  cfg.Region,
		buckets: cl,
		wait:    waitRetry,
		listObjects: func(ctx context.Context, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
			return cl.ListObjects(ctx, cfg.Bucket, opts)
		},
	}, nil
}

// Параметры ретраев провижена бакета
const (
	ensureAttempts  = 5
	ensureBaseDelay = time.Second
)

// backoffDelay — задержка перед попыткой attempt (считая с нуля): 1s, 2s, 4s...
func backoffDelay(attempt int) time.Duration {
	return ensureBaseDelay << attempt
}

// waitRetry — пауза между ретраями, обрываемая контекстом
func waitRetry(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// EnsureBucket идемпотентно создаёт бакет. Несколько инстансов могут звать
// его одновременно: проигравший гонку создания получает "already exists"
// и считает это успехом. Транзиентные сбои ретраим с экспоненциальным бэкоффом.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	var lastErr error
	for attempt := 0; attempt < ensureAttempts; attempt++ {
		if attempt > 0 {
			if err := s.wait(ctx, backoffDelay(attempt-1)); err != nil {
				return fmt.Errorf("ensure bucket %q: %w", s.bucket, err)
			}
		}

		exists, err := s.buckets.BucketExists(ctx, s.bucket)
		if err != nil {
			s.log.Printf("bucket check attempt %d/%d failed: %v", attempt+1, ensureAttempts, err)
			lastErr = err
			continue
		}
		if exists {
			s.log.Printf("bucket %q already exists", s.bucket)
			return nil
		}

		err = s.buckets.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region})
		if err == nil {
			s.log.Printf("bucket %q created", s.bucket)
			return nil
		}
		if isBucketExists(err) {
			// кто-то создал бакет между проверкой и созданием
			s.log.Printf("bucket %q created by another instance", s.bucket)
			return nil
		}
		s.log.Printf("bucket create attempt %d/%d failed: %v", attempt+1, ensureAttempts, err)
		lastErr = err
	}
	return fmt.Errorf("ensure bucket %q after %d attempts: %v: %w",
		s.bucket, ensureAttempts, lastErr, domain.ErrStorageUnavailable)
}

func isBucketExists(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "BucketAlreadyOwnedByYou" || resp.Code == "BucketAlreadyExists"
}

func (s *Storage) Put(ctx context.Context, key string, r io.Reader, size int64, mime string) error {
	_, err := s.cl.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: mime,
	})
	if err != nil {
		return classify("put", key, err)
	}
	return nil
}

func (s *Storage) PresignedGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := s.cl.PresignedGetObject(ctx, s.bucket, key, ttl, nil)
	if err != nil {
		return "", classify("presign", key, err)
	}
	return u.String(), nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	err := s.cl.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		return classify("delete", key, err)
	}
	return nil
}

func (s *Storage) List(ctx context.Context, prefix string, max int) ([]domain.ObjectInfo, error) {
	if max <= 0 {
		max = 100
	}
	// ранний выход из цикла обязан погасить продюсера канала, иначе
	// его горутина зависнет на отправке до конца жизни внешнего ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := s.listObjects(ctx, minio.ListObjectsOptions{Prefix: prefix, MaxKeys: max})

	var out []domain.ObjectInfo
	for obj := range ch {
		if obj.Err != nil {
			return nil, classify("list", prefix, obj.Err)
		}
		out = append(out, domain.ObjectInfo{
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
		})
		if len(out) >= max {
			break
		}
	}
	return out, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	if _, err := s.buckets.BucketExists(ctx, s.bucket); err != nil {
		return classify("ping", s.bucket, err)
	}
	return nil
}

// classify разводит семантические ошибки бекенда и транспортные:
// NoSuchKey/NoSuchBucket → ErrNotFound, всё остальное → ErrStorageUnavailable.
// Деталей соединения наружу не отдаём — только операцию и ключ.
func classify(op, key string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("s3 %s %q: %w", op, key, err)
	}
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("s3 %s %q: %w", op, key, domain.ErrNotFound)
	default:
		return fmt.Errorf("s3 %s %q: %v: %w", op, key, err, domain.ErrStorageUnavailable)
	}
}
