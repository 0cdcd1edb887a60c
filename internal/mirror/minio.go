package mirror

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"notebrief/internal/config"
	"notebrief/internal/logging"
	"notebrief/internal/services"
)

// objectStore is the subset of the minio client the mirror uses.
type objectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	FPutObject(ctx context.Context, bucket, object, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Store uploads finished reports to an S3-compatible bucket.
type Store struct {
	client objectStore
	bucket string
	region string
	prefix string
	logger *slog.Logger

	mu          sync.Mutex
	bucketReady bool
}

// New connects to the configured endpoint. The bucket is created lazily on
// the first upload so an unreachable mirror never blocks startup.
func New(cfg config.Mirror, logger *slog.Logger) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "mirror", "connect", cfg.Endpoint, err)
	}
	return newStore(client, cfg, logger), nil
}

func newStore(client objectStore, cfg config.Mirror, logger *slog.Logger) *Store {
	return &Store{
		client: client,
		bucket: cfg.Bucket,
		region: cfg.Region,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: logging.NewComponentLogger(logger, "mirror"),
	}
}

// ObjectKey returns the object name used for key.
func (s *Store) ObjectKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return path.Join(s.prefix, key)
}

// Upload copies localPath to the bucket under key.
func (s *Store) Upload(ctx context.Context, key, localPath string) error {
	if err := s.ensureBucket(ctx); err != nil {
		return err
	}
	object := s.ObjectKey(key)
	info, err := s.client.FPutObject(ctx, s.bucket, object, localPath, minio.PutObjectOptions{
		ContentType: contentType(localPath),
	})
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "mirror", "upload", object, err)
	}
	logging.WithContext(ctx, s.logger).Debug("report mirrored",
		logging.String("bucket", s.bucket),
		logging.String("object", object),
		logging.Int64("size", info.Size),
	)
	return nil
}

func (s *Store) ensureBucket(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bucketReady {
		return nil
	}
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "mirror", "bucket exists", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return services.Wrap(services.ErrExternalTool, "mirror", "make bucket", s.bucket, err)
		}
	}
	s.bucketReady = true
	return nil
}

func contentType(localPath string) string {
	switch strings.ToLower(filepath.Ext(localPath)) {
	case ".md":
		return "text/markdown"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

// String describes the destination for logs.
func (s *Store) String() string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, s.prefix)
}
