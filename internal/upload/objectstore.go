package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"reportbot/internal/util"
)

// Compile-time interface check.
var _ Uploader = (*ObjectStoreUploader)(nil)

// KeyPrefix is the object key prefix of uploaded charts.
const KeyPrefix = "reports"

// ObjectStoreConfig describes an S3-compatible bucket.
type ObjectStoreConfig struct {
	Endpoint      string // host[:port], no scheme
	AccessKey     string
	SecretKey     string
	Bucket        string
	Region        string
	UseSSL        bool
	PublicBaseURL string        // when set, object URLs are PublicBaseURL/key
	PresignExpiry time.Duration // lifetime of presigned URLs otherwise
}

// Validate reports the first configuration problem.
func (c ObjectStoreConfig) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("endpoint is required")
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		return errors.New("access key is required")
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("secret key is required")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		return errors.New("bucket is required")
	}
	if strings.TrimSpace(c.Region) == "" {
		return errors.New("region is required")
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("endpoint must not include scheme: %q", c.Endpoint)
	}
	if c.PublicBaseURL == "" && (c.PresignExpiry <= 0 || c.PresignExpiry > 7*24*time.Hour) {
		return fmt.Errorf("presign expiry must be between 1s and 168h, got %s", c.PresignExpiry)
	}
	return nil
}

// ObjectStoreUploader stores full-resolution charts in a bucket.
type ObjectStoreUploader struct {
	client *minio.Client
	cfg    ObjectStoreConfig
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// NewObjectStoreUploader creates a minio client for cfg.
func NewObjectStoreUploader(cfg ObjectStoreConfig, logger *slog.Logger) (*ObjectStoreUploader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(),
	})
	if err != nil {
		return nil, fmt.Errorf("object store client: %w", err)
	}
	if logger == nil {
		logger = util.Discard()
	}
	return &ObjectStoreUploader{
		client: client,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}, nil
}

// EnsureBucket creates the bucket when it does not exist.
func (u *ObjectStoreUploader) EnsureBucket(ctx context.Context) error {
	exists, err := u.client.BucketExists(ctx, u.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("bucket exists: %w", err)
	}
	if exists {
		return nil
	}
	if err := u.client.MakeBucket(ctx, u.cfg.Bucket, minio.MakeBucketOptions{Region: u.cfg.Region}); err != nil {
		return fmt.Errorf("make bucket %s: %w", u.cfg.Bucket, err)
	}
	u.logger.Info("bucket created", "bucket", u.cfg.Bucket)
	return nil
}

// Upload stores the file under a dated, unique key and returns its URL.
func (u *ObjectStoreUploader) Upload(ctx context.Context, localPath string) (string, error) {
	if err := u.EnsureBucket(ctx); err != nil {
		return "", err
	}

	key := u.objectKey(filepath.Base(localPath))
	contentType := mime.TypeByExtension(filepath.Ext(localPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if _, err := u.client.FPutObject(ctx, u.cfg.Bucket, key, localPath, minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}

	objectURL, err := u.objectURL(ctx, key)
	if err != nil {
		return "", err
	}
	u.logger.Info("image uploaded", "backend", "object_store", "bucket", u.cfg.Bucket, "key", key)
	return objectURL, nil
}

func (u *ObjectStoreUploader) objectKey(name string) string {
	return path.Join(KeyPrefix, u.now().Format(time.DateOnly), u.newID()+"-"+name)
}

func (u *ObjectStoreUploader) objectURL(ctx context.Context, key string) (string, error) {
	if u.cfg.PublicBaseURL != "" {
		return strings.TrimRight(u.cfg.PublicBaseURL, "/") + "/" + key, nil
	}
	signed, err := u.client.PresignedGetObject(ctx, u.cfg.Bucket, key, u.cfg.PresignExpiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return signed.String(), nil
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
