package gcp

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/coachlens/coachlens-backend/internal/platform/envutil"
	"github.com/coachlens/coachlens-backend/internal/platform/logger"
)

// ProgressFunc receives upload progress as a 0-100 percentage. It is
// invoked synchronously from the upload goroutine.
type ProgressFunc func(pct int)

type BucketService interface {
	UploadFile(ctx context.Context, key string, file io.Reader) error
	// UploadFileWithProgress streams a file of a known size and reports
	// percentage progress as bytes are written.
	UploadFileWithProgress(ctx context.Context, key string, file io.Reader, sizeBytes int64, onProgress ProgressFunc) error
	DeleteFile(ctx context.Context, key string) error
	DownloadFile(ctx context.Context, key string) (io.ReadCloser, error)
	GetPublicURL(key string) string
}

type bucketService struct {
	log           *logger.Logger
	storageClient *storage.Client
	bucketName    string
	cdnDomain     string
	publicBaseURL string
}

func NewBucketService(log *logger.Logger) (BucketService, error) {
	serviceLog := log.With("service", "BucketService")

	bucketName := envutil.String("SESSION_GCS_BUCKET_NAME", "")
	if bucketName == "" {
		return nil, fmt.Errorf("missing env var SESSION_GCS_BUCKET_NAME")
	}
	cdnDomain := envutil.String("SESSION_CDN_DOMAIN", "")
	emulatorHost := strings.TrimRight(envutil.String("STORAGE_EMULATOR_HOST", ""), "/")
	publicBaseURL := strings.TrimRight(envutil.String("OBJECT_STORAGE_PUBLIC_BASE_URL", emulatorHost), "/")

	ctx := context.Background()
	var stClient *storage.Client
	var err error
	if emulatorHost != "" {
		stClient, err = storage.NewClient(ctx, option.WithoutAuthentication())
	} else {
		opts := append(clientOptionsFromEnv(), option.WithScopes(storage.ScopeReadWrite))
		stClient, err = storage.NewClient(ctx, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	serviceLog.Info("Object storage initialized",
		"bucket", bucketName,
		"emulator_host", emulatorHost,
		"public_base_url", publicBaseURL,
	)

	return &bucketService{
		log:           serviceLog,
		storageClient: stClient,
		bucketName:    bucketName,
		cdnDomain:     cdnDomain,
		publicBaseURL: publicBaseURL,
	}, nil
}

func (bs *bucketService) UploadFile(ctx context.Context, key string, file io.Reader) error {
	return bs.UploadFileWithProgress(ctx, key, file, 0, nil)
}

func (bs *bucketService) UploadFileWithProgress(ctx context.Context, key string, file io.Reader, sizeBytes int64, onProgress ProgressFunc) error {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout())
	defer cancel()

	w := bs.storageClient.Bucket(bs.bucketName).Object(key).NewWriter(ctx)
	if ct := contentTypeForKey(key); ct != "" {
		w.ContentType = ct
	}

	var src io.Reader = file
	if onProgress != nil && sizeBytes > 0 {
		src = &progressReader{r: file, total: sizeBytes, onProgress: onProgress}
	}
	if _, err := io.Copy(w, src); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}
	if onProgress != nil {
		onProgress(100)
	}
	return nil
}

// progressReader reports whole-percent progress while the GCS writer
// consumes the source. Percentages only ever advance.
type progressReader struct {
	r          io.Reader
	total      int64
	read       int64
	lastPct    int
	onProgress ProgressFunc
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.r.Read(p)
	if n > 0 {
		pr.read += int64(n)
		pct := int(pr.read * 100 / pr.total)
		if pct > 100 {
			pct = 100
		}
		if pct > pr.lastPct {
			pr.lastPct = pct
			pr.onProgress(pct)
		}
	}
	return n, err
}

func (bs *bucketService) DeleteFile(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	o := bs.storageClient.Bucket(bs.bucketName).Object(key)
	if err := o.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete GCS object %q in bucket %q: %w", key, bs.bucketName, err)
	}
	return nil
}

func (bs *bucketService) DownloadFile(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := bs.storageClient.Bucket(bs.bucketName).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open GCS object %q: %w", key, err)
	}
	return rc, nil
}

func (bs *bucketService) GetPublicURL(key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if bs.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", bs.cdnDomain, key)
	}
	if bs.publicBaseURL != "" {
		return fmt.Sprintf("%s/storage/v1/b/%s/o/%s?alt=media", bs.publicBaseURL, bs.bucketName, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bs.bucketName, key)
}

// Session uploads can be large; the default window assumes multi-GiB
// video over a slow uplink.
func uploadTimeout() time.Duration {
	minutes := envutil.Int("UPLOAD_TIMEOUT_MINUTES", 120)
	return time.Duration(minutes) * time.Minute
}

func contentTypeForKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	if s == "" {
		return ""
	}
	if i := strings.Index(s, "?"); i >= 0 {
		s = s[:i]
	}
	switch {
	case strings.HasSuffix(s, ".mp3"):
		return "audio/mpeg"
	case strings.HasSuffix(s, ".wav"):
		return "audio/wav"
	case strings.HasSuffix(s, ".ogg"):
		return "audio/ogg"
	case strings.HasSuffix(s, ".m4a"):
		return "audio/m4a"
	case strings.HasSuffix(s, ".aac"):
		return "audio/aac"
	case strings.HasSuffix(s, ".flac"):
		return "audio/flac"
	case strings.HasSuffix(s, ".mp4"), strings.HasSuffix(s, ".m4v"):
		return "video/mp4"
	case strings.HasSuffix(s, ".webm"):
		return "video/webm"
	case strings.HasSuffix(s, ".mov"):
		return "video/quicktime"
	case strings.HasSuffix(s, ".avi"):
		return "video/x-msvideo"
	case strings.HasSuffix(s, ".wmv"):
		return "video/x-ms-wmv"
	default:
		return ""
	}
}
