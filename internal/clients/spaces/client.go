// Package spaces talks to an S3-compatible object store (DigitalOcean
// Spaces, Vultr Object Storage). HLS bundles are uploaded world-readable
// with a one-year cache header and served through a CDN domain.
package spaces

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"golang.org/x/sync/errgroup"

	"github.com/jobreel/jobreel-backend/internal/logger"
)

const cacheControlImmutable = "public, max-age=31536000"

// uploadConcurrency bounds parallel PutObject calls during a bundle upload.
const uploadConcurrency = 4

type Client interface {
	// UploadFile stores one object under key with a content type derived
	// from the extension, public-read ACL and a long cache header.
	UploadFile(ctx context.Context, key string, body io.Reader) error
	// UploadDir walks a local directory and uploads every regular file
	// under keyPrefix/<relative path>. Re-uploading the same keys is safe.
	UploadDir(ctx context.Context, localDir, keyPrefix string) (int, error)
	DeletePrefix(ctx context.Context, prefix string) error
	HeadBucket(ctx context.Context) error
	PublicURL(key string) string
}

type client struct {
	log       *logger.Logger
	s3        *s3.Client
	bucket    string
	keyPrefix string
	cdnURL    string
}

func NewClient(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	endpoint := strings.TrimSpace(os.Getenv("SPACES_ENDPOINT"))
	accessKey := strings.TrimSpace(os.Getenv("SPACES_ACCESS_KEY"))
	secretKey := strings.TrimSpace(os.Getenv("SPACES_SECRET_KEY"))
	bucket := strings.TrimSpace(os.Getenv("SPACES_BUCKET"))
	region := strings.TrimSpace(os.Getenv("SPACES_REGION"))
	cdnURL := strings.TrimRight(strings.TrimSpace(os.Getenv("SPACES_CDN_URL")), "/")
	keyPrefix := strings.Trim(strings.TrimSpace(os.Getenv("S3_KEY_PREFIX")), "/")

	if endpoint == "" || accessKey == "" || secretKey == "" || bucket == "" {
		return nil, fmt.Errorf("missing object storage configuration (SPACES_ENDPOINT, SPACES_ACCESS_KEY, SPACES_SECRET_KEY, SPACES_BUCKET)")
	}
	if region == "" {
		region = "us-east-1"
	}

	cfg, err := awsconfig.LoadDefaultConfig(
		context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	usePathStyle := strings.ToLower(strings.TrimSpace(os.Getenv("S3_ADDRESSING_STYLE"))) != "virtual"
	s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = usePathStyle
	})

	serviceLog := log.With("service", "SpacesClient")
	serviceLog.Info(
		"Object storage initialized",
		"endpoint", endpoint,
		"bucket", bucket,
		"region", region,
		"key_prefix", keyPrefix,
		"cdn_url", cdnURL,
	)

	return &client{
		log:       serviceLog,
		s3:        s3Client,
		bucket:    bucket,
		keyPrefix: keyPrefix,
		cdnURL:    cdnURL,
	}, nil
}

func (c *client) UploadFile(ctx context.Context, key string, body io.Reader) error {
	fullKey := c.fullKey(key)
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(c.bucket),
		Key:          aws.String(fullKey),
		Body:         body,
		ContentType:  aws.String(ContentTypeForKey(key)),
		ACL:          s3types.ObjectCannedACLPublicRead,
		CacheControl: aws.String(cacheControlImmutable),
	})
	if err != nil {
		return fmt.Errorf("put object %q: %w", fullKey, err)
	}
	return nil
}

func (c *client) UploadDir(ctx context.Context, localDir, keyPrefix string) (int, error) {
	var files []string
	err := filepath.Walk(localDir, func(p string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if info.Mode().IsRegular() {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("walk %q: %w", localDir, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)
	for _, file := range files {
		file := file
		g.Go(func() error {
			rel, err := filepath.Rel(localDir, file)
			if err != nil {
				return err
			}
			key := path.Join(keyPrefix, filepath.ToSlash(rel))

			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open %q: %w", file, err)
			}
			defer f.Close()

			uploadCtx, cancel := context.WithTimeout(gctx, 2*time.Minute)
			defer cancel()
			if err := c.UploadFile(uploadCtx, key, f); err != nil {
				return err
			}
			c.log.Debug("Uploaded object", "key", key)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(files), nil
}

func (c *client) DeletePrefix(ctx context.Context, prefix string) error {
	fullPrefix := c.fullKey(prefix)
	paginator := s3.NewListObjectsV2Paginator(c.s3, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(fullPrefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list prefix %q: %w", fullPrefix, err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(c.bucket),
				Key:    obj.Key,
			})
			if err != nil {
				return fmt.Errorf("delete object %q: %w", *obj.Key, err)
			}
		}
	}
	return nil
}

func (c *client) HeadBucket(ctx context.Context) error {
	_, err := c.s3.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)})
	return err
}

func (c *client) PublicURL(key string) string {
	if c.cdnURL == "" {
		return ""
	}
	return c.cdnURL + "/" + strings.TrimLeft(c.fullKey(key), "/")
}

func (c *client) fullKey(key string) string {
	key = strings.TrimLeft(key, "/")
	if c.keyPrefix == "" {
		return key
	}
	return c.keyPrefix + "/" + key
}

// ContentTypeForKey maps an object key to its HTTP content type. HLS
// players refuse manifests served with the wrong type, so the mapping is
// explicit rather than left to the store's guess.
func ContentTypeForKey(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".m3u8":
		return "application/vnd.apple.mpegurl"
	case ".ts":
		return "video/mp2t"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}
