package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/AMRC-FactoryPlus/acs-files/pkg/filesvc"
)

// Config options for the S3/MinIO backend
type Config struct {
	Region          string // AWS region
	Bucket          string // bucket name
	AccessKeyID     string // access key ID
	SecretAccessKey string // secret access key
	Endpoint        string // optional custom endpoint for S3-compatible services
	UsePathStyle    bool   // use path-style addressing (MinIO needs this)
	PresignTTL      int    // presigned URL validity in seconds (default: 300)

	// MinIO/S3-compatible service options
	CreateBucketIfNotExist bool // create bucket if it doesn't exist
}

// Backend is an S3-compatible implementation of the filesvc.ObjectStore
// interface
type Backend struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucket        string
	presignTTL    time.Duration
	config        Config
}

// New creates a new S3-compatible storage backend
func New(cfg Config) (filesvc.ObjectStore, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}

	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	if cfg.PresignTTL == 0 {
		cfg.PresignTTL = 300 // 5 minutes default
	}

	var awsCfg aws.Config
	var err error

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(cfg.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				"",
			)),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(cfg.Region),
		)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Options []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Options = append(s3Options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.UsePathStyle
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Options...)

	backend := &Backend{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		bucket:        cfg.Bucket,
		presignTTL:    time.Duration(cfg.PresignTTL) * time.Second,
		config:        cfg,
	}

	if cfg.CreateBucketIfNotExist {
		if err := backend.createBucketIfNotExists(context.Background()); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return backend, nil
}

func objectPath(folder string, key uuid.UUID) string {
	return folder + "/" + key.String()
}

// Put uploads the content under folder/<generated uuid> and stamps the
// original filename into the object metadata.
func (b *Backend) Put(ctx context.Context, folder string, r io.Reader, originalFilename string, userMetadata map[string]string) (uuid.UUID, *filesvc.PutInfo, error) {
	key := uuid.New()
	path := objectPath(folder, key)

	metadata := make(map[string]string, len(userMetadata)+1)
	for k, v := range userMetadata {
		metadata[k] = v
	}
	metadata["originalname"] = originalFilename

	uploader := manager.NewUploader(b.client)
	out, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:   aws.String(b.bucket),
		Key:      aws.String(path),
		Body:     r,
		Metadata: metadata,
	})
	if err != nil {
		return uuid.Nil, nil, &filesvc.StoreError{Op: "put", Key: path, Err: err}
	}

	info := &filesvc.PutInfo{}
	if out.ETag != nil {
		info.ETag = strings.Trim(*out.ETag, "\"")
	}
	if out.VersionID != nil {
		info.VersionID = *out.VersionID
	}

	return key, info, nil
}

// Stat retrieves metadata for a stored object. A missing bucket and a
// missing object both report found=false.
func (b *Backend) Stat(ctx context.Context, folder string, key uuid.UUID) (*filesvc.ObjectInfo, bool, error) {
	path := objectPath(folder, key)

	out, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		if isAbsent(err) {
			return nil, false, nil
		}
		return nil, false, &filesvc.StoreError{Op: "stat", Key: path, Err: err}
	}

	contentType := "application/octet-stream"
	if out.ContentType != nil {
		contentType = *out.ContentType
	}

	metadata := make(map[string]string, len(out.Metadata))
	for k, v := range out.Metadata {
		metadata[k] = v
	}

	info := &filesvc.ObjectInfo{
		Key:          path,
		Size:         aws.ToInt64(out.ContentLength),
		ContentType:  contentType,
		LastModified: aws.ToTime(out.LastModified),
		ETag:         strings.Trim(aws.ToString(out.ETag), "\""),
		Metadata:     metadata,
	}

	return info, true, nil
}

// PresignedDownloadURL mints a time-limited GET URL forcing a browser
// attachment with the original filename.
func (b *Backend) PresignedDownloadURL(ctx context.Context, folder string, key uuid.UUID, downloadFilename string) (string, error) {
	path := objectPath(folder, key)

	input := &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(path),
	}
	if downloadFilename != "" {
		input.ResponseContentDisposition = aws.String(fmt.Sprintf("attachment; filename=\"%s\"", downloadFilename))
	} else {
		input.ResponseContentDisposition = aws.String("attachment")
	}

	out, err := b.presignClient.PresignGetObject(ctx, input, func(opts *s3.PresignOptions) {
		opts.Expires = b.presignTTL
	})
	if err != nil {
		return "", &filesvc.StoreError{Op: "presign", Key: path, Err: err}
	}

	return out.URL, nil
}

// isAbsent reports whether the backend error means "download target absent"
// rather than a fatal store failure.
func isAbsent(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	var noSuchBucket *types.NoSuchBucket
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) || errors.As(err, &noSuchBucket) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey", "NoSuchBucket":
			return true
		}
	}
	return false
}

// createBucketIfNotExists creates the bucket if it doesn't exist
func (b *Backend) createBucketIfNotExists(ctx context.Context) error {
	_, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(b.bucket),
	})
	if err == nil {
		return nil
	}
	if !isAbsent(err) && !strings.Contains(err.Error(), "BadRequest") {
		return fmt.Errorf("failed to check bucket: %w", err)
	}

	createInput := &s3.CreateBucketInput{
		Bucket: aws.String(b.bucket),
	}
	if b.config.Region != "us-east-1" {
		createInput.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(b.config.Region),
		}
	}

	_, err = b.client.CreateBucket(ctx, createInput)
	if err != nil {
		// Another writer may have raced us to it
		if strings.Contains(err.Error(), "BucketAlreadyExists") ||
			strings.Contains(err.Error(), "BucketAlreadyOwnedByYou") {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}

	return nil
}
