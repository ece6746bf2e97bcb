package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const (
	uploadPrefix = "vehicles/"
	presignTTL   = 15 * time.Minute
)

// Uploader issues pre-signed PUT URLs so browsers upload listing photos
// directly to the bucket.
type Uploader struct {
	presigner *s3.PresignClient
	bucket    string
	region    string
}

// NewUploader creates an S3-backed uploader using ambient AWS credentials.
func NewUploader(ctx context.Context, region, bucket string) (*Uploader, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	return &Uploader{
		presigner: s3.NewPresignClient(client),
		bucket:    bucket,
		region:    region,
	}, nil
}

// PresignedUpload holds the upload target and the eventual public URL.
type PresignedUpload struct {
	UploadURL string `json:"uploadUrl"`
	FileURL   string `json:"fileUrl"`
	Key       string `json:"key"`
}

// PresignUpload returns a pre-signed PUT URL for a new object under the
// vehicles prefix. The object key is server-generated; the client file name
// only contributes its extension.
func (u *Uploader) PresignUpload(ctx context.Context, fileName, contentType string) (*PresignedUpload, error) {
	key := uploadPrefix + uuid.NewString() + sanitizeExt(fileName)

	req, err := u.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(presignTTL))
	if err != nil {
		return nil, fmt.Errorf("presign put: %w", err)
	}

	return &PresignedUpload{
		UploadURL: req.URL,
		FileURL:   fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.bucket, u.region, key),
		Key:       key,
	}, nil
}

func sanitizeExt(fileName string) string {
	ext := strings.ToLower(path.Ext(path.Base(fileName)))
	for _, r := range ext {
		if r != '.' && (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
