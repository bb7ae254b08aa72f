// Package upload copies completed downloads to object storage.
package upload

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"

	"github.com/chanomhub/gamedl/internal/config"
	"github.com/chanomhub/gamedl/internal/errors"
	"github.com/chanomhub/gamedl/internal/logger"
)

// ErrNoBucket is returned when no destination bucket is configured.
var ErrNoBucket = errors.New("upload bucket not configured")

// Uploader stores the file at localPath for download id and returns where it went.
type Uploader interface {
	Upload(ctx context.Context, id, localPath string) (string, error)
}

// S3Uploader puts files under <prefix>/<id>/<basename> in Bucket.
type S3Uploader struct {
	Client s3manageriface.UploaderAPI
	Bucket string
	Prefix string
}

// NewS3Uploader builds an uploader from cfg using the default AWS credential chain.
func NewS3Uploader(cfg *config.UploadConfig) (*S3Uploader, error) {
	if cfg == nil || cfg.Bucket == "" {
		return nil, ErrNoBucket
	}

	sess, err := session.NewSession(&aws.Config{Region: aws.String(cfg.Region)})
	if err != nil {
		return nil, fmt.Errorf("creating aws session: %w", err)
	}

	return &S3Uploader{
		Client: s3manager.NewUploader(sess),
		Bucket: cfg.Bucket,
		Prefix: cfg.Prefix,
	}, nil
}

func (u *S3Uploader) Upload(ctx context.Context, id, localPath string) (string, error) {
	if u.Bucket == "" {
		return "", ErrNoBucket
	}

	info, err := os.Stat(localPath)
	if err != nil {
		return "", errors.NewIOError("stat", localPath, err)
	}
	if info.IsDir() {
		return "", errors.NewInvalidError("upload", id, fmt.Errorf("%s is a directory", localPath))
	}

	f, err := os.Open(localPath)
	if err != nil {
		return "", errors.NewIOError("open", localPath, err)
	}
	defer f.Close()

	key := u.Key(id, localPath)
	out, err := u.Client.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: &u.Bucket,
		Key:    &key,
		Body:   f,
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok {
			return "", fmt.Errorf("uploading %s: %s: %s", key, aerr.Code(), aerr.Message())
		}
		return "", fmt.Errorf("uploading %s: %w", key, err)
	}

	logger.Infof("Uploaded %s to s3://%s/%s", localPath, u.Bucket, key)
	return out.Location, nil
}

// Key returns the object key used for localPath.
func (u *S3Uploader) Key(id, localPath string) string {
	return path.Join(u.Prefix, id, filepath.Base(localPath))
}
