package storage

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/EcrTech/FL-sub005/internal/domain/document"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// S3Store keeps generated documents in a private bucket with SSE.
type S3Store struct {
	api    s3iface.S3API
	bucket string
}

var _ document.Store = (*S3Store)(nil)

// NewS3Store uses the default credential chain (env, shared config, role).
func NewS3Store(region, bucket string) (*S3Store, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, err
	}
	return &S3Store{api: s3.New(sess), bucket: bucket}, nil
}

func (s *S3Store) Put(ctx context.Context, key, contentType string, content []byte) error {
	_, err := s.api.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(s.bucket),
		Key:                  aws.String(key),
		Body:                 bytes.NewReader(content),
		ContentType:          aws.String(contentType),
		ServerSideEncryption: aws.String(s3.ServerSideEncryptionAes256),
	})
	return err
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.api.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil, document.ErrNotFound.Wrap(err)
		}
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}
