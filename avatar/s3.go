package avatar

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jrsteele09/go-movie-server/internal/config"
	"github.com/pkg/errors"
)

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store is an ObjectStore on an S3-compatible bucket.
type S3Store struct {
	client        putObjectAPI
	bucket        string
	publicBaseURL string
}

var _ ObjectStore = (*S3Store)(nil)

// NewS3Store builds a store from configuration. It returns (nil, nil) when no
// bucket is configured.
func NewS3Store(ctx context.Context, cfg config.AvatarConfig) (*S3Store, error) {
	if cfg.GetAvatarBucket() == "" {
		return nil, nil
	}

	options := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.GetAvatarRegion()),
	}
	if cfg.GetAvatarAccessKey() != "" {
		options = append(options, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.GetAvatarAccessKey(),
			cfg.GetAvatarSecretKey(),
			"",
		)))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return nil, errors.Wrap(err, "[avatar.NewS3Store] load aws config")
	}

	endpoint := cfg.GetAvatarEndpoint()
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	publicBaseURL := cfg.GetAvatarPublicBaseURL()
	if publicBaseURL == "" {
		publicBaseURL = defaultPublicBaseURL(endpoint, cfg.GetAvatarBucket(), cfg.GetAvatarRegion())
	}
	return newS3Store(client, cfg.GetAvatarBucket(), publicBaseURL), nil
}

func newS3Store(client putObjectAPI, bucket, publicBaseURL string) *S3Store {
	return &S3Store{
		client:        client,
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

func defaultPublicBaseURL(endpoint, bucket, region string) string {
	if endpoint != "" {
		return strings.TrimRight(endpoint, "/") + "/" + bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
}

func (s *S3Store) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return "", errors.Wrapf(err, "[S3Store.Put] %s", key)
	}
	return s.publicBaseURL + "/" + key, nil
}
