package services

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go/logging"
	"github.com/playdrop/backend/internal/config"
)

type S3Service struct {
	mediaClient *s3.Client
	cfg         *config.Config
}

func NewS3Service(cfg *config.Config) (*S3Service, error) {
	media, err := buildClient(cfg.MediaS3Endpoint, cfg.MediaS3Region, cfg.MediaS3AccessKeyID, cfg.MediaS3SecretAccessKey, cfg.MediaS3UsePathStyle)
	if err != nil {
		return nil, err
	}
	return &S3Service{mediaClient: media, cfg: cfg}, nil
}

func (s *S3Service) GetConfig() *config.Config { return s.cfg }

func buildClient(endpoint, region, key, secret string, pathStyle bool) (*s3.Client, error) {
	resolver := awsconfig.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
		func(service, rgn string, options ...interface{}) (aws.Endpoint, error) {
			if endpoint != "" {
				return aws.Endpoint{URL: endpoint, SigningRegion: region}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		}))
	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(key, secret, "")),
		resolver,
		awsconfig.WithLogger(logging.NewStandardLogger(nil)),
	)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = pathStyle
		if endpoint != "" {
			o.BaseEndpoint = &endpoint
		}
	})
	return client, nil
}

// UploadMedia uploads an object to the media bucket (audio or artwork)
func (s *S3Service) UploadMedia(ctx context.Context, bucket, key string, body interface{}, ctype string) error {
	uploader := manager.NewUploader(s.mediaClient)
	in := &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		ContentType: &ctype,
		ACL:         s3types.ObjectCannedACLPrivate,
	}
	if r, ok := body.(interface {
		Read(p []byte) (n int, err error)
	}); ok {
		in.Body = r
	}
	_, err := uploader.Upload(ctx, in, func(u *manager.Uploader) { u.PartSize = 10 * 1024 * 1024 })
	return err
}

// PresignMediaGet issues a time-limited signed GET URL for an object
func (s *S3Service) PresignMediaGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	presigner := s3.NewPresignClient(s.mediaClient)
	out, err := presigner.PresignGetObject(ctx, &s3.GetObjectInput{Bucket: &bucket, Key: &key}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", err
	}
	return out.URL, nil
}

func (s *S3Service) MediaURL(bucket, key string) string {
	e := s.mediaClient.Options().BaseEndpoint
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s/%s/%s", *e, bucket, url.PathEscape(key))
}

// DownloadMedia downloads an object into a memory buffer (for local caching)
func (s *S3Service) DownloadMedia(ctx context.Context, bucket, key string) (*manager.WriteAtBuffer, error) {
	downloader := manager.NewDownloader(s.mediaClient)
	buf := manager.NewWriteAtBuffer([]byte{})
	_, err := downloader.Download(ctx, buf, &s3.GetObjectInput{Bucket: &bucket, Key: &key})
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// ListMediaKeys lists object keys under a prefix
func (s *S3Service) ListMediaKeys(ctx context.Context, bucket, prefix string, max int32) ([]string, error) {
	keys := []string{}
	var token *string
	for {
		out, err := s.mediaClient.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            &bucket,
			Prefix:            &prefix,
			ContinuationToken: token,
			MaxKeys:           aws.Int32(max),
		})
		if err != nil {
			return nil, err
		}
		for _, o := range out.Contents {
			keys = append(keys, *o.Key)
		}
		if aws.ToBool(out.IsTruncated) && out.NextContinuationToken != nil {
			token = out.NextContinuationToken
			continue
		}
		break
	}
	return keys, nil
}

// DeleteMedia deletes an object from the media bucket
func (s *S3Service) DeleteMedia(ctx context.Context, bucket, key string) error {
	_, err := s.mediaClient.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	return err
}
