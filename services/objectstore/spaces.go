package objectstore

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// Store is where uploaded course media and resumes end up
type Store interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// SpacesClient stores objects in an S3 compatible bucket (DigitalOcean Spaces, MinIO, S3)
type SpacesClient struct {
	s3Client  *s3.S3
	uploader  *s3manager.Uploader
	bucket    string
	endpoint  string
	cdnURL    string
	acl       string
	pathStyle bool
}

// SpacesConfig holds configuration for Spaces client
type SpacesConfig struct {
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Endpoint  string
	CDNURL    string
	// PathStyle addresses the bucket as endpoint/bucket, needed for MinIO and local tests
	PathStyle bool
	// ACL defaults to public-read so media URLs can be served directly
	ACL string
}

// IsConfigured reports whether enough settings are present to build a client
func (c SpacesConfig) IsConfigured() bool {
	return c.AccessKey != "" && c.SecretKey != "" && c.Bucket != "" && c.Region != ""
}

// NewSpacesClient creates a new Spaces client
func NewSpacesClient(config SpacesConfig) (*SpacesClient, error) {
	if !config.IsConfigured() {
		return nil, fmt.Errorf("object storage requires access key, secret key, bucket and region")
	}
	if config.Endpoint == "" {
		config.Endpoint = fmt.Sprintf("https://%s.digitaloceanspaces.com", config.Region)
	}
	if config.ACL == "" {
		config.ACL = s3.ObjectCannedACLPublicRead
	}

	sess, err := session.NewSession(&aws.Config{
		Credentials: credentials.NewStaticCredentials(
			config.AccessKey,
			config.SecretKey,
			"",
		),
		Endpoint:         aws.String(config.Endpoint),
		Region:           aws.String(config.Region),
		S3ForcePathStyle: aws.Bool(config.PathStyle),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Spaces session: %w", err)
	}

	client := s3.New(sess)
	return &SpacesClient{
		s3Client:  client,
		uploader:  s3manager.NewUploaderWithClient(client),
		bucket:    config.Bucket,
		endpoint:  strings.TrimSuffix(config.Endpoint, "/"),
		cdnURL:    strings.TrimSuffix(config.CDNURL, "/"),
		acl:       config.ACL,
		pathStyle: config.PathStyle,
	}, nil
}

// Upload streams body to key and returns its public URL. Large bodies such as
// lecture videos are sent as multipart uploads by the s3manager uploader.
func (s *SpacesClient) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ACL:         aws.String(s.acl),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return s.URL(key), nil
}

// Delete removes an object; used to clean up after a failed database write
func (s *SpacesClient) Delete(ctx context.Context, key string) error {
	_, err := s.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// URL returns the public URL for a key, preferring the CDN
func (s *SpacesClient) URL(key string) string {
	if s.cdnURL != "" {
		return fmt.Sprintf("%s/%s", s.cdnURL, key)
	}

	host := strings.TrimPrefix(strings.TrimPrefix(s.endpoint, "https://"), "http://")
	scheme := "https"
	if strings.HasPrefix(s.endpoint, "http://") {
		scheme = "http"
	}
	if s.pathStyle {
		return fmt.Sprintf("%s://%s/%s/%s", scheme, host, s.bucket, key)
	}
	return fmt.Sprintf("%s://%s.%s/%s", scheme, s.bucket, host, key)
}
