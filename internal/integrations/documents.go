package integrations

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/oklog/ulid/v2"

	"github.com/BradenHooton/claimsdesk/internal/config"
)

// ErrUnsupportedContentType is returned for document types other than PDF, JPEG and PNG.
var ErrUnsupportedContentType = errors.New("unsupported document content type")

var documentExtensions = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
}

// Presigner is the subset of s3.PresignClient used here.
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// DocumentUpload is a one-shot upload slot for a claim document.
type DocumentUpload struct {
	UploadURL   string    `json:"uploadUrl"`
	DocumentURL string    `json:"documentUrl"`
	Key         string    `json:"key"`
	ContentType string    `json:"contentType"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type DocumentStore struct {
	presigner Presigner
	bucket    string
	region    string
	prefix    string
	ttl       time.Duration
	endpoint  string
	now       func() time.Time
}

func NewDocumentStore(awsCfg aws.Config, cfg config.DocumentsConfig) *DocumentStore {
	endpoint := customEndpoint()
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return newDocumentStore(s3.NewPresignClient(client), cfg, endpoint)
}

func newDocumentStore(p Presigner, cfg config.DocumentsConfig, endpoint string) *DocumentStore {
	return &DocumentStore{
		presigner: p,
		bucket:    cfg.Bucket,
		region:    cfg.Region,
		prefix:    strings.Trim(cfg.KeyPrefix, "/"),
		ttl:       cfg.PresignTTL,
		endpoint:  strings.TrimRight(endpoint, "/"),
		now:       time.Now,
	}
}

// PresignUpload issues a PUT URL under <prefix>/<userID>/<ulid><ext>.
func (s *DocumentStore) PresignUpload(ctx context.Context, userID, contentType string) (*DocumentUpload, error) {
	ext, ok := documentExtensions[contentType]
	if !ok {
		return nil, ErrUnsupportedContentType
	}

	key := path.Join(s.prefix, userID, ulid.Make().String()+ext)

	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, func(o *s3.PresignOptions) {
		o.Expires = s.ttl
	})
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload: %w", err)
	}

	return &DocumentUpload{
		UploadURL:   req.URL,
		DocumentURL: s.objectURL(key),
		Key:         key,
		ContentType: contentType,
		ExpiresAt:   s.now().Add(s.ttl).UTC(),
	}, nil
}

func (s *DocumentStore) objectURL(key string) string {
	if s.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
