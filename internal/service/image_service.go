package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/jewel_catalog/internal/config"
	"github.com/GTDGit/jewel_catalog/internal/utils"
)

type objectPresigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// ImageService resolves product image URLs. With S3 credentials configured it
// returns presigned GET URLs, otherwise public URLs under the image base.
type ImageService struct {
	presigner objectPresigner
	bucket    string
	prefix    string
	publicURL string
	ttl       time.Duration
}

// NewImageService creates an ImageService from configuration.
func NewImageService(cfg *config.S3Config, publicBaseURL string) (*ImageService, error) {
	if cfg == nil {
		return nil, errors.New("S3 config is nil")
	}

	s := &ImageService{
		bucket:    cfg.Bucket,
		prefix:    strings.Trim(cfg.Prefix, "/"),
		publicURL: strings.TrimSuffix(publicBaseURL, "/"),
		ttl:       cfg.PresignTTL,
	}
	if s.ttl <= 0 {
		s.ttl = 15 * time.Minute
	}

	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		log.Warn().Msg("S3 credentials not configured - serving public image URLs")
		return s, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}
	s.presigner = s3.NewPresignClient(s3.NewFromConfig(awsCfg))
	return s, nil
}

// ImageURL returns a URL for file of designNo.
func (s *ImageService) ImageURL(ctx context.Context, designNo, file string) (string, error) {
	if !validSegment(designNo) || !validSegment(file) {
		return "", fmt.Errorf("%w: invalid image path", utils.ErrValidation)
	}

	if s.presigner == nil {
		return s.publicURL + "/" + url.PathEscape(designNo) + "/" + url.PathEscape(file), nil
	}

	key := path.Join(s.prefix, designNo, file)
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to presign image URL")
		return "", fmt.Errorf("presign image: %w", err)
	}
	return req.URL, nil
}

func validSegment(v string) bool {
	return v != "" && v != "." && v != ".." && !strings.ContainsAny(v, `/\`)
}
