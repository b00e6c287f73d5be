package loader

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
)

// S3Config locates ingestion output in a bucket.
type S3Config struct {
	Bucket       string
	Prefix       string
	Region       string
	AWSAccessKey string
	AWSSecretKey string
}

// s3API is the subset of the S3 client the source needs.
type s3API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source loads ingestion files stored under a bucket prefix.
type S3Source struct {
	client s3API
	bucket string
	prefix string
}

// NewS3Source creates a source from AWS configuration. Static credentials
// are used when both keys are set, otherwise the default chain applies.
func NewS3Source(ctx context.Context, cfg S3Config) (*S3Source, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 corpus source: bucket is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return newS3SourceWithClient(s3.NewFromConfig(awsCfg), cfg.Bucket, cfg.Prefix), nil
}

func loadAWSConfig(ctx context.Context, cfg S3Config) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AWSAccessKey != "" && cfg.AWSSecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKey, cfg.AWSSecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS config: %w", err)
	}
	return awsCfg, nil
}

func newS3SourceWithClient(client s3API, bucket, prefix string) *S3Source {
	return &S3Source{client: client, bucket: bucket, prefix: prefix}
}

// Location returns the s3:// URL being read.
func (s *S3Source) Location() string {
	return "s3://" + s.bucket + "/" + s.prefix
}

// Load lists the prefix and decodes every ingestion file, in key order.
// Objects that fail to download or decode are skipped with a warning.
func (s *S3Source) Load(ctx context.Context) ([]entities.Document, []error, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, nil, &entities.CorpusLoadError{Path: s.Location(), Err: err}
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, ExtractedSuffix) {
				keys = append(keys, key)
			}
		}
	}
	sort.Strings(keys)

	var (
		docs     []entities.Document
		warnings []error
	)
	for _, key := range keys {
		doc, err := s.loadObject(ctx, key)
		if err != nil {
			warnings = append(warnings, &entities.CorpusLoadError{Path: "s3://" + s.bucket + "/" + key, Err: err})
			continue
		}
		docs = append(docs, doc)
	}
	if len(keys) == 0 {
		warnings = append(warnings, &entities.CorpusLoadError{
			Path: s.Location(),
			Err:  fmt.Errorf("no *%s objects", ExtractedSuffix),
		})
	}
	return docs, warnings, nil
}

func (s *S3Source) loadObject(ctx context.Context, key string) (entities.Document, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return entities.Document{}, fmt.Errorf("downloading %s: %w", key, err)
	}
	defer out.Body.Close()

	name := key
	if i := strings.LastIndex(key, "/"); i >= 0 {
		name = key[i+1:]
	}
	return Decode(out.Body, name)
}
