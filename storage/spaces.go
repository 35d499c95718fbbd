package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/nijaru/swing-analysis/models"
	pkgerrors "github.com/pkg/errors"
)

const defaultPrefix = "analyses"

type SpacesConfig struct {
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
}

// Enabled reports whether enough is configured to upload.
func (c SpacesConfig) Enabled() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// SpacesClient archives analyses as JSON objects in a DigitalOcean Spaces
// (or any S3 compatible) bucket.
type SpacesClient struct {
	client objectPutter
	bucket string
	prefix string
}

func NewSpacesClient(ctx context.Context, cfg SpacesConfig) (*SpacesClient, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		config.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "unable to load SDK config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newSpacesClient(client, cfg), nil
}

func newSpacesClient(client objectPutter, cfg SpacesConfig) *SpacesClient {
	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &SpacesClient{
		client: client,
		bucket: cfg.Bucket,
		prefix: prefix,
	}
}

func (s *SpacesClient) Key(id string) string {
	return fmt.Sprintf("%s/%s.json", s.prefix, id)
}

// Archive uploads the full analysis record under Key(record.ID).
func (s *SpacesClient) Archive(ctx context.Context, record *models.AnalysisRecord) error {
	jsonData, err := json.Marshal(record)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to marshal analysis")
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.Key(record.ID)),
		Body:        bytes.NewReader(jsonData),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to save analysis %s to Spaces", record.ID)
	}

	return nil
}
