// Package export uploads run summaries to object storage.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/ai-judge/ai-judge/internal/config"
	"github.com/ai-judge/ai-judge/internal/messages"
	"github.com/ai-judge/ai-judge/internal/serviceerrors"
	"github.com/ai-judge/ai-judge/pkg/api"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const defaultRegion = "us-east-1"

// Exporter receives every finalized run with its summary.
type Exporter interface {
	Export(ctx context.Context, run *api.Run, summary *api.RunSummary) error
}

// objectPutter is the part of the S3 client used by the exporter.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// RunDocument is the JSON object written for each run.
type RunDocument struct {
	Run     *api.Run        `json:"run"`
	Summary *api.RunSummary `json:"summary"`
}

type S3Exporter struct {
	client objectPutter
	bucket string
	prefix string
	logger *slog.Logger
}

// NewS3Exporter creates an exporter for cfg. Static credentials are used
// when both keys are set, the default AWS credential chain otherwise.
func NewS3Exporter(ctx context.Context, cfg *config.S3ExportConfig, logger *slog.Logger) (*S3Exporter, error) {
	if cfg == nil || strings.TrimSpace(cfg.Bucket) == "" {
		return nil, serviceerrors.NewServiceError(messages.ConfigurationFailed, "Error", "the export bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = defaultRegion
	}

	loadOptions := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, serviceerrors.NewServiceError(messages.ConfigurationFailed, "Error", fmt.Sprintf("failed to load the AWS configuration: %s", err.Error()))
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	logger.Info("Run export enabled", "bucket", cfg.Bucket, "prefix", cfg.Prefix, "region", region)
	return newS3Exporter(client, cfg.Bucket, cfg.Prefix, logger), nil
}

func newS3Exporter(client objectPutter, bucket string, prefix string, logger *slog.Logger) *S3Exporter {
	return &S3Exporter{
		client: client,
		bucket: strings.TrimSpace(bucket),
		prefix: strings.Trim(prefix, "/"),
		logger: logger,
	}
}

// ObjectKey returns <prefix>/runs/<queueId>/<runId>.json.
func (e *S3Exporter) ObjectKey(run *api.Run) string {
	return path.Join(e.prefix, "runs", run.QueueID, run.ID+".json")
}

func (e *S3Exporter) Export(ctx context.Context, run *api.Run, summary *api.RunSummary) error {
	body, err := json.Marshal(RunDocument{Run: run, Summary: summary})
	if err != nil {
		return serviceerrors.NewServiceError(messages.ExportFailed, "RunId", run.ID, "Error", err.Error())
	}

	key := e.ObjectKey(run)
	_, err = e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"queue-id": run.QueueID,
			"status":   string(run.Status),
		},
	})
	if err != nil {
		return serviceerrors.NewServiceError(messages.ExportFailed, "RunId", run.ID, "Error", err.Error())
	}

	e.logger.Info("Run exported", "run_id", run.ID, "bucket", e.bucket, "key", key)
	return nil
}
