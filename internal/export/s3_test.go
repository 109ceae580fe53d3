package export

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/ai-judge/ai-judge/internal/config"
	"github.com/ai-judge/ai-judge/internal/logging"
	"github.com/ai-judge/ai-judge/internal/messages"
	"github.com/ai-judge/ai-judge/internal/serviceerrors"
	"github.com/ai-judge/ai-judge/pkg/api"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/go-cmp/cmp"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3Exporter(t *testing.T) {
	run := &api.Run{ID: "r1", QueueID: "q1", Status: api.RunStatusCompleted, PlannedCount: 2, CompletedCount: 2}
	summary := &api.RunSummary{TotalEvaluations: 2, SuccessfulEvaluations: 2, SuccessRate: 100, JudgePerformance: []api.JudgePerformance{}, Errors: []string{}}

	t.Run("uploads the run document", func(t *testing.T) {
		client := &fakePutter{}
		exporter := newS3Exporter(client, "bucket", "/exports/", logging.FallbackLogger())
		if err := exporter.Export(context.Background(), run, summary); err != nil {
			t.Fatalf("Export() failed: %v", err)
		}
		if aws.ToString(client.input.Bucket) != "bucket" || aws.ToString(client.input.Key) != "exports/runs/q1/r1.json" {
			t.Fatalf("unexpected object %s/%s", aws.ToString(client.input.Bucket), aws.ToString(client.input.Key))
		}
		if aws.ToString(client.input.ContentType) != "application/json" {
			t.Fatalf("unexpected content type %s", aws.ToString(client.input.ContentType))
		}
		document := RunDocument{}
		if err := json.Unmarshal(client.body, &document); err != nil {
			t.Fatalf("failed to decode the uploaded document: %v", err)
		}
		if diff := cmp.Diff(summary, document.Summary); diff != "" {
			t.Fatalf("unexpected summary (-want +got):\n%s", diff)
		}
		if document.Run.ID != run.ID || document.Run.Status != run.Status {
			t.Fatalf("unexpected run %+v", document.Run)
		}
	})

	t.Run("no prefix", func(t *testing.T) {
		exporter := newS3Exporter(&fakePutter{}, "bucket", "", logging.FallbackLogger())
		if key := exporter.ObjectKey(run); key != "runs/q1/r1.json" {
			t.Fatalf("unexpected key %s", key)
		}
	})

	t.Run("upload failure is an export error", func(t *testing.T) {
		exporter := newS3Exporter(&fakePutter{err: errors.New("access denied")}, "bucket", "", logging.FallbackLogger())
		err := exporter.Export(context.Background(), run, summary)
		if !errors.Is(err, serviceerrors.NewServiceError(messages.ExportFailed)) {
			t.Fatalf("expected an export error, got %v", err)
		}
	})
}

func TestNewS3ExporterRequiresBucket(t *testing.T) {
	for _, cfg := range []*config.S3ExportConfig{nil, {Enabled: true, Bucket: "  "}} {
		if _, err := NewS3Exporter(context.Background(), cfg, logging.FallbackLogger()); err == nil {
			t.Fatalf("expected an error for %+v", cfg)
		}
	}
}
