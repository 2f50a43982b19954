package storage

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/outreach-engine/internal/config"
	"github.com/ignite/outreach-engine/internal/service/schedule"
)

type fakeS3 struct {
	inputs []*s3.PutObjectInput
	bodies [][]byte
	err    error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(in.Body)
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

type fakeDynamo struct {
	items []map[string]types.AttributeValue
	err   error
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.items = append(f.items, in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	pk := in.ExpressionAttributeValues[":pk"].(*types.AttributeValueMemberS).Value
	var out []map[string]types.AttributeValue
	for _, item := range f.items {
		if v, ok := item["PK"].(*types.AttributeValueMemberS); ok && v.Value == pk {
			out = append(out, item)
		}
	}
	return &dynamodb.QueryOutput{Items: out}, nil
}

func sampleReport() RunReport {
	started := time.Date(2026, 3, 9, 7, 0, 0, 0, time.UTC)
	return RunReport{
		RunID:      "run-1",
		Trigger:    "cron",
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
		Result: &schedule.Result{
			Success:   true,
			Scheduled: 4,
			Failed:    1,
			Stats:     schedule.Stats{Assignments: 5},
			Duration:  3 * time.Second,
		},
	}
}

func TestReportKey(t *testing.T) {
	assert.Equal(t, "reports/2026/03/09/run-1.json", reportKey(sampleReport()))
}

func TestS3Archive_Save(t *testing.T) {
	client := &fakeS3{}
	a := NewS3Archive(client, "bucket")

	require.NoError(t, a.Save(context.Background(), sampleReport()))
	require.Len(t, client.inputs, 1)
	assert.Equal(t, "bucket", aws.ToString(client.inputs[0].Bucket))
	assert.Equal(t, "reports/2026/03/09/run-1.json", aws.ToString(client.inputs[0].Key))
	assert.Equal(t, "application/json", aws.ToString(client.inputs[0].ContentType))
	assert.Contains(t, string(client.bodies[0]), `"run_id":"run-1"`)
}

func TestS3Archive_Error(t *testing.T) {
	a := NewS3Archive(&fakeS3{err: errors.New("denied")}, "bucket")
	err := a.Save(context.Background(), sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "denied")
}

func TestDynamoArchive_SaveAndQuery(t *testing.T) {
	client := &fakeDynamo{}
	a := NewDynamoArchive(client, "runs")
	r := sampleReport()

	require.NoError(t, a.Save(context.Background(), r))
	require.Len(t, client.items, 1)

	var item RunIndexItem
	require.NoError(t, attributevalue.UnmarshalMap(client.items[0], &item))
	assert.Equal(t, "RUN#2026-03-09", item.PK)
	assert.Equal(t, "2026-03-09T07:00:00Z", item.SK)
	assert.Equal(t, 4, item.Scheduled)
	assert.Equal(t, 1, item.Failed)
	assert.Equal(t, 5, item.Assignments)
	assert.Equal(t, int64(3000), item.DurationMS)
	assert.Equal(t, r.StartedAt.Add(90*24*time.Hour).Unix(), item.TTL)

	runs, err := a.RunsOn(context.Background(), r.StartedAt)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].RunID)

	runs, err = a.RunsOn(context.Background(), r.StartedAt.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestDynamoArchive_FailedRunWithoutResult(t *testing.T) {
	client := &fakeDynamo{}
	r := sampleReport()
	r.Result = nil
	r.Error = "allocation: database down"

	require.NoError(t, NewDynamoArchive(client, "runs").Save(context.Background(), r))

	var item RunIndexItem
	require.NoError(t, attributevalue.UnmarshalMap(client.items[0], &item))
	assert.False(t, item.Success)
	assert.Equal(t, "allocation: database down", item.Error)
}

func TestFileArchive_RoundTrip(t *testing.T) {
	a := NewFileArchive(t.TempDir())
	r := sampleReport()

	require.NoError(t, a.Save(context.Background(), r))
	got, err := a.Load(r.StartedAt, r.RunID)
	require.NoError(t, err)
	assert.Equal(t, r.RunID, got.RunID)
	assert.Equal(t, 4, got.Result.Scheduled)
	assert.True(t, got.StartedAt.Equal(r.StartedAt))
}

func TestMultiArchive_JoinsErrors(t *testing.T) {
	ok := &fakeS3{}
	m := MultiArchive{
		NewS3Archive(ok, "b"),
		NewDynamoArchive(&fakeDynamo{err: errors.New("throttled")}, "t"),
	}

	err := m.Save(context.Background(), sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
	assert.Len(t, ok.inputs, 1, "a failing archive does not stop the others")
}

func TestOpen(t *testing.T) {
	a, err := Open(context.Background(), config.ArchiveConfig{})
	require.NoError(t, err)
	assert.Nil(t, a)

	dir := t.TempDir()
	a, err = Open(context.Background(), config.ArchiveConfig{Enabled: true, LocalPath: dir})
	require.NoError(t, err)
	require.IsType(t, &FileArchive{}, a)
}
