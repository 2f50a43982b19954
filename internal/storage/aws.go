package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the subset of the S3 client used here.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// DynamoAPI is the subset of the DynamoDB client used here.
type DynamoAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// LoadAWSConfig loads AWS configuration for a region and optional profile.
func LoadAWSConfig(ctx context.Context, region, profile string) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS config: %w", err)
	}
	return cfg, nil
}

// S3Archive stores each report as a JSON object.
type S3Archive struct {
	client S3API
	bucket string
}

// NewS3Archive creates an S3 archive.
func NewS3Archive(client S3API, bucket string) *S3Archive {
	return &S3Archive{client: client, bucket: bucket}
}

// Save implements Archive.
func (a *S3Archive) Save(ctx context.Context, r RunReport) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(reportKey(r)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("putting report to S3: %w", err)
	}
	return nil
}

// RunIndexItem is the DynamoDB row written per run.
type RunIndexItem struct {
	PK          string `dynamodbav:"PK"`
	SK          string `dynamodbav:"SK"`
	RunID       string `dynamodbav:"RunID"`
	Trigger     string `dynamodbav:"Trigger"`
	DryRun      bool   `dynamodbav:"DryRun"`
	Success     bool   `dynamodbav:"Success"`
	Scheduled   int    `dynamodbav:"Scheduled"`
	Failed      int    `dynamodbav:"Failed"`
	Assignments int    `dynamodbav:"Assignments"`
	DurationMS  int64  `dynamodbav:"DurationMS"`
	Error       string `dynamodbav:"Error,omitempty"`
	TTL         int64  `dynamodbav:"TTL,omitempty"`
}

// DynamoArchive writes a run index row per report.
type DynamoArchive struct {
	client DynamoAPI
	table  string
	ttl    time.Duration
}

// NewDynamoArchive creates a DynamoDB run index. Rows expire after 90 days.
func NewDynamoArchive(client DynamoAPI, table string) *DynamoArchive {
	return &DynamoArchive{client: client, table: table, ttl: 90 * 24 * time.Hour}
}

func runPK(day time.Time) string { return "RUN#" + day.UTC().Format("2006-01-02") }

// Save implements Archive.
func (a *DynamoArchive) Save(ctx context.Context, r RunReport) error {
	item := RunIndexItem{
		PK:      runPK(r.StartedAt),
		SK:      r.StartedAt.UTC().Format(time.RFC3339Nano),
		RunID:   r.RunID,
		Trigger: r.Trigger,
		DryRun:  r.DryRun,
		Error:   r.Error,
		TTL:     r.StartedAt.Add(a.ttl).Unix(),
	}
	if res := r.Result; res != nil {
		item.Success = res.Success
		item.Scheduled = res.Scheduled
		item.Failed = res.Failed
		item.Assignments = res.Stats.Assignments
		item.DurationMS = res.Duration.Milliseconds()
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshaling item: %w", err)
	}
	_, err = a.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(a.table),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("putting item to DynamoDB: %w", err)
	}
	return nil
}

// RunsOn returns the run index rows for a business day, oldest first.
func (a *DynamoArchive) RunsOn(ctx context.Context, day time.Time) ([]RunIndexItem, error) {
	out, err := a.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(a.table),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: runPK(day)},
		},
		ScanIndexForward: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying DynamoDB: %w", err)
	}
	var items []RunIndexItem
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, fmt.Errorf("unmarshaling items: %w", err)
	}
	return items, nil
}
