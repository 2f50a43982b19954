package storage

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ignite/outreach-engine/internal/config"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
)

// Open builds the archive described by cfg. It returns nil when archiving
// is disabled. Without a bucket or table, reports go to LocalPath
// (default ./data/reports).
func Open(ctx context.Context, cfg config.ArchiveConfig) (Archive, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	if cfg.S3Bucket == "" && cfg.DynamoDBTable == "" {
		dir := cfg.LocalPath
		if dir == "" {
			dir = "./data/reports"
		}
		logger.Info("run archive using local files", "component", "storage", "path", dir)
		return NewFileArchive(dir), nil
	}

	awsCfg, err := LoadAWSConfig(ctx, cfg.AWSRegion, cfg.GetAWSProfile())
	if err != nil {
		return nil, err
	}

	var archives MultiArchive
	if cfg.S3Bucket != "" {
		archives = append(archives, NewS3Archive(s3.NewFromConfig(awsCfg), cfg.S3Bucket))
	}
	if cfg.DynamoDBTable != "" {
		archives = append(archives, NewDynamoArchive(dynamodb.NewFromConfig(awsCfg), cfg.DynamoDBTable))
	}
	logger.Info("run archive configured",
		"component", "storage",
		"bucket", cfg.S3Bucket,
		"table", cfg.DynamoDBTable,
		"region", cfg.AWSRegion,
	)
	return archives, nil
}
