// Package boot wires the AWS-backed collaborators of the server at startup:
// AWS config, the media bucket, the settings table, and secrets held in SSM
// Parameter Store. Optional resources degrade to local fallbacks with a
// warning instead of failing startup.
package boot

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"github.com/fpang/meta-ad-uploader/internal/logging"
	"github.com/fpang/meta-ad-uploader/internal/s3util"
	"github.com/fpang/meta-ad-uploader/internal/settings"
)

// AWSClients holds the loaded AWS config and the SSM client.
type AWSClients struct {
	Config aws.Config
	SSM    *ssm.Client
}

// InitAWS loads the default AWS config chain.
func InitAWS(ctx context.Context) (AWSClients, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return AWSClients{}, fmt.Errorf("load AWS config: %w", err)
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	return AWSClients{Config: cfg, SSM: ssm.NewFromConfig(cfg)}, nil
}

// InitMediaBucket returns the media bucket, or nil when no bucket is
// configured. Without a bucket, presigned uploads are disabled and object
// cleanup is skipped.
func InitMediaBucket(cfg aws.Config, bucket string) *s3util.Bucket {
	if bucket == "" {
		log.Warn().Msg("Media bucket not set, presigned uploads disabled")
		return nil
	}
	return s3util.FromClient(bucket, s3.NewFromConfig(cfg))
}

// InitSettings returns the DynamoDB settings store, or static empty settings
// when no table is configured.
func InitSettings(cfg aws.Config, table string) settings.Store {
	if table == "" {
		log.Warn().Msg("Settings table not set, using empty account settings")
		return settings.Static{}
	}
	return settings.NewDynamoStore(dynamodb.NewFromConfig(cfg), table)
}

// ParameterGetter is the subset of the SSM client used by LoadSecret.
type ParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// LoadSecret returns current when it is already set, otherwise the decrypted
// value of the SSM parameter. An empty paramName yields an empty secret.
func LoadSecret(ctx context.Context, client ParameterGetter, current, paramName string) (string, error) {
	if current != "" || paramName == "" {
		return current, nil
	}
	if client == nil {
		return "", fmt.Errorf("SSM client not configured for parameter %s", paramName)
	}

	start := time.Now()
	result, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &paramName,
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("read SSM parameter %s: %w", paramName, err)
	}
	if result.Parameter == nil || result.Parameter.Value == nil {
		return "", fmt.Errorf("SSM parameter %s has no value", paramName)
	}
	log.Debug().Str("param", paramName).Dur("elapsed", time.Since(start)).Msg("Secret loaded from SSM")
	return *result.Parameter.Value, nil
}

// StartupLog is a convenience wrapper for the startup logger.
func StartupLog(name string, initStart time.Time) *logging.StartupLogger {
	return logging.NewStartupLogger(name).InitDuration(time.Since(initStart))
}
