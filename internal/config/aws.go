package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// NewAWSConfig builds the AWS SDK config for the ECS and SQS clients. Static
// credentials and an endpoint override support local development against an
// emulator; in ECS the default chain picks up task-role credentials.
func (c *Config) NewAWSConfig(ctx context.Context) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(c.AWSRegion),
	}
	if c.AWSAccessKey != "" && c.AWSSecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AWSAccessKey, c.AWSSecretKey, ""),
		))
	}
	if c.AWSEndpointURL != "" {
		opts = append(opts, awsconfig.WithBaseEndpoint(c.AWSEndpointURL))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}
