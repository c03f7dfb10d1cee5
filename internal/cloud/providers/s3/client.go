// Package s3 implements the S3-style StageStorage variants.
// This file contains the S3 client factory.
package s3

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/stagelink/stagelink/internal/cloud/stage"
	"github.com/stagelink/stagelink/internal/config"
	"github.com/stagelink/stagelink/internal/constants"
	"github.com/stagelink/stagelink/internal/http"
)

// newClient builds a fresh S3 SDK client for one logical operation from the
// stage credentials. Clients are deliberately not pooled or cached; see the
// internal/http package doc for the policy.
//
// The retry policy lives in the HTTP transport (bounded count, default
// backoff, fixed connect timeout), so the SDK retryer is disabled to avoid
// retrying each request once per layer.
func newClient(ctx context.Context, cfg *config.Config, credentials map[string]string) (*awss3.Client, error) {
	httpClient, err := http.NewTransportClient(cfg, cfg.Parallelism)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport client: %w", err)
	}

	region := credentials[stage.CredAWSRegion]
	if region == "" {
		region = constants.DefaultRegion
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithHTTPClient(httpClient),
		awsconfig.WithCredentialsProvider(awscreds.NewStaticCredentialsProvider(
			credentials[stage.CredAWSKeyID],
			credentials[stage.CredAWSSecretKey],
			credentials[stage.CredAWSToken],
		)),
		awsconfig.WithRetryer(func() aws.Retryer {
			return aws.NopRetryer{}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return awss3.NewFromConfig(awsCfg), nil
}
