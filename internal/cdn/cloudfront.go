package cdn

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
)

type CloudFrontConfig struct {
	Region    string
	AccessKey string
	SecretKey string
}

type CloudFrontInvalidator struct {
	client *cloudfront.Client
}

func NewCloudFrontInvalidator(client *cloudfront.Client) *CloudFrontInvalidator {
	return &CloudFrontInvalidator{client: client}
}

func NewCloudFrontInvalidatorWithConfig(ctx context.Context, cfg *CloudFrontConfig) (*CloudFrontInvalidator, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return NewCloudFrontInvalidator(cloudfront.NewFromConfig(awsCfg)), nil
}

func (c *CloudFrontInvalidator) Invalidate(ctx context.Context, distributionID string, paths []string) (string, error) {
	if len(paths) == 0 {
		return "", nil
	}

	resp, err := c.client.CreateInvalidation(ctx, &cloudfront.CreateInvalidationInput{
		DistributionId: aws.String(distributionID),
		InvalidationBatch: &types.InvalidationBatch{
			// unique per request so repeated syncs are not deduplicated
			CallerReference: aws.String(fmt.Sprintf("assetsync-%d", time.Now().UnixNano())),
			Paths: &types.Paths{
				Quantity: aws.Int32(int32(len(paths))),
				Items:    paths,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("create invalidation: %w", err)
	}

	return aws.ToString(resp.Invalidation.Id), nil
}

var _ Invalidator = (*CloudFrontInvalidator)(nil)
