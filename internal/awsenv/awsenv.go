// Package awsenv loads AWS configuration for the command line tools and
// hands out lazily created service clients.
package awsenv

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// Defaults used when the environment does not name a profile or region.
const (
	DefaultProfile = "yvovanzee"
	DefaultRegion  = "eu-west-1"
)

// ErrProfileNotFound is returned when a named profile is missing from the
// shared AWS config and credentials files.
var ErrProfileNotFound = errors.New("AWS profile not found")

// Context holds the profile and region the clients are created for.
type Context struct {
	Profile string
	Region  string
	config  *aws.Config
}

// FromEnv returns a Context from AWS_PROFILE and CDK_DEFAULT_REGION,
// falling back to DefaultProfile and DefaultRegion.
func FromEnv() Context {
	return Context{
		Profile: envOr("AWS_PROFILE", DefaultProfile),
		Region:  envOr("CDK_DEFAULT_REGION", DefaultRegion),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// LoadConfig loads the SDK configuration for c.
func LoadConfig(ctx context.Context, c Context) (aws.Config, error) {
	opts := make([]func(*config.LoadOptions) error, 0, 2)
	if c.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(c.Profile))
	}
	if c.Region != "" {
		opts = append(opts, config.WithRegion(c.Region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS config: %w", err)
	}
	return cfg, nil
}

// Config loads the SDK configuration once and caches it.
func (c *Context) Config(ctx context.Context) (aws.Config, error) {
	if c.config == nil {
		cfg, err := LoadConfig(ctx, *c)
		if err != nil {
			return aws.Config{}, err
		}
		c.config = &cfg
	}
	return *c.config, nil
}

// CheckProfile verifies that profile is defined in the shared config or
// credentials file. AWS_CONFIG_FILE and AWS_SHARED_CREDENTIALS_FILE are honored.
func CheckProfile(ctx context.Context, profile string) error {
	_, err := config.LoadSharedConfigProfile(ctx, profile, sharedFilesFromEnv)
	if err == nil {
		return nil
	}
	var missing config.SharedConfigProfileNotExistError
	if errors.As(err, &missing) {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, profile)
	}
	return fmt.Errorf("reading profile %s: %w", profile, err)
}

func sharedFilesFromEnv(o *config.LoadSharedConfigOptions) {
	if f := os.Getenv("AWS_CONFIG_FILE"); f != "" {
		o.ConfigFiles = []string{f}
	}
	if f := os.Getenv("AWS_SHARED_CREDENTIALS_FILE"); f != "" {
		o.CredentialsFiles = []string{f}
	}
}

// Clients creates service clients on first use.
type Clients struct {
	cfg aws.Config

	cfn            *cloudformation.Client
	cloudFront     *cloudfront.Client
	route53        *route53.Client
	s3             *s3.Client
	secretsManager *secretsmanager.Client
	sts            *sts.Client
}

// NewClients loads the configuration for c and returns a client set.
func NewClients(ctx context.Context, c Context) (*Clients, error) {
	cfg, err := LoadConfig(ctx, c)
	if err != nil {
		return nil, err
	}
	return NewClientsFromConfig(cfg), nil
}

// NewClientsFromConfig returns a client set for cfg.
func NewClientsFromConfig(cfg aws.Config) *Clients {
	return &Clients{cfg: cfg}
}

// Region returns the configured region.
func (c *Clients) Region() string {
	return c.cfg.Region
}

// CloudFormation returns the CloudFormation client.
func (c *Clients) CloudFormation() *cloudformation.Client {
	if c.cfn == nil {
		c.cfn = cloudformation.NewFromConfig(c.cfg)
	}
	return c.cfn
}

// CloudFront returns the CloudFront client.
func (c *Clients) CloudFront() *cloudfront.Client {
	if c.cloudFront == nil {
		c.cloudFront = cloudfront.NewFromConfig(c.cfg)
	}
	return c.cloudFront
}

// Route53 returns the Route 53 client.
func (c *Clients) Route53() *route53.Client {
	if c.route53 == nil {
		c.route53 = route53.NewFromConfig(c.cfg)
	}
	return c.route53
}

// S3 returns the S3 client.
func (c *Clients) S3() *s3.Client {
	if c.s3 == nil {
		c.s3 = s3.NewFromConfig(c.cfg)
	}
	return c.s3
}

// SecretsManager returns the Secrets Manager client.
func (c *Clients) SecretsManager() *secretsmanager.Client {
	if c.secretsManager == nil {
		c.secretsManager = secretsmanager.NewFromConfig(c.cfg)
	}
	return c.secretsManager
}

// STS returns the STS client.
func (c *Clients) STS() *sts.Client {
	if c.sts == nil {
		c.sts = sts.NewFromConfig(c.cfg)
	}
	return c.sts
}
