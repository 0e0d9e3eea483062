package infra

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscertificatemanager"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudfront"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudfrontorigins"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53targets"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"github.com/buildinginthecloud/site/internal/sitemeta"
)

// DefaultWebsitePath is where the static export of the site is written.
const DefaultWebsitePath = sitemeta.WebsitePath

// Output names shared with the publish and validation tools.
const (
	OutputWebsiteBucketName      = "WebsiteBucketName"
	OutputDistributionID         = "DistributionId"
	OutputDistributionDomainName = "DistributionDomainName"
	OutputWebsiteURL             = "WebsiteUrl"
)

// StaticHostingConfig configures the S3 + CloudFront hosting stack.
type StaticHostingConfig struct {
	StackOptions `yaml:",inline"`

	// DomainName is the apex domain served by the distribution.
	DomainName string `json:"domainName,omitempty" yaml:"domainName,omitempty"`

	// HostedZoneID is the Route53 zone receiving the alias records.
	HostedZoneID string `json:"hostedZoneId" yaml:"hostedZoneId"`

	// CertificateARN is a us-east-1 ACM certificate covering domain and www.
	// It may be a token exported by the certificate stack.
	CertificateARN string `json:"certificateArn" yaml:"certificateArn"`

	// GitHubActionsRoleARN, when set, is granted access to sync the bucket
	// and invalidate the distribution.
	GitHubActionsRoleARN string `json:"githubActionsRoleArn,omitempty" yaml:"githubActionsRoleArn,omitempty"`

	// WebsitePath is the local directory uploaded by the publish tool.
	WebsitePath string `json:"websitePath,omitempty" yaml:"websitePath,omitempty"`
}

// ApplyDefaults fills in unset fields.
func (c *StaticHostingConfig) ApplyDefaults() {
	if c.DomainName == "" {
		c.DomainName = DefaultDomainName
	}
	if c.WebsitePath == "" {
		c.WebsitePath = DefaultWebsitePath
	}
	if c.Description == "" {
		c.Description = fmt.Sprintf("Static website hosting for %s", c.DomainName)
	}
}

// Validate checks the configuration.
func (c *StaticHostingConfig) Validate() error {
	var errs []error
	if err := validateDomain("domainName", c.DomainName); err != nil {
		errs = append(errs, err)
	}
	if c.HostedZoneID == "" {
		errs = append(errs, fmt.Errorf("hostedZoneId is required"))
	}
	if c.CertificateARN == "" {
		errs = append(errs, fmt.Errorf("certificateArn is required"))
	}
	return joinErrors(errs...)
}

// BucketName returns the name of the website bucket.
func (c *StaticHostingConfig) BucketName() string {
	return dashed(c.DomainName) + "-website"
}

// StaticHostingStack serves the exported site from a private bucket through CloudFront.
type StaticHostingStack struct {
	awscdk.Stack

	// Config is the stack configuration.
	Config StaticHostingConfig

	// HostedZone is the imported zone for the domain.
	HostedZone awsroute53.IHostedZone

	// Certificate is the imported us-east-1 certificate.
	Certificate awscertificatemanager.ICertificate

	// Bucket holds the site content.
	Bucket awss3.Bucket

	// Distribution is the CloudFront distribution in front of the bucket.
	Distribution awscloudfront.Distribution

	// DeployRole is the imported GitHub Actions role, if configured.
	DeployRole awsiam.IRole
}

// NewStaticHostingStack creates the static hosting stack.
func NewStaticHostingStack(scope constructs.Construct, id string, config StaticHostingConfig) *StaticHostingStack {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		panic(fmt.Sprintf("invalid static hosting configuration: %v", err))
	}

	stack := awscdk.NewStack(scope, jsii.String(id), config.stackProps(""))

	s := &StaticHostingStack{
		Stack:  stack,
		Config: config,
	}

	s.importDependencies()
	s.createBucket()
	s.createDistribution()
	s.createRecords()
	s.grantDeployRole()
	s.addOutputs()

	return s
}

func (s *StaticHostingStack) importDependencies() {
	s.HostedZone = awsroute53.HostedZone_FromHostedZoneAttributes(s.Stack, jsii.String("HostedZone"),
		&awsroute53.HostedZoneAttributes{
			HostedZoneId: jsii.String(s.Config.HostedZoneID),
			ZoneName:     jsii.String(s.Config.DomainName),
		})

	s.Certificate = awscertificatemanager.Certificate_FromCertificateArn(s.Stack,
		jsii.String("Certificate"), jsii.String(s.Config.CertificateARN))
}

func (s *StaticHostingStack) createBucket() {
	s.Bucket = awss3.NewBucket(s.Stack, jsii.String("WebsiteBucket"), &awss3.BucketProps{
		BucketName:        jsii.String(s.Config.BucketName()),
		RemovalPolicy:     awscdk.RemovalPolicy_RETAIN,
		BlockPublicAccess: awss3.BlockPublicAccess_BLOCK_ALL(),
		Encryption:        awss3.BucketEncryption_S3_MANAGED,
		Versioned:         jsii.Bool(true),
	})
}

func (s *StaticHostingStack) createDistribution() {
	oac := awscloudfront.NewS3OriginAccessControl(s.Stack, jsii.String("OAC"),
		&awscloudfront.S3OriginAccessControlProps{
			Signing: awscloudfront.Signing_SIGV4_ALWAYS(),
		})

	errorTTL := awscdk.Duration_Minutes(jsii.Number(5))

	s.Distribution = awscloudfront.NewDistribution(s.Stack, jsii.String("Distribution"),
		&awscloudfront.DistributionProps{
			DefaultBehavior: &awscloudfront.BehaviorOptions{
				Origin: awscloudfrontorigins.S3BucketOrigin_WithOriginAccessControl(s.Bucket,
					&awscloudfrontorigins.S3BucketOriginWithOACProps{
						OriginAccessControl: oac,
					}),
				ViewerProtocolPolicy: awscloudfront.ViewerProtocolPolicy_REDIRECT_TO_HTTPS,
				CachePolicy:          awscloudfront.CachePolicy_CACHING_OPTIMIZED(),
				Compress:             jsii.Bool(true),
			},
			DomainNames:       jsii.Strings(s.Config.DomainName, "www."+s.Config.DomainName),
			Certificate:       s.Certificate,
			DefaultRootObject: jsii.String("index.html"),
			ErrorResponses: &[]*awscloudfront.ErrorResponse{
				{
					HttpStatus:         jsii.Number(404),
					ResponseHttpStatus: jsii.Number(200),
					ResponsePagePath:   jsii.String("/404.html"),
					Ttl:                errorTTL,
				},
				{
					HttpStatus:         jsii.Number(403),
					ResponseHttpStatus: jsii.Number(200),
					ResponsePagePath:   jsii.String("/index.html"),
					Ttl:                errorTTL,
				},
			},
			PriceClass:  awscloudfront.PriceClass_PRICE_CLASS_100,
			HttpVersion: awscloudfront.HttpVersion_HTTP2_AND_3,
		})
}

func (s *StaticHostingStack) createRecords() {
	target := awsroute53.RecordTarget_FromAlias(awsroute53targets.NewCloudFrontTarget(s.Distribution))

	awsroute53.NewARecord(s.Stack, jsii.String("AliasRecord"), &awsroute53.ARecordProps{
		Zone:       s.HostedZone,
		RecordName: jsii.String(s.Config.DomainName),
		Target:     target,
	})

	awsroute53.NewARecord(s.Stack, jsii.String("WwwAliasRecord"), &awsroute53.ARecordProps{
		Zone:       s.HostedZone,
		RecordName: jsii.String("www." + s.Config.DomainName),
		Target:     target,
	})
}

// grantDeployRole lets the CI role sync content and invalidate the cache.
func (s *StaticHostingStack) grantDeployRole() {
	if s.Config.GitHubActionsRoleARN == "" {
		return
	}

	s.DeployRole = awsiam.Role_FromRoleArn(s.Stack, jsii.String("GitHubActionsRole"),
		jsii.String(s.Config.GitHubActionsRoleARN), &awsiam.FromRoleArnOptions{})

	s.Bucket.GrantReadWrite(s.DeployRole, nil)
	s.Bucket.GrantDelete(s.DeployRole, nil)

	distributionARN := fmt.Sprintf("arn:aws:cloudfront::%s:distribution/%s",
		*s.Account(), *s.Distribution.DistributionId())

	s.DeployRole.AddToPrincipalPolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Effect:    awsiam.Effect_ALLOW,
		Actions:   jsii.Strings("cloudfront:CreateInvalidation"),
		Resources: jsii.Strings(distributionARN),
	}))
}

func (s *StaticHostingStack) addOutputs() {
	awscdk.NewCfnOutput(s.Stack, jsii.String(OutputWebsiteBucketName), &awscdk.CfnOutputProps{
		Value:       s.Bucket.BucketName(),
		Description: jsii.String("S3 bucket holding the website content"),
	})

	awscdk.NewCfnOutput(s.Stack, jsii.String(OutputDistributionID), &awscdk.CfnOutputProps{
		Value:       s.Distribution.DistributionId(),
		Description: jsii.String("CloudFront distribution ID"),
	})

	awscdk.NewCfnOutput(s.Stack, jsii.String(OutputDistributionDomainName), &awscdk.CfnOutputProps{
		Value:       s.Distribution.DistributionDomainName(),
		Description: jsii.String("CloudFront distribution domain name"),
	})

	awscdk.NewCfnOutput(s.Stack, jsii.String(OutputWebsiteURL), &awscdk.CfnOutputProps{
		Value:       jsii.String("https://" + s.Config.DomainName),
		Description: jsii.String("Website URL"),
	})
}
