package infra

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscertificatemanager"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// CertificateConfig configures the ACM certificate stack.
type CertificateConfig struct {
	StackOptions `yaml:",inline"`

	// DomainName is the apex domain. The certificate also covers www.<domain>.
	DomainName string `json:"domainName,omitempty" yaml:"domainName,omitempty"`

	// HostedZoneID is the Route53 zone used for DNS validation.
	HostedZoneID string `json:"hostedZoneId" yaml:"hostedZoneId"`
}

// ApplyDefaults fills in unset fields.
func (c *CertificateConfig) ApplyDefaults() {
	if c.DomainName == "" {
		c.DomainName = DefaultDomainName
	}
	if c.Description == "" {
		c.Description = fmt.Sprintf("ACM certificate for %s", c.DomainName)
	}
}

// Validate checks the configuration.
func (c *CertificateConfig) Validate() error {
	var errs []error
	if err := validateDomain("domainName", c.DomainName); err != nil {
		errs = append(errs, err)
	}
	if c.HostedZoneID == "" {
		errs = append(errs, fmt.Errorf("hostedZoneId is required"))
	}
	return joinErrors(errs...)
}

// CertificateStack issues the CloudFront certificate. CloudFront only accepts
// certificates from us-east-1, so this stack is normally pinned there.
type CertificateStack struct {
	awscdk.Stack

	// Config is the stack configuration.
	Config CertificateConfig

	// HostedZone is the imported validation zone.
	HostedZone awsroute53.IHostedZone

	// Certificate is the issued certificate.
	Certificate awscertificatemanager.Certificate
}

// NewCertificateStack creates the certificate stack.
func NewCertificateStack(scope constructs.Construct, id string, config CertificateConfig) *CertificateStack {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		panic(fmt.Sprintf("invalid certificate configuration: %v", err))
	}

	stack := awscdk.NewStack(scope, jsii.String(id), config.stackProps(""))

	s := &CertificateStack{
		Stack:  stack,
		Config: config,
	}

	s.importHostedZone()
	s.createCertificate()
	s.addOutputs()

	return s
}

// CertificateARN returns the certificate ARN token.
func (s *CertificateStack) CertificateARN() *string {
	return s.Certificate.CertificateArn()
}

func (s *CertificateStack) importHostedZone() {
	s.HostedZone = awsroute53.HostedZone_FromHostedZoneAttributes(s.Stack, jsii.String("HostedZone"),
		&awsroute53.HostedZoneAttributes{
			HostedZoneId: jsii.String(s.Config.HostedZoneID),
			ZoneName:     jsii.String(s.Config.DomainName),
		})
}

func (s *CertificateStack) createCertificate() {
	s.Certificate = awscertificatemanager.NewCertificate(s.Stack, jsii.String("Certificate"),
		&awscertificatemanager.CertificateProps{
			DomainName:              jsii.String(s.Config.DomainName),
			SubjectAlternativeNames: jsii.Strings("www." + s.Config.DomainName),
			Validation:              awscertificatemanager.CertificateValidation_FromDns(s.HostedZone),
		})
}

func (s *CertificateStack) addOutputs() {
	awscdk.NewCfnOutput(s.Stack, jsii.String("CertificateArn"), &awscdk.CfnOutputProps{
		Value:       s.Certificate.CertificateArn(),
		Description: jsii.String("ACM Certificate ARN for CloudFront"),
	})
}
