package infra

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"github.com/buildinginthecloud/site/internal/sitemeta"
)

// MailExchange is a single MX target.
type MailExchange = sitemeta.MailExchange

// MailExchanges are the iCloud custom domain mail servers.
var MailExchanges = sitemeta.MailExchanges

const (
	// SPFRecord authorises iCloud to send mail for the domain.
	SPFRecord = sitemeta.SPFRecord

	// DKIMSelector is the selector iCloud signs with.
	DKIMSelector = sitemeta.DKIMSelector
)

// DKIMRecordName returns the DKIM CNAME name for domain.
func DKIMRecordName(domain string) string {
	return sitemeta.DKIMRecordName(domain)
}

// DKIMTarget returns the iCloud-hosted DKIM key name for domain.
func DKIMTarget(domain string) string {
	return sitemeta.DKIMTarget(domain)
}

// MailRelayConfig configures the mail DNS records.
type MailRelayConfig struct {
	StackOptions `yaml:",inline"`

	// DomainName is the mail domain.
	DomainName string `json:"domainName,omitempty" yaml:"domainName,omitempty"`

	// HostedZoneID is the Route53 zone for the domain.
	HostedZoneID string `json:"hostedZoneId" yaml:"hostedZoneId"`

	// VerificationRecord is an optional provider ownership token published
	// as an extra TXT value, for example "apple-domain=abc123".
	VerificationRecord string `json:"verificationRecord,omitempty" yaml:"verificationRecord,omitempty"`
}

// ApplyDefaults fills in unset fields.
func (c *MailRelayConfig) ApplyDefaults() {
	if c.DomainName == "" {
		c.DomainName = DefaultDomainName
	}
	if c.Description == "" {
		c.Description = fmt.Sprintf("Mail DNS records for %s", c.DomainName)
	}
}

// Validate checks the configuration.
func (c *MailRelayConfig) Validate() error {
	var errs []error
	if err := validateDomain("domainName", c.DomainName); err != nil {
		errs = append(errs, err)
	}
	if c.HostedZoneID == "" {
		errs = append(errs, fmt.Errorf("hostedZoneId is required"))
	}
	return joinErrors(errs...)
}

// MailRelayStack publishes MX, SPF and DKIM records for iCloud mail.
type MailRelayStack struct {
	awscdk.Stack

	// Config is the stack configuration.
	Config MailRelayConfig

	HostedZone awsroute53.IHostedZone
	MxRecord   awsroute53.MxRecord
	TxtRecord  awsroute53.TxtRecord
	DkimRecord awsroute53.CnameRecord
}

// NewMailRelayStack creates the mail relay stack.
func NewMailRelayStack(scope constructs.Construct, id string, config MailRelayConfig) *MailRelayStack {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		panic(fmt.Sprintf("invalid mail relay configuration: %v", err))
	}

	stack := awscdk.NewStack(scope, jsii.String(id), config.stackProps(""))

	s := &MailRelayStack{
		Stack:  stack,
		Config: config,
	}

	s.HostedZone = awsroute53.HostedZone_FromHostedZoneAttributes(s.Stack, jsii.String("HostedZone"),
		&awsroute53.HostedZoneAttributes{
			HostedZoneId: jsii.String(config.HostedZoneID),
			ZoneName:     jsii.String(config.DomainName),
		})

	s.createRecords()
	s.addOutputs()

	return s
}

func (s *MailRelayStack) createRecords() {
	values := make([]*awsroute53.MxRecordValue, len(MailExchanges))
	for i, mx := range MailExchanges {
		values[i] = &awsroute53.MxRecordValue{
			HostName: jsii.String(mx.Host),
			Priority: jsii.Number(float64(mx.Priority)),
		}
	}
	s.MxRecord = awsroute53.NewMxRecord(s.Stack, jsii.String("MxRecord"), &awsroute53.MxRecordProps{
		Zone:   s.HostedZone,
		Values: &values,
	})

	// A name can only carry one TXT record set, so SPF and any
	// verification token share it.
	txt := []*string{jsii.String(SPFRecord)}
	if s.Config.VerificationRecord != "" {
		txt = append(txt, jsii.String(s.Config.VerificationRecord))
	}
	s.TxtRecord = awsroute53.NewTxtRecord(s.Stack, jsii.String("SpfRecord"), &awsroute53.TxtRecordProps{
		Zone:   s.HostedZone,
		Values: &txt,
	})

	s.DkimRecord = awsroute53.NewCnameRecord(s.Stack, jsii.String("DkimRecord"), &awsroute53.CnameRecordProps{
		Zone:       s.HostedZone,
		RecordName: jsii.String(DKIMRecordName(s.Config.DomainName)),
		DomainName: jsii.String(DKIMTarget(s.Config.DomainName)),
	})
}

func (s *MailRelayStack) addOutputs() {
	awscdk.NewCfnOutput(s.Stack, jsii.String("MailDomain"), &awscdk.CfnOutputProps{
		Value:       jsii.String(s.Config.DomainName),
		Description: jsii.String("Domain receiving mail through iCloud"),
	})

	awscdk.NewCfnOutput(s.Stack, jsii.String("SpfRecord"), &awscdk.CfnOutputProps{
		Value:       jsii.String(SPFRecord),
		Description: jsii.String("SPF policy"),
	})

	awscdk.NewCfnOutput(s.Stack, jsii.String("DkimRecordName"), &awscdk.CfnOutputProps{
		Value:       jsii.String(DKIMRecordName(s.Config.DomainName)),
		Description: jsii.String("DKIM CNAME record name"),
	})
}
