package infra

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// HostedZoneConfig configures the public hosted zone stack.
type HostedZoneConfig struct {
	StackOptions `yaml:",inline"`

	// ZoneName is the domain of the zone.
	ZoneName string `json:"zoneName" yaml:"zoneName"`
}

// ApplyDefaults fills in unset fields.
func (c *HostedZoneConfig) ApplyDefaults() {
	if c.Description == "" && c.ZoneName != "" {
		c.Description = fmt.Sprintf("Public hosted zone for %s", c.ZoneName)
	}
}

// Validate checks the configuration.
func (c *HostedZoneConfig) Validate() error {
	return validateDomain("zoneName", c.ZoneName)
}

// HostedZoneStack owns the public Route53 zone of a domain.
type HostedZoneStack struct {
	awscdk.Stack

	Config HostedZoneConfig
	Zone   awsroute53.PublicHostedZone
}

// NewHostedZoneStack creates the hosted zone stack.
func NewHostedZoneStack(scope constructs.Construct, id string, config HostedZoneConfig) *HostedZoneStack {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		panic(fmt.Sprintf("invalid hosted zone configuration: %v", err))
	}

	stack := awscdk.NewStack(scope, jsii.String(id), config.stackProps(""))

	s := &HostedZoneStack{
		Stack:  stack,
		Config: config,
	}

	s.Zone = awsroute53.NewPublicHostedZone(s.Stack, jsii.String("HostedZone"), &awsroute53.PublicHostedZoneProps{
		ZoneName: jsii.String(config.ZoneName),
	})

	awscdk.NewCfnOutput(s.Stack, jsii.String("HostedZoneId"), &awscdk.CfnOutputProps{
		Value:       s.Zone.HostedZoneId(),
		Description: jsii.String("Hosted zone ID"),
	})

	awscdk.NewCfnOutput(s.Stack, jsii.String("NameServers"), &awscdk.CfnOutputProps{
		Value:       awscdk.Fn_Join(jsii.String(","), s.Zone.HostedZoneNameServers()),
		Description: jsii.String("Name servers to configure at the registrar"),
	})

	return s
}
