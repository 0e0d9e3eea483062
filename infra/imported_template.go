package infra

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/cloudformationinclude"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// ImportedTemplateConfig configures a stack that adopts an existing
// CloudFormation template, such as the hand-written mail records template
// the site was originally managed with.
type ImportedTemplateConfig struct {
	StackOptions `yaml:",inline"`

	// TemplateFile is the path of the YAML or JSON template.
	TemplateFile string `json:"templateFile" yaml:"templateFile"`

	// Parameters override template parameter values at synthesis time.
	Parameters map[string]string `json:"parameters,omitempty" yaml:"parameters,omitempty"`

	// PreserveLogicalIds keeps the logical IDs of the template so the
	// existing stack is updated in place rather than replaced.
	PreserveLogicalIds *bool `json:"preserveLogicalIds,omitempty" yaml:"preserveLogicalIds,omitempty"`
}

// ApplyDefaults fills in unset fields.
func (c *ImportedTemplateConfig) ApplyDefaults() {
	if c.PreserveLogicalIds == nil {
		c.PreserveLogicalIds = jsii.Bool(true)
	}
	if c.Description == "" && c.TemplateFile != "" {
		c.Description = fmt.Sprintf("Imported from %s", c.TemplateFile)
	}
}

// Validate checks the configuration.
func (c *ImportedTemplateConfig) Validate() error {
	var errs []error
	if c.StackName == "" {
		errs = append(errs, fmt.Errorf("stackName is required"))
	}
	if c.TemplateFile == "" {
		errs = append(errs, fmt.Errorf("templateFile is required"))
	}
	for k := range c.Parameters {
		if k == "" {
			errs = append(errs, fmt.Errorf("parameter names must not be empty"))
		}
	}
	return joinErrors(errs...)
}

// ImportedTemplateStack wraps a template included with cloudformationinclude.
type ImportedTemplateStack struct {
	awscdk.Stack

	Config   ImportedTemplateConfig
	Template cloudformationinclude.CfnInclude
}

// NewImportedTemplateStack includes config.TemplateFile in a new stack.
func NewImportedTemplateStack(scope constructs.Construct, id string, config ImportedTemplateConfig) *ImportedTemplateStack {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		panic(fmt.Sprintf("invalid imported template configuration: %v", err))
	}

	stack := awscdk.NewStack(scope, jsii.String(id), config.stackProps(""))

	s := &ImportedTemplateStack{
		Stack:  stack,
		Config: config,
	}

	props := &cloudformationinclude.CfnIncludeProps{
		TemplateFile:       jsii.String(config.TemplateFile),
		PreserveLogicalIds: config.PreserveLogicalIds,
	}
	if len(config.Parameters) > 0 {
		params := make(map[string]interface{}, len(config.Parameters))
		for k, v := range config.Parameters {
			params[k] = v
		}
		props.Parameters = &params
	}

	s.Template = cloudformationinclude.NewCfnInclude(s.Stack, jsii.String("Template"), props)
	return s
}

// Resource returns the resource with the given logical ID from the
// included template.
func (s *ImportedTemplateStack) Resource(logicalID string) awscdk.CfnResource {
	return s.Template.GetResource(jsii.String(logicalID))
}
