// Package infra provides AWS CDK stacks for the buildinginthecloud.com website:
// certificate, static hosting, mail relay, domain redirect, GitHub OIDC,
// Amplify hosting and the hosted zone.
package infra

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/constructs-go/constructs/v10"
	"gopkg.in/yaml.v3"
)

// LoadSiteConfigFromFile loads a SiteConfig from a JSON or YAML file.
// The format is chosen by extension; .json is JSON, anything else is YAML.
func LoadSiteConfigFromFile(path string) (*SiteConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return LoadSiteConfigFromJSON(data)
	}
	return LoadSiteConfigFromYAML(data)
}

// LoadSiteConfigFromJSON parses a SiteConfig from JSON data.
func LoadSiteConfigFromJSON(data []byte) (*SiteConfig, error) {
	var config SiteConfig
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&config); err != nil {
		return nil, fmt.Errorf("parsing JSON config: %w", err)
	}
	return &config, nil
}

// LoadSiteConfigFromYAML parses a SiteConfig from YAML data.
func LoadSiteConfigFromYAML(data []byte) (*SiteConfig, error) {
	var config SiteConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil {
		return nil, fmt.Errorf("parsing YAML config: %w", err)
	}
	return &config, nil
}

// ExampleSiteConfig returns the configuration of the production website.
func ExampleSiteConfig() SiteConfig {
	return SiteConfig{
		Account:      "517095477860",
		Region:       DefaultRegion,
		Environment:  DefaultEnvironment,
		DomainName:   DefaultDomainName,
		HostedZoneID: "Z005047721YOSJOMI0XAF",
		WebsitePath:  DefaultWebsitePath,
		MailRelay:    &MailRelayConfig{},
		DomainRedirect: &DomainRedirectConfig{
			SourceDomain: DefaultDomainName,
			TargetDomain: DefaultRedirectTarget,
		},
	}
}

// YAMLConfigExample returns ExampleSiteConfig rendered as YAML.
func YAMLConfigExample() (string, error) {
	config := ExampleSiteConfig()
	out, err := yaml.Marshal(&config)
	if err != nil {
		return "", fmt.Errorf("marshaling example config: %w", err)
	}
	return string(out), nil
}

// WriteExampleConfig writes ExampleSiteConfig to path as JSON or YAML.
func WriteExampleConfig(path string) error {
	config := ExampleSiteConfig()

	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err = json.MarshalIndent(&config, "", "  ")
	} else {
		data, err = yaml.Marshal(&config)
	}
	if err != nil {
		return fmt.Errorf("marshaling example config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// NewSiteFromFile creates the site stacks from a JSON or YAML config file.
func NewSiteFromFile(scope constructs.Construct, configPath string) (*Site, error) {
	config, err := LoadSiteConfigFromFile(configPath)
	if err != nil {
		return nil, err
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid site configuration in %s: %w", configPath, err)
	}

	return NewSite(scope, *config), nil
}

// MustNewSiteFromFile is like NewSiteFromFile but panics on error.
func MustNewSiteFromFile(scope constructs.Construct, configPath string) *Site {
	site, err := NewSiteFromFile(scope, configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to create site from %s: %v", configPath, err))
	}
	return site
}
