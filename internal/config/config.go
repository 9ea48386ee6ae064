// Package config loads the deployment profile for the terminal adapter: the
// service endpoint, the identity-provider URL, the deployment mode and any
// capability overrides. Values come from an optional YAML file with flag
// overrides on top.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	blockpress "github.com/gems-gallery/blockpress.go"
)

const (
	DeploymentProduction = "production"
	DeploymentLocal      = "local"

	defaultProductionServiceURL  = "wss://blockpress.app"
	defaultProductionProviderURL = "https://identity.blockpress.app/#authorize"
	defaultLocalServiceURL       = "ws://localhost:4943"
	defaultLocalProviderURL      = "http://localhost:4943/#authorize"
)

// Capabilities mirrors blockpress.Capabilities with optional fields, so a
// profile can override individual entries and leave the rest at the
// deployment default.
type Capabilities struct {
	HasAccounts             *bool `yaml:"has_accounts"`
	CreatePostReturnsOption *bool `yaml:"create_post_returns_option"`
	RequiresAuthorArg       *bool `yaml:"requires_author_arg"`
}

type Config struct {
	ServiceURL     string        `yaml:"service_url"`
	ProviderURL    string        `yaml:"provider_url"`
	Deployment     string        `yaml:"deployment"`
	DelegationPath string        `yaml:"delegation_path"`
	LogFile        string        `yaml:"log_file"`
	Capabilities   *Capabilities `yaml:"capabilities"`
}

// Load reads the profile at path. A missing file yields the zero Config so
// flags and defaults can fill everything in; any other read or parse failure
// is an error.
func Load(path string) (*Config, error) {
	var c Config

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &c, nil
}

// ApplyDefaults fills unset fields from the deployment mode's defaults.
func (c *Config) ApplyDefaults() {
	if c.Deployment == "" {
		c.Deployment = DeploymentProduction
	}

	switch c.Deployment {
	case DeploymentLocal:
		if c.ServiceURL == "" {
			c.ServiceURL = defaultLocalServiceURL
		}
		if c.ProviderURL == "" {
			c.ProviderURL = defaultLocalProviderURL
		}
	default:
		if c.ServiceURL == "" {
			c.ServiceURL = defaultProductionServiceURL
		}
		if c.ProviderURL == "" {
			c.ProviderURL = defaultProductionProviderURL
		}
	}

	if c.DelegationPath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			c.DelegationPath = filepath.Join(home, ".blockpress", "delegation")
		} else {
			c.DelegationPath = ".blockpress-delegation"
		}
	}
}

// Validate checks the resolved profile.
func (c *Config) Validate() error {
	if c.Deployment != DeploymentProduction && c.Deployment != DeploymentLocal {
		return fmt.Errorf("unknown deployment %q", c.Deployment)
	}
	if _, err := url.Parse(c.ServiceURL); err != nil {
		return fmt.Errorf("invalid service url: %w", err)
	}
	return nil
}

// DeploymentMode maps the profile's deployment string onto the client type.
func (c *Config) DeploymentMode() blockpress.Deployment {
	if c.Deployment == DeploymentLocal {
		return blockpress.Local
	}
	return blockpress.Production
}

// ResolveCapabilities merges the profile's overrides onto the deployment
// defaults.
func (c *Config) ResolveCapabilities() blockpress.Capabilities {
	caps := blockpress.DefaultCapabilities(c.DeploymentMode())
	if c.Capabilities == nil {
		return caps
	}
	if c.Capabilities.HasAccounts != nil {
		caps.HasAccounts = *c.Capabilities.HasAccounts
	}
	if c.Capabilities.CreatePostReturnsOption != nil {
		caps.CreatePostReturnsOption = *c.Capabilities.CreatePostReturnsOption
	}
	if c.Capabilities.RequiresAuthorArg != nil {
		caps.RequiresAuthorArg = *c.Capabilities.RequiresAuthorArg
	}
	return caps
}
