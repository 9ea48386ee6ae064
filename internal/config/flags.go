package config

import (
	"github.com/spf13/pflag"
)

// Flags holds the command-line overrides for a Config.
type Flags struct {
	ConfigPath     string
	ServiceURL     string
	ProviderURL    string
	Deployment     string
	DelegationPath string
	TokenFile      string
	LogFile        string
}

// Bind registers the flags on fs.
func (f *Flags) Bind(fs *pflag.FlagSet) {
	fs.StringVarP(&f.ConfigPath, "config", "c", "blockpress.yaml", "path to the deployment profile")
	fs.StringVar(&f.ServiceURL, "service-url", "", "service endpoint (overrides the profile)")
	fs.StringVar(&f.ProviderURL, "provider-url", "", "identity provider URL (overrides the profile)")
	fs.StringVar(&f.Deployment, "deployment", "", "deployment mode: production or local")
	fs.StringVar(&f.DelegationPath, "delegation-path", "", "where the delegation token is persisted")
	fs.StringVar(&f.TokenFile, "token-file", "", "file holding a delegation token to log in with")
	fs.StringVar(&f.LogFile, "log-file", "", "append structured logs to this file")
}

// Apply overlays the set flags onto c.
func (f *Flags) Apply(c *Config) {
	if f.ServiceURL != "" {
		c.ServiceURL = f.ServiceURL
	}
	if f.ProviderURL != "" {
		c.ProviderURL = f.ProviderURL
	}
	if f.Deployment != "" {
		c.Deployment = f.Deployment
	}
	if f.DelegationPath != "" {
		c.DelegationPath = f.DelegationPath
	}
	if f.LogFile != "" {
		c.LogFile = f.LogFile
	}
}
