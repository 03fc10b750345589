package spauth

import (
	"fmt"
	"os"
	"strings"

	"github.com/koltyakov/gosip"
	"github.com/koltyakov/gosip/auth/addin"
	"github.com/koltyakov/gosip/auth/azurecert"
	"github.com/koltyakov/gosip/auth/ntlm"
)

// Strategy names the gosip authentication flow.
type Strategy string

const (
	StrategyAzureCert Strategy = "azurecert"
	StrategyAddin     Strategy = "addin"
	StrategyNTLM      Strategy = "ntlm"
)

type Config struct {
	Strategy     Strategy
	SiteURL      string
	TenantID     string
	ClientID     string
	ClientSecret string
	Realm        string
	CertPath     string
	CertPassword string
	Username     string
	Password     string
	Domain       string
}

func FromEnv() (Config, error) {
	// Environment should already be loaded by main.go
	cfg := Config{
		Strategy:     Strategy(strings.ToLower(os.Getenv("SP_AUTH_STRATEGY"))),
		SiteURL:      os.Getenv("SP_SITE_URL"),
		TenantID:     os.Getenv("SP_TENANT_ID"),
		ClientID:     os.Getenv("SP_CLIENT_ID"),
		ClientSecret: os.Getenv("SP_CLIENT_SECRET"),
		Realm:        os.Getenv("SP_REALM"),
		CertPath:     os.Getenv("SP_CERT_PATH"),
		CertPassword: os.Getenv("SP_CERT_PASSWORD"),
		Username:     os.Getenv("SP_USERNAME"),
		Password:     os.Getenv("SP_PASSWORD"),
		Domain:       os.Getenv("SP_DOMAIN"),
	}
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyAzureCert
	}
	return cfg, cfg.Validate()
}

// Validate checks that the variables required by the selected strategy are set.
func (c Config) Validate() error {
	if c.SiteURL == "" {
		return fmt.Errorf("missing required configuration: SP_SITE_URL")
	}
	switch c.Strategy {
	case StrategyAzureCert:
		if c.TenantID == "" || c.ClientID == "" || c.CertPath == "" {
			return fmt.Errorf("missing required configuration for azurecert: SP_TENANT_ID, SP_CLIENT_ID, SP_CERT_PATH")
		}
	case StrategyAddin:
		if c.ClientID == "" || c.ClientSecret == "" {
			return fmt.Errorf("missing required configuration for addin: SP_CLIENT_ID, SP_CLIENT_SECRET")
		}
	case StrategyNTLM:
		if c.Username == "" || c.Password == "" {
			return fmt.Errorf("missing required configuration for ntlm: SP_USERNAME, SP_PASSWORD")
		}
	default:
		return fmt.Errorf("unknown SP_AUTH_STRATEGY %q (want azurecert, addin or ntlm)", c.Strategy)
	}
	return nil
}

func NewClient(cfg Config) (*gosip.SPClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var auth gosip.AuthCnfg
	switch cfg.Strategy {
	case StrategyAddin:
		auth = &addin.AuthCnfg{
			SiteURL:      cfg.SiteURL,
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Realm:        cfg.Realm,
		}
	case StrategyNTLM:
		auth = &ntlm.AuthCnfg{
			SiteURL:  cfg.SiteURL,
			Username: cfg.Username,
			Password: cfg.Password,
			Domain:   cfg.Domain,
		}
	default:
		auth = &azurecert.AuthCnfg{
			SiteURL:  cfg.SiteURL,
			TenantID: cfg.TenantID,
			ClientID: cfg.ClientID,
			CertPath: cfg.CertPath,
			CertPass: cfg.CertPassword,
		}
	}
	return &gosip.SPClient{AuthCnfg: auth}, nil
}
