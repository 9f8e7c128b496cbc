package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// Load reads configuration from the environment, applies defaults and
// validates the result. Every problem is reported at once.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func (c *Config) normalize() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	for i, p := range c.Security.TrustedProxies {
		c.Security.TrustedProxies[i] = strings.TrimSpace(p)
	}
	for i, o := range c.Security.AllowedOrigins {
		c.Security.AllowedOrigins[i] = strings.TrimSpace(o)
	}
	for i, k := range c.Security.APIKeys {
		c.Security.APIKeys[i] = strings.TrimSpace(k)
	}
}

var validate = newValidator()

// newValidator reports fields by their environment variable segment so
// messages name what the operator has to change.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("envconfig"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

// Validate checks all settings and returns a combined error listing every
// violation.
func (c *Config) Validate() error {
	var errs []string

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			errs = append(errs, describe(fe))
		}
	}

	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_SECOND and RATE_LIMIT_BURST must be positive when rate limiting is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// envName turns "Config.SERVER.PORT" into "SERVER_PORT".
func envName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	return strings.ReplaceAll(ns, ".", "_")
}

func describe(fe validator.FieldError) string {
	name := envName(fe)
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s (%q) must be one of: %s", name, fe.Value(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", name, fe.Param())
	case "gte":
		return fmt.Sprintf("%s (%v) must be at least %s", name, fe.Value(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s (%v) must be at most %s", name, fe.Value(), fe.Param())
	case "min":
		return fmt.Sprintf("%s entries must be at least %s characters", name, fe.Param())
	case "url":
		return fmt.Sprintf("%s (%q) must be a URL", name, fe.Value())
	case "cidr|ip":
		return fmt.Sprintf("%s (%q) must be an IP address or CIDR", name, fe.Value())
	default:
		return fmt.Sprintf("%s failed %q validation", name, fe.Tag())
	}
}

// String describes the configuration for startup logs.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Addr: %q, RequestTimeout: %s}, ", c.Server.Addr(), c.Server.RequestTimeout)
	fmt.Fprintf(&b, "Upload: {MaxFileSize: %d, MaxFiles: %d, MaxConcurrent: %d, PreviewRows: %d}, ",
		c.Upload.MaxFileSize, c.Upload.MaxFiles, c.Upload.MaxConcurrent, c.Upload.PreviewRows)
	fmt.Fprintf(&b, "Session: {TTL: %s}, ", c.Session.TTL)
	fmt.Fprintf(&b, "RateLimit: {Enabled: %v, RequestsPerSecond: %g, Burst: %d}, ",
		c.RateLimit.Enabled, c.RateLimit.RequestsPerSecond, c.RateLimit.Burst)
	fmt.Fprintf(&b, "Security: {TrustedProxies: %d, EnableCSP: %v, AllowedOrigins: %v, APIKeys: %d}, ",
		len(c.Security.TrustedProxies), c.Security.EnableCSP, c.Security.AllowedOrigins, len(c.Security.APIKeys))
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}, ", c.Logging.Level, c.Logging.Format)
	fmt.Fprintf(&b, "Metrics: {Enabled: %v}", c.Metrics.Enabled)
	b.WriteString("}")
	return b.String()
}
