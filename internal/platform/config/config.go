package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"regengine/internal/deadline"
)

// Server captures process level configuration.
type Server struct {
	Addr            string
	LogLevel        string
	LogFormat       string
	RiskFraction    float64
	PolicyFile      string
	AuditBuffer     int
	ShutdownTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	cfg := Server{
		Addr:            envOr("REGENGINE_ADDR", ":8080"),
		LogLevel:        strings.ToLower(envOr("REGENGINE_LOG_LEVEL", "info")),
		LogFormat:       strings.ToLower(envOr("REGENGINE_LOG_FORMAT", "json")),
		RiskFraction:    deadline.DefaultRiskFraction,
		PolicyFile:      strings.TrimSpace(os.Getenv("REGENGINE_POLICY_FILE")),
		ShutdownTimeout: 10 * time.Second,
	}

	if v := os.Getenv("REGENGINE_RISK_FRACTION"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Server{}, fmt.Errorf("REGENGINE_RISK_FRACTION: %w", err)
		}
		cfg.RiskFraction = f
	}
	if v := os.Getenv("REGENGINE_AUDIT_BUFFER"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Server{}, fmt.Errorf("REGENGINE_AUDIT_BUFFER must be a non-negative integer, got %q", v)
		}
		cfg.AuditBuffer = n
	}
	if v := os.Getenv("REGENGINE_SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Server{}, fmt.Errorf("REGENGINE_SHUTDOWN_TIMEOUT: %w", err)
		}
		cfg.ShutdownTimeout = d
	}
	return cfg, nil
}

// Policy resolves the classification policy: statutory defaults, then the
// configured risk fraction, then the policy file if one is set.
func (s Server) Policy() (deadline.Policy, error) {
	p := deadline.DefaultPolicy()
	p.RiskFraction = s.RiskFraction
	if s.PolicyFile != "" {
		data, err := os.ReadFile(s.PolicyFile)
		if err != nil {
			return deadline.Policy{}, fmt.Errorf("read policy file: %w", err)
		}
		if p, err = ApplyPolicyYAML(p, data); err != nil {
			return deadline.Policy{}, fmt.Errorf("policy file %s: %w", s.PolicyFile, err)
		}
	}
	if err := p.Validate(); err != nil {
		return deadline.Policy{}, err
	}
	return p, nil
}

// PolicyFile is the YAML shape of a policy override:
//
//	risk_fraction: 0.25
//	default_window: 168h
//	windows:
//	  dsr: 720h
//	  breach-notification: 72h
type PolicyFile struct {
	RiskFraction  *float64          `yaml:"risk_fraction"`
	DefaultWindow string            `yaml:"default_window"`
	Windows       map[string]string `yaml:"windows"`
}

// ApplyPolicyYAML overlays the YAML document in data onto base. Fields absent
// from the document keep their base values.
func ApplyPolicyYAML(base deadline.Policy, data []byte) (deadline.Policy, error) {
	var f PolicyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return deadline.Policy{}, fmt.Errorf("parse yaml: %w", err)
	}

	p := base
	p.Windows = make(map[deadline.RegulatoryType]time.Duration, len(base.Windows)+len(f.Windows))
	for t, w := range base.Windows {
		p.Windows[t] = w
	}

	if f.RiskFraction != nil {
		p.RiskFraction = *f.RiskFraction
	}
	if f.DefaultWindow != "" {
		d, err := time.ParseDuration(f.DefaultWindow)
		if err != nil {
			return deadline.Policy{}, fmt.Errorf("default_window: %w", err)
		}
		p.DefaultWindow = d
	}
	for name, v := range f.Windows {
		d, err := time.ParseDuration(v)
		if err != nil {
			return deadline.Policy{}, fmt.Errorf("windows.%s: %w", name, err)
		}
		p.Windows[deadline.ParseRegulatoryType(name)] = d
	}
	return p, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
