// Package config provides explicit configuration loading for datakit.
// Configuration is always passed as values to the functions that need it;
// nothing in this package mutates process-wide state.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mikeqfu/datakit/pkg/errors"
)

// ConnectionProfile describes one PostgreSQL endpoint.
type ConnectionProfile struct {
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
	Database string `yaml:"database" json:"database"`
	SSLMode  string `yaml:"ssl_mode" json:"ssl_mode"`
}

// DefaultProfile returns the conventional local-server profile.
func DefaultProfile() ConnectionProfile {
	return ConnectionProfile{
		Host:     "localhost",
		Port:     5432,
		Username: "postgres",
		Database: "postgres",
		SSLMode:  "prefer",
	}
}

// Validate checks the profile for required fields.
func (p ConnectionProfile) Validate() error {
	if p.Host == "" {
		return errors.New(errors.ErrorTypeConfig, "host is required")
	}
	if p.Port <= 0 || p.Port > 65535 {
		return errors.Newf(errors.ErrorTypeConfig, "invalid port %d", p.Port)
	}
	if p.Username == "" {
		return errors.New(errors.ErrorTypeConfig, "username is required")
	}
	if p.Database == "" {
		return errors.New(errors.ErrorTypeConfig, "database is required")
	}
	return nil
}

// DSN renders the profile as a postgres connection URL.
func (p ConnectionProfile) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", p.Host, p.Port),
		Path:   "/" + p.Database,
	}
	if p.Password != "" {
		u.User = url.UserPassword(p.Username, p.Password)
	} else {
		u.User = url.User(p.Username)
	}
	if p.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": []string{p.SSLMode}}.Encode()
	}
	return u.String()
}

// Redacted renders the profile for logging, masking any password.
func (p ConnectionProfile) Redacted() string {
	masked := p
	if masked.Password != "" {
		masked.Password = "***"
	}
	return masked.DSN()
}

// WithEnvOverrides returns a copy of the profile with the conventional
// libpq environment variables (PGHOST, PGPORT, PGUSER, PGPASSWORD,
// PGDATABASE) applied on top of any non-empty values.
func (p ConnectionProfile) WithEnvOverrides() ConnectionProfile {
	if v := os.Getenv("PGHOST"); v != "" {
		p.Host = v
	}
	if v := os.Getenv("PGPORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			p.Port = port
		}
	}
	if v := os.Getenv("PGUSER"); v != "" {
		p.Username = v
	}
	if v := os.Getenv("PGPASSWORD"); v != "" {
		p.Password = v
	}
	if v := os.Getenv("PGDATABASE"); v != "" {
		p.Database = v
	}
	return p
}

// Profiles is a named collection of connection profiles, usually loaded
// from a YAML file.
type Profiles struct {
	Default  string                       `yaml:"default"`
	Profiles map[string]ConnectionProfile `yaml:"profiles"`
}

// Get returns the named profile; an empty name selects the default.
func (ps *Profiles) Get(name string) (ConnectionProfile, error) {
	if name == "" {
		name = ps.Default
	}
	profile, ok := ps.Profiles[name]
	if !ok {
		return ConnectionProfile{}, errors.Newf(errors.ErrorTypeConfig, "profile %q not found", name)
	}
	return profile, nil
}

// LoadProfiles loads a profile collection from a YAML file.
func LoadProfiles(path string) (*Profiles, error) {
	var ps Profiles
	if err := Load(path, &ps); err != nil {
		return nil, err
	}
	return &ps, nil
}

// Load loads a configuration from a YAML file, substituting ${VAR_NAME}
// references with environment variable values first.
func Load(filePath string, config interface{}) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to read config file")
	}

	content := substituteEnvVars(string(data))
	if err := yaml.Unmarshal([]byte(content), config); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse YAML")
	}
	return nil
}

// Save saves a configuration to a YAML file.
func Save(filePath string, config interface{}) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to marshal YAML")
	}
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to write config file")
	}
	return nil
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values
func substituteEnvVars(content string) string {
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		varName := content[start+2 : end]
		envValue := os.Getenv(varName)
		content = content[:start] + envValue + content[end+1:]
	}
	return content
}
