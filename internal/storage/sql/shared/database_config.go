package shared

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

type SQLDatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	URL    string `mapstructure:"url"`
	// ServiceKey is used as the password when the URL does not carry one
	ServiceKey      string         `mapstructure:"service_key,omitempty"`
	ConnMaxLifetime *time.Duration `mapstructure:"conn_max_lifetime,omitempty"`
	MaxIdleConns    *int           `mapstructure:"max_idle_conns,omitempty"`
	MaxOpenConns    *int           `mapstructure:"max_open_conns,omitempty"`
}

func (s *SQLDatabaseConfig) GetDriverName() string {
	return s.Driver
}

// GetDSN returns the URL used to open the pool, with the service key set as
// the password of URL form DSNs that have a user but no password.
func (s *SQLDatabaseConfig) GetDSN() string {
	if s.ServiceKey == "" || !strings.Contains(s.URL, "://") {
		return s.URL
	}
	parsed, err := url.Parse(s.URL)
	if err != nil || parsed.User == nil {
		return s.URL
	}
	if _, ok := parsed.User.Password(); ok {
		return s.URL
	}
	parsed.User = url.UserPassword(parsed.User.Username(), s.ServiceKey)
	return parsed.String()
}

func (s *SQLDatabaseConfig) GetConnectionURL() (string, error) {
	// Sanitize URL to avoid exposing credentials
	parsed, err := url.Parse(s.URL)
	if err != nil {
		return "", fmt.Errorf("failed to parse connection URL: %w", err)
	}
	// Remove password from userinfo
	if parsed.User != nil {
		parsed.User = url.User(parsed.User.Username())
	}
	return parsed.String(), nil
}

func (s *SQLDatabaseConfig) GetDatabaseName() string {
	connectionURL, err := s.GetConnectionURL()
	if err != nil {
		return ""
	}
	parsed, err := url.Parse(connectionURL)
	if err != nil {
		return ""
	}
	if parsed.Opaque != "" {
		// file:name?mode=memory
		return strings.SplitN(parsed.Opaque, "?", 2)[0]
	}
	return strings.TrimPrefix(parsed.Path, "/")
}
