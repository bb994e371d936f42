package app

import (
	"strings"

	"github.com/charlesng35/sprintboard/internal/auth"
	"github.com/charlesng35/sprintboard/internal/database"
)

// JWTServiceConfig converts AuthConfig into the parameters expected by the JWT service.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = auth.DefaultAccessTokenTTL
	}

	return auth.JWTConfig{
		Secret:         c.JWT.Secret,
		Issuer:         c.JWT.Issuer,
		AccessTokenTTL: ttl,
	}
}

// Connection converts DatabaseConfig into database.Open parameters, picking the
// host settings block that matches the driver.
func (c DatabaseConfig) Connection() database.Config {
	out := database.Config{
		Driver:          strings.ToLower(strings.TrimSpace(c.Driver)),
		Path:            c.Path,
		DSN:             c.DSN,
		Options:         c.Options,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
	}

	var host DBAuthConfig
	switch out.Driver {
	case "postgres", "postgresql":
		host = c.Postgres
	case "mysql":
		host = c.MySQL
	default:
		return out
	}

	out.Host = host.Host
	out.Port = host.Port
	out.Name = host.Database
	out.User = host.Username
	out.Password = host.Password
	return out
}
