package config

import (
	"os"
	"strings"
)

type Config struct {
	HTTPAddr string

	DBDriver string
	DBDSN    string

	AuthSecret string
	// AllowRoleClaimFallback lets the JWT role claim stand in when the users
	// table has no row for the subject. Dev convenience; off in prod.
	AllowRoleClaimFallback bool

	// CourseScoreSupported selects whether whole-course scores carry an
	// explicit flag or are implied by the absence of a grading period.
	CourseScoreSupported bool

	// DefaultGradingScheme is the registry key used by courses that enable
	// grading standards without picking a scheme. Empty means the built-in
	// default table.
	DefaultGradingScheme string

	CORSOrigins []string
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:               addr,
		DBDriver:               envOr("DB_DRIVER", "sqlite"),
		DBDSN:                  envOr("DB_DSN", ""),
		AuthSecret:             envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		AllowRoleClaimFallback: envBool("ALLOW_ROLE_CLAIM_FALLBACK", true),
		CourseScoreSupported:   envBool("COURSE_SCORE_SUPPORTED", true),
		DefaultGradingScheme:   os.Getenv("DEFAULT_GRADING_SCHEME"),
		CORSOrigins:            csvOr("CORS_ORIGINS", "http://localhost:3000"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
