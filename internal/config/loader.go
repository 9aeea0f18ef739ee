package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// LookupFunc resolves one environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// Load reads configuration from the process environment, applies defaults
// and validates the result.
func Load() (*Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom is Load with an explicit variable source. Every malformed or
// missing variable is reported, not only the first.
func LoadFrom(lookup LookupFunc) (*Config, error) {
	cfg := &Config{}

	l := loader{lookup: lookup}
	l.fill(reflect.ValueOf(cfg).Elem())
	if err := errors.Join(l.errs...); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

type loader struct {
	lookup LookupFunc
	errs   []error
}

var durationType = reflect.TypeOf(time.Duration(0))

// fill walks v and sets every field carrying an env tag. Nested structs are
// sections and are walked in turn.
func (l *loader) fill(v reflect.Value) {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		fv := v.Field(i)
		if !fv.CanSet() {
			continue
		}

		if sf.Type.Kind() == reflect.Struct {
			l.fill(fv)
			continue
		}

		name := sf.Tag.Get("env")
		if name == "" {
			continue
		}

		raw, ok := l.value(name, sf.Tag.Get("envAlt"))
		if !ok {
			if sf.Tag.Get("required") == "true" {
				l.errs = append(l.errs, fmt.Errorf("required environment variable %s is not set", name))
				continue
			}
			raw = sf.Tag.Get("default")
		}
		if raw == "" {
			continue
		}

		if err := assign(fv, raw, sf.Tag.Get("unit")); err != nil {
			l.errs = append(l.errs, fmt.Errorf("invalid value for %s=%q: %w", name, raw, err))
		}
	}
}

// value returns the first non-empty of the primary and alternate variables.
func (l *loader) value(name, alt string) (string, bool) {
	for _, key := range []string{name, alt} {
		if key == "" {
			continue
		}
		if s, ok := l.lookup(key); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s), true
		}
	}
	return "", false
}

// assign parses raw into field according to its kind.
func assign(field reflect.Value, raw, unit string) error {
	switch {
	case field.Type() == durationType:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		field.SetInt(int64(d))

	case field.Kind() == reflect.Int || field.Kind() == reflect.Int64:
		parse := func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) }
		if unit == "bytes" {
			parse = parseByteSize
		}
		n, err := parse(raw)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(n)

	case field.Kind() == reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case field.Kind() == reflect.String:
		field.SetString(raw)

	case field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.String:
		var items []string
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				items = append(items, p)
			}
		}
		field.Set(reflect.ValueOf(items))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Type())
	}
	return nil
}

var byteUnits = []struct {
	suffix string
	scale  int64
}{
	{"GB", 1 << 30},
	{"MB", 1 << 20},
	{"KB", 1 << 10},
	{"B", 1},
}

// parseByteSize accepts a plain byte count or a count with a KB, MB or GB
// suffix (binary multiples, case-insensitive).
func parseByteSize(s string) (int64, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	scale := int64(1)
	for _, u := range byteUnits {
		if strings.HasSuffix(upper, u.suffix) {
			upper = strings.TrimSpace(strings.TrimSuffix(upper, u.suffix))
			scale = u.scale
			break
		}
	}
	n, err := strconv.ParseInt(upper, 10, 64)
	if err != nil {
		return 0, err
	}
	return n * scale, nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var p problems

	if c.Database.URL != "" {
		p.check(c.Database.MaxConns > 0, "DB_MAX_CONNS must be positive")
		p.check(c.Database.MinConns >= 0, "DB_MIN_CONNS must be non-negative")
		p.check(c.Database.MaxConns >= c.Database.MinConns,
			"DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", c.Database.MaxConns, c.Database.MinConns)
	}

	p.check(c.Server.Port > 0 && c.Server.Port <= 65535, "SERVER_PORT (%d) must be 1-65535", c.Server.Port)
	p.check(c.Server.ReadTimeout >= 0, "SERVER_READ_TIMEOUT must be non-negative")
	p.check(c.Server.ShutdownTimeout > 0, "SERVER_SHUTDOWN_TIMEOUT must be positive")

	p.check(c.Import.MaxFileSize > 0, "IMPORT_MAX_FILE_SIZE must be positive")
	p.check(c.Import.Timeout > 0, "IMPORT_TIMEOUT must be positive")

	p.check(c.Export.MaxConcurrent > 0, "EXPORT_MAX_CONCURRENT must be positive")
	p.check(c.Export.MaxWaitTime > 0, "EXPORT_MAX_WAIT_TIME must be positive")
	p.check(c.Export.Timeout > 0, "EXPORT_TIMEOUT must be positive")
	p.check(strings.HasSuffix(strings.ToLower(c.Export.FileName), ".xlsx"),
		"EXPORT_FILE_NAME (%q) must end in .xlsx", c.Export.FileName)

	p.check(c.Catalog.Path != "", "CATALOG_PATH is required")

	if c.Rate.Enabled {
		p.check(c.Rate.RequestsPerMinute > 0, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
		p.check(c.Rate.ImportLimit > 0, "RATE_LIMIT_IMPORT must be positive when rate limiting is enabled")
	}

	p.check(!c.Security.RequireAPIKey || len(c.Security.APIKeys) > 0,
		"REQUIRE_API_KEY is true but API_KEYS is empty; configure at least one API key or disable auth")

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		p.add("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		p.add("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format)
	}

	return p.err()
}

// problems accumulates validation failures.
type problems []string

func (p *problems) add(format string, args ...any) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

func (p *problems) check(ok bool, format string, args ...any) {
	if !ok {
		p.add(format, args...)
	}
}

func (p problems) err() error {
	if len(p) == 0 {
		return nil
	}
	return fmt.Errorf("validation failed:\n  - %s", strings.Join(p, "\n  - "))
}

// LogValue implements slog.LogValuer. The database URL and API keys are
// never included.
func (c *Config) LogValue() slog.Value {
	dbURL := "[NONE]"
	if c.Database.URL != "" {
		dbURL = "[MASKED]"
	}
	return slog.GroupValue(
		slog.Group("server", "host", c.Server.Host, "port", c.Server.Port),
		slog.Group("database", "url", dbURL, "max_conns", c.Database.MaxConns, "min_conns", c.Database.MinConns),
		slog.Group("import", "max_file_size", c.Import.MaxFileSize, "timeout", c.Import.Timeout),
		slog.Group("export", "max_concurrent", c.Export.MaxConcurrent, "timeout", c.Export.Timeout),
		slog.Group("catalog", "path", c.Catalog.Path),
		slog.Group("rate", "enabled", c.Rate.Enabled, "per_minute", c.Rate.RequestsPerMinute, "import", c.Rate.ImportLimit),
		slog.Group("security", "require_api_key", c.Security.RequireAPIKey, "api_keys", len(c.Security.APIKeys)),
		slog.Group("logging", "level", c.Logging.Level, "format", c.Logging.Format),
	)
}

// String renders LogValue for plain-text contexts.
func (c *Config) String() string {
	return c.LogValue().String()
}
