package config

import (
	"strings"
	"testing"
	"time"
)

func env(vars map[string]string) Lookup {
	return func(key string) string { return vars[key] }
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadFrom(env(map[string]string{"SQLITE_PATH": "glossary.db"}))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Server.Addr() != "0.0.0.0:8080" {
		t.Errorf("Server.Addr() = %q, want %q", cfg.Server.Addr(), "0.0.0.0:8080")
	}
	if cfg.Upload.MaxFileSize != 10485760 {
		t.Errorf("Upload.MaxFileSize = %d, want %d", cfg.Upload.MaxFileSize, 10485760)
	}
	if cfg.Upload.Timeout != 5*time.Minute {
		t.Errorf("Upload.Timeout = %v, want 5m", cfg.Upload.Timeout)
	}
	if cfg.Glossary.DefaultPolicy != "skip" {
		t.Errorf("Glossary.DefaultPolicy = %q, want skip", cfg.Glossary.DefaultPolicy)
	}
	if cfg.Security.UserHeader != "X-Remote-User" {
		t.Errorf("Security.UserHeader = %q", cfg.Security.UserHeader)
	}
	if !cfg.Database.Migrate || cfg.Database.UsePostgres() {
		t.Errorf("unexpected database config %+v", cfg.Database)
	}
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := LoadFrom(env(map[string]string{
		"DATABASE_URL":            "postgres://localhost/test",
		"SERVER_PORT":             "9090",
		"UPLOAD_MAX_CONCURRENT":   "10",
		"GLOSSARY_DEFAULT_POLICY": "overwrite",
		"API_KEYS":                " k1, ,k2 ",
		"LOG_LEVEL":               "debug",
	}))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Upload.MaxConcurrent != 10 {
		t.Errorf("Upload.MaxConcurrent = %d, want 10", cfg.Upload.MaxConcurrent)
	}
	if cfg.Glossary.DefaultPolicy != "overwrite" {
		t.Errorf("Glossary.DefaultPolicy = %q", cfg.Glossary.DefaultPolicy)
	}
	if len(cfg.Security.APIKeys) != 2 || cfg.Security.APIKeys[1] != "k2" {
		t.Errorf("Security.APIKeys = %v, want [k1 k2]", cfg.Security.APIKeys)
	}
	if !cfg.Database.UsePostgres() {
		t.Error("expected postgres store")
	}
}

func TestLoad_AltEnvVar(t *testing.T) {
	cfg, err := LoadFrom(env(map[string]string{"DB_URL": "postgres://localhost/alt"}))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Database.URL != "postgres://localhost/alt" {
		t.Errorf("Database.URL = %q", cfg.Database.URL)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		vars    map[string]string
		wantErr string
	}{
		{
			name:    "no store",
			vars:    map[string]string{},
			wantErr: "one of DATABASE_URL or SQLITE_PATH",
		},
		{
			name:    "both stores",
			vars:    map[string]string{"DATABASE_URL": "postgres://x", "SQLITE_PATH": "x.db"},
			wantErr: "mutually exclusive",
		},
		{
			name:    "bad duration",
			vars:    map[string]string{"SQLITE_PATH": "x.db", "UPLOAD_TIMEOUT": "soon"},
			wantErr: "invalid duration",
		},
		{
			name:    "bad integer",
			vars:    map[string]string{"SQLITE_PATH": "x.db", "SERVER_PORT": "http"},
			wantErr: "invalid integer",
		},
		{
			name:    "port out of range",
			vars:    map[string]string{"SQLITE_PATH": "x.db", "SERVER_PORT": "70000"},
			wantErr: "SERVER_PORT",
		},
		{
			name:    "unknown policy",
			vars:    map[string]string{"SQLITE_PATH": "x.db", "GLOSSARY_DEFAULT_POLICY": "merge"},
			wantErr: "GLOSSARY_DEFAULT_POLICY",
		},
		{
			name:    "api key required without keys",
			vars:    map[string]string{"SQLITE_PATH": "x.db", "REQUIRE_API_KEY": "true"},
			wantErr: "API_KEYS is empty",
		},
		{
			name:    "pool bounds",
			vars:    map[string]string{"SQLITE_PATH": "x.db", "DB_MAX_CONNS": "1", "DB_MIN_CONNS": "3"},
			wantErr: "DB_MAX_CONNS (1) must be >= DB_MIN_CONNS (3)",
		},
		{
			name:    "log format",
			vars:    map[string]string{"SQLITE_PATH": "x.db", "LOG_FORMAT": "xml"},
			wantErr: "LOG_FORMAT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(env(tt.vars))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfigString_MasksDatabaseURL(t *testing.T) {
	cfg, err := LoadFrom(env(map[string]string{"DATABASE_URL": "postgres://user:secret@db/glossary"}))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if s := cfg.String(); strings.Contains(s, "secret") {
		t.Errorf("String() leaks credentials: %s", s)
	}
}
