package config

import (
	"os"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Expected host 0.0.0.0, got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8090 {
		t.Errorf("Expected port 8090, got %d", cfg.Server.Port)
	}
	if cfg.Source.Port != 3306 {
		t.Errorf("Expected source port 3306, got %d", cfg.Source.Port)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected logging format json, got %s", cfg.Logging.Format)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{
			name:    "valid default",
			cfg:     DefaultConfig(),
			wantErr: false,
		},
		{
			name: "invalid server port zero",
			cfg: &Config{
				Server: ServerConfig{Port: 0},
			},
			wantErr: true,
		},
		{
			name: "invalid server port too high",
			cfg: &Config{
				Server: ServerConfig{Port: 70000},
			},
			wantErr: true,
		},
		{
			name: "invalid log level",
			cfg: &Config{
				Server:  ServerConfig{Port: 8090},
				Logging: LoggingConfig{Level: "verbose"},
			},
			wantErr: true,
		},
		{
			name: "invalid log format",
			cfg: &Config{
				Server:  ServerConfig{Port: 8090},
				Logging: LoggingConfig{Format: "xml"},
			},
			wantErr: true,
		},
		{
			name: "valid text logging",
			cfg: &Config{
				Server:  ServerConfig{Port: 8090},
				Logging: LoggingConfig{Level: "debug", Format: "text"},
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestServerConfig_Address(t *testing.T) {
	cfg := ServerConfig{Host: "localhost", Port: 9090}
	if addr := cfg.Address(); addr != "localhost:9090" {
		t.Errorf("Expected localhost:9090, got %s", addr)
	}
}

func TestSourceConfig_DSN(t *testing.T) {
	cfg := SourceConfig{Host: "db.internal", Port: 3306, Database: "app", User: "root", Password: "secret"}
	want := "root:secret@tcp(db.internal:3306)/app?tls=preferred&parseTime=true"
	if got := cfg.DSN(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestConfig_EnvOverrides(t *testing.T) {
	os.Setenv("MYGRATE_SOURCE_HOST", "127.0.0.1")
	os.Setenv("MYGRATE_SOURCE_PORT", "9999")
	os.Setenv("MYGRATE_TARGET_DIR", "/schema")
	os.Setenv("MYGRATE_LOG_LEVEL", "debug")
	defer func() {
		os.Unsetenv("MYGRATE_SOURCE_HOST")
		os.Unsetenv("MYGRATE_SOURCE_PORT")
		os.Unsetenv("MYGRATE_TARGET_DIR")
		os.Unsetenv("MYGRATE_LOG_LEVEL")
	}()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Source.Host != "127.0.0.1" {
		t.Errorf("Expected source host 127.0.0.1, got %s", cfg.Source.Host)
	}
	if cfg.Source.Port != 9999 {
		t.Errorf("Expected source port 9999, got %d", cfg.Source.Port)
	}
	if cfg.Target.Dir != "/schema" {
		t.Errorf("Expected target dir /schema, got %s", cfg.Target.Dir)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected log level debug, got %s", cfg.Logging.Level)
	}
}
