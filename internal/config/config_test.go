package config

import "testing"

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SERVER_PORT", "")
	t.Setenv("FOLLOW_REQUEST_RATE_PER_MIN", "not-a-number")
	t.Setenv("STORAGE_BUCKET", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
	if cfg.FollowRequestRatePerMin != 20 {
		t.Errorf("FollowRequestRatePerMin = %d, want 20", cfg.FollowRequestRatePerMin)
	}
	if cfg.StorageBucket != "files" {
		t.Errorf("StorageBucket = %q, want files", cfg.StorageBucket)
	}
}

func TestConfig_DSN(t *testing.T) {
	cfg := &Config{DBUser: "app", DBPassword: "secret", DBHost: "db", DBPort: "5432", DBName: "social", DBSSLMode: "disable"}
	want := "postgres://app:secret@db:5432/social?sslmode=disable"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}

	cfg.DatabaseURL = "postgres://override"
	if got := cfg.DSN(); got != "postgres://override" {
		t.Errorf("DSN() = %q, want DATABASE_URL to win", got)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "missing database", cfg: Config{AuthJWTSecret: "s"}, wantErr: true},
		{name: "missing jwt secret", cfg: Config{DatabaseURL: "postgres://x"}, wantErr: true},
		{name: "url config", cfg: Config{DatabaseURL: "postgres://x", AuthJWTSecret: "s"}},
		{name: "split config", cfg: Config{DBHost: "h", DBName: "n", AuthJWTSecret: "s"}},
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
