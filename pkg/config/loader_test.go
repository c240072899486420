package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDecodeLayers(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
db:
  host: localhost
  port: 5432
  password: ${DB_SECRET}
  slow_query: 150ms
server:
  port: ":8080"
jwt:
  secret: ${JWT_FROM_ENV}
`)
	writeFile(t, dir, "staging.yaml", `
db:
  host: db.staging
`)
	writeFile(t, dir, "secrets.env", "DB_SECRET=s3cret\n")
	t.Setenv("JWT_FROM_ENV", "from-env")

	var cfg struct {
		DB     DBConfig     `yaml:"db"`
		Server ServerConfig `yaml:"server"`
		JWT    JWTConfig    `yaml:"jwt"`
	}
	if err := Decode("staging", dir, &cfg); err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if cfg.DB.Host != "db.staging" {
		t.Errorf("host = %q, env layer should win", cfg.DB.Host)
	}
	if cfg.DB.Port != 5432 {
		t.Errorf("port = %d, base layer should survive merge", cfg.DB.Port)
	}
	if cfg.DB.Password != "s3cret" {
		t.Errorf("password = %q, want value from secrets.env", cfg.DB.Password)
	}
	if cfg.DB.SlowQuery != 150*time.Millisecond {
		t.Errorf("slow_query = %v", cfg.DB.SlowQuery)
	}
	if cfg.JWT.Secret != "from-env" {
		t.Errorf("jwt secret = %q, want process env value", cfg.JWT.Secret)
	}
	if cfg.Server.Port != ":8080" {
		t.Errorf("server port = %q", cfg.Server.Port)
	}
}

func TestLoadConfigMissingBase(t *testing.T) {
	if _, err := LoadConfig("local", t.TempDir()); err == nil {
		t.Fatal("expected error when base.yaml is missing")
	}
}

func TestOverrideFromEnv(t *testing.T) {
	t.Setenv("DB_PORT", "6543")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("SERVER_PORT", ":9000")

	db := DBConfig{Port: 5432}
	OverrideDBFromEnv(&db)
	if db.Port != 6543 {
		t.Errorf("db port = %d", db.Port)
	}

	var r RedisConfig
	OverrideRedisFromEnv(&r)
	if !r.Enabled() || r.Addr != "redis:6379" {
		t.Errorf("redis = %+v", r)
	}

	var s ServerConfig
	OverrideServerFromEnv(&s)
	if s.Port != ":9000" {
		t.Errorf("server port = %q", s.Port)
	}
}

func TestDSN(t *testing.T) {
	c := DBConfig{Host: "h", Port: 1, User: "u", Password: "p", Name: "n"}
	if got, want := c.DSN(), "postgres://u:p@h:1/n?sslmode=disable"; got != want {
		t.Fatalf("DSN() = %q, want %q", got, want)
	}
}

func TestUnresolvedPlaceholderIsEmpty(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "mq:\n  url: ${SARABAN_TEST_UNSET_VAR}\n")

	var cfg struct {
		MQ MQConfig `yaml:"mq"`
	}
	if err := Decode("local", dir, &cfg); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cfg.MQ.Enabled() {
		t.Fatalf("mq url = %q, want empty", cfg.MQ.URL)
	}
}
