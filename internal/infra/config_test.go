package infra

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearPipelineEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PIPELINE_CONFIG_FILE", "PACKAGE_TIMEOUT_SECONDS", "VECTOR_TIMEOUT_SECONDS",
		"CANCEL_GRACE_SECONDS", "FINALIZE_TIMEOUT_SECONDS",
		"UPLOAD_MAX_IN_FLIGHT", "SIZE_WORKERS", "VECTOR_TRACE_CMD", "VECTOR_CONVERT_CMD", "WORKSPACE_DIR",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaultStorageBaseURL(t *testing.T) {
	clearPipelineEnv(t)
	t.Setenv("PORT", "")
	t.Setenv("STORAGE_BASE_URL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := "http://localhost:8080/static"
	if cfg.StorageBaseURL != expected {
		t.Fatalf("StorageBaseURL mismatch: got %q want %q", cfg.StorageBaseURL, expected)
	}
	if cfg.Pipeline != DefaultPipelineConfig() {
		t.Fatalf("Pipeline mismatch: %#v", cfg.Pipeline)
	}
}

func TestLoadConfigInheritsPortInStorageBaseURL(t *testing.T) {
	clearPipelineEnv(t)
	t.Setenv("PORT", "1919")
	t.Setenv("STORAGE_BASE_URL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := "http://localhost:1919/static"
	if cfg.StorageBaseURL != expected {
		t.Fatalf("StorageBaseURL mismatch: got %q want %q", cfg.StorageBaseURL, expected)
	}
}

func TestLoadConfigHonorsExplicitStorageBaseURL(t *testing.T) {
	clearPipelineEnv(t)
	t.Setenv("PORT", "1919")
	t.Setenv("STORAGE_BASE_URL", "https://cdn.example.com/static/")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := "https://cdn.example.com/static"
	if cfg.StorageBaseURL != expected {
		t.Fatalf("StorageBaseURL mismatch: got %q want %q", cfg.StorageBaseURL, expected)
	}
}

func TestLoadConfigDoesNotRequireDatabase(t *testing.T) {
	clearPipelineEnv(t)
	t.Setenv("DATABASE_URL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if err := cfg.RequireDatabase(); err == nil {
		t.Fatal("expected RequireDatabase to fail without DATABASE_URL")
	}
	t.Setenv("DATABASE_URL", "postgres://example")
	cfg, err = LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if err := cfg.RequireDatabase(); err != nil {
		t.Fatalf("RequireDatabase returned error: %v", err)
	}
}

func TestLoadConfigReadsPipelineFile(t *testing.T) {
	clearPipelineEnv(t)
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	body := []byte("package_timeout: 90s\nvector_timeout: 10s\nupload_max_in_flight: 8\ntrace_command: potrace {input} -s -o {output}\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("PIPELINE_CONFIG_FILE", path)
	t.Setenv("UPLOAD_MAX_IN_FLIGHT", "2")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Pipeline.PackageTimeout != 90*time.Second {
		t.Fatalf("PackageTimeout = %s", cfg.Pipeline.PackageTimeout)
	}
	if cfg.Pipeline.VectorTimeout != 10*time.Second {
		t.Fatalf("VectorTimeout = %s", cfg.Pipeline.VectorTimeout)
	}
	if cfg.Pipeline.UploadMaxInFlight != 2 {
		t.Fatalf("env should override file, got %d", cfg.Pipeline.UploadMaxInFlight)
	}
	if cfg.Pipeline.SizeWorkers != 4 {
		t.Fatalf("SizeWorkers = %d", cfg.Pipeline.SizeWorkers)
	}
	if cfg.Pipeline.TraceCommand != "potrace {input} -s -o {output}" {
		t.Fatalf("TraceCommand = %q", cfg.Pipeline.TraceCommand)
	}
}

func TestLoadConfigRejectsBrokenPipelineFile(t *testing.T) {
	clearPipelineEnv(t)
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	if err := os.WriteFile(path, []byte("package_timeout: [nope"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("PIPELINE_CONFIG_FILE", path)
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadConfigSplitsCORSOrigins(t *testing.T) {
	clearPipelineEnv(t)
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com ,")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example.com" {
		t.Fatalf("CORSAllowedOrigins mismatch: %#v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadConfigDatabaseSettings(t *testing.T) {
	clearPipelineEnv(t)
	t.Setenv("DB_MAX_CONNS", "")
	t.Setenv("SCHEMA_FILE", "migrations/001_logo_packages.sql")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.DBMaxConns != 10 {
		t.Fatalf("DBMaxConns default mismatch: %d", cfg.DBMaxConns)
	}
	if cfg.SchemaFile != "migrations/001_logo_packages.sql" {
		t.Fatalf("SchemaFile mismatch: %q", cfg.SchemaFile)
	}

	t.Setenv("DB_MAX_CONNS", "3")
	cfg, err = LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.DBMaxConns != 3 {
		t.Fatalf("DBMaxConns mismatch: %d", cfg.DBMaxConns)
	}
}

func TestLoadConfigDeadlineMargins(t *testing.T) {
	clearPipelineEnv(t)
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	if err := os.WriteFile(path, []byte("cancel_grace: 2s\nfinalize_timeout: 45s\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("PIPELINE_CONFIG_FILE", path)
	t.Setenv("CANCEL_GRACE_SECONDS", "1")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Pipeline.CancelGrace != time.Second {
		t.Fatalf("env should override file, got %s", cfg.Pipeline.CancelGrace)
	}
	if cfg.Pipeline.FinalizeTimeout != 45*time.Second {
		t.Fatalf("FinalizeTimeout = %s", cfg.Pipeline.FinalizeTimeout)
	}

	t.Setenv("FINALIZE_TIMEOUT_SECONDS", "0")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for zero finalize timeout")
	}
}
