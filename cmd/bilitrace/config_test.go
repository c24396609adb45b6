package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseJSONConfigSuccess(t *testing.T) {
	path := writeTempConfig(t, `{"hash":"90a567c7","cid":35268920394,"sessdata":"secret","threads":8,"first":true,"mode":"mitm","table":"cache/mitm_table.bin"}`)

	var cfg Config
	if err := parseJSONConfig(&cfg, path); err != nil {
		t.Fatalf("parseJSONConfig returned error: %v", err)
	}

	if cfg.Hash != "90a567c7" || cfg.CID != 35268920394 {
		t.Fatalf("unexpected target fields: %+v", cfg)
	}

	if cfg.SessData != "secret" {
		t.Fatalf("expected sessdata to be populated")
	}

	if cfg.Threads != 8 || !cfg.First || cfg.Mode != "mitm" || cfg.Table != "cache/mitm_table.bin" {
		t.Fatalf("unexpected numeric or boolean fields: %+v", cfg)
	}
}

func TestParseJSONConfigMissingFile(t *testing.T) {
	var cfg Config
	missing := filepath.Join(t.TempDir(), "missing.json")
	if err := parseJSONConfig(&cfg, missing); err == nil {
		t.Fatalf("parseJSONConfig expected error for missing file")
	}
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}
