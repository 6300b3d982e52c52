package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Server.Port != 8080 || cfg.Server.Mode != "release" {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Extractor.Mode != "http" || cfg.Extractor.EntryPoint != "__fathomVectorize" {
		t.Errorf("extractor = %+v", cfg.Extractor)
	}
	if cfg.Collector.RetryBackoff != time.Second {
		t.Errorf("retry backoff = %v, want 1s", cfg.Collector.RetryBackoff)
	}
	if !reflect.DeepEqual(cfg.Browser.BlockedResourceTypes, []string{"Media"}) {
		t.Errorf("blocked = %v", cfg.Browser.BlockedResourceTypes)
	}
	if cfg.Store.TTL != time.Hour {
		t.Errorf("store ttl = %v", cfg.Store.TTL)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CORPUS_PORT", "9090")
	t.Setenv("CORPUS_EXTRACTOR_MODE", "page")
	t.Setenv("CORPUS_RETRY_BACKOFF", "250ms")
	t.Setenv("CORPUS_API_KEYS", " a, ,b ")
	t.Setenv("CORPUS_STEALTH", "true")
	t.Setenv("CORPUS_EXTRACTOR_RPS", "2.5")

	cfg := Load()
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Extractor.Mode != "page" {
		t.Errorf("mode = %q", cfg.Extractor.Mode)
	}
	if cfg.Collector.RetryBackoff != 250*time.Millisecond {
		t.Errorf("backoff = %v", cfg.Collector.RetryBackoff)
	}
	if !reflect.DeepEqual(cfg.Auth.APIKeys, []string{"a", "b"}) {
		t.Errorf("keys = %q", cfg.Auth.APIKeys)
	}
	if !cfg.Browser.Stealth || cfg.Extractor.RequestsPerSecond != 2.5 {
		t.Errorf("stealth/rps = %v/%v", cfg.Browser.Stealth, cfg.Extractor.RequestsPerSecond)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("CORPUS_PORT", "eighty")
	t.Setenv("CORPUS_DOM_STABLE_WAIT", "soon")

	cfg := Load()
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want fallback 8080", cfg.Server.Port)
	}
	if cfg.Browser.DOMStableWait != 300*time.Millisecond {
		t.Errorf("dom wait = %v, want fallback", cfg.Browser.DOMStableWait)
	}
}
