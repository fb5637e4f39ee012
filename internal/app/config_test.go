package app

import "testing"

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("unexpected http addr: %s", cfg.HTTPAddr)
	}
	if cfg.MetricsAddr != ":9090" {
		t.Errorf("unexpected metrics addr: %s", cfg.MetricsAddr)
	}
	if cfg.BackendBaseURL == "" {
		t.Error("backend base url must have a default")
	}
	if cfg.MerchantID == "" {
		t.Error("merchant id must have a default")
	}
	if cfg.PostgresDSN != "" {
		t.Error("postgres dsn must be empty by default")
	}
	if cfg.KafkaBrokers != "" {
		t.Error("kafka brokers must be empty by default")
	}
}
