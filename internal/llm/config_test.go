package llm

import (
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestApplyDefaults_Retry(t *testing.T) {
	tests := []struct {
		name      string
		doc       string
		wantRetry int
		wantDelay time.Duration
	}{
		{"section absent", "provider: mock\n", 3, 3 * time.Second},
		{"explicit zero kept", "retry:\n  max_retries: 0\n", 0, 3 * time.Second},
		{"explicit value kept", "retry:\n  max_retries: 7\n  base_delay: 250ms\n", 7, 250 * time.Millisecond},
		{"only delay set", "retry:\n  base_delay: 1s\n", 3, time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			if err := yaml.Unmarshal([]byte(tt.doc), &cfg); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			cfg.ApplyDefaults()
			if cfg.Retry.MaxRetries != tt.wantRetry {
				t.Errorf("MaxRetries = %d, want %d", cfg.Retry.MaxRetries, tt.wantRetry)
			}
			if cfg.Retry.BaseDelay != tt.wantDelay {
				t.Errorf("BaseDelay = %v, want %v", cfg.Retry.BaseDelay, tt.wantDelay)
			}
		})
	}
}

func TestRetryConfig_RejectsNegative(t *testing.T) {
	var cfg Config
	if err := yaml.Unmarshal([]byte("retry:\n  max_retries: -1\n"), &cfg); err == nil {
		t.Fatal("expected error for negative max_retries")
	}
}
