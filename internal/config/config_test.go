package config

import (
	"errors"
	"testing"
)

func validConfig() Config {
	return Config{
		RPCURLs:         "https://api.mainnet-beta.solana.com",
		RPCRateLimit:    10,
		BaseFeeLamports: 5000,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"no_urls", func(c *Config) { c.RPCURLs = "" }, true},
		{"only_commas", func(c *Config) { c.RPCURLs = " , ,, " }, true},
		{"zero_rate_limit", func(c *Config) { c.RPCRateLimit = 0 }, true},
		{"negative_rate_limit", func(c *Config) { c.RPCRateLimit = -5 }, true},
		{"zero_base_fee", func(c *Config) { c.BaseFeeLamports = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() error = %v, want nil", err)
			}
		})
	}
}

func TestRPCURLList(t *testing.T) {
	tests := []struct {
		name string
		urls string
		want []string
	}{
		{"single", "https://a.example", []string{"https://a.example"}},
		{"multiple", "https://a.example,https://b.example", []string{"https://a.example", "https://b.example"}},
		{"trims_whitespace", " https://a.example , https://b.example ", []string{"https://a.example", "https://b.example"}},
		{"skips_empty", "https://a.example,,https://b.example,", []string{"https://a.example", "https://b.example"}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{RPCURLs: tt.urls}
			got := cfg.RPCURLList()
			if len(got) != len(tt.want) {
				t.Fatalf("RPCURLList() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("url[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
