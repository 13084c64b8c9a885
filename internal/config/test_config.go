package config

import "time"

// TestConfig returns a config suitable for testing. Paths are left empty;
// tests point them at t.TempDir().
func TestConfig() *Config {
	cfg := defaultConfig()
	cfg.API.BaseURL = "http://127.0.0.1/api.php"
	cfg.API.UserAgent = "idgames-test/1.0"
	cfg.API.HTTPTimeout = 5 * time.Second
	cfg.Cache.Dir = ""
	cfg.Database.Path = ""
	cfg.Database.SearchIndex = ""
	cfg.Log.Level = "off"
	cfg.Log.File = ""
	return cfg
}
