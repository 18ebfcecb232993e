package config

// ServerConfig configures the HTTP ingest surface.
type ServerConfig struct {
	// Addr is the listen address for `powerpilot serve`.
	Addr string `yaml:"addr"`
}

func (c *ServerConfig) applyDefaults() {
	if c.Addr == "" {
		c.Addr = "127.0.0.1:7715"
	}
}
