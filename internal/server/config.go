package server

type Config struct {
	// BearerSecret authenticates the republish orchestrator. Compared in
	// constant time, never logged.
	BearerSecret string

	RepublishPerMinute int
	RepublishBurst     int
}

func (c *Config) setDefaults() {
	if c.RepublishPerMinute <= 0 {
		c.RepublishPerMinute = 60
	}
	if c.RepublishBurst <= 0 {
		c.RepublishBurst = 10
	}
}
