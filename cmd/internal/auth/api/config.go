package authapi

// Config carries auth HTTP surface settings.
type Config struct {
	// MaxBodyBytes bounds request bodies before JSON decoding.
	MaxBodyBytes int64
}

// DefaultConfig returns production-safe defaults.
func DefaultConfig() Config {
	return Config{
		MaxBodyBytes: 64 << 10,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultConfig().MaxBodyBytes
	}
	return c
}
