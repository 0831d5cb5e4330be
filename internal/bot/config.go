package bot

// Config represents the configuration for the bot
type Config struct {
	Token string
	// Long-poll timeout in seconds
	UpdateTimeout int
	Debug         bool
}

// DefaultConfig returns the default bot configuration
func DefaultConfig(token string) Config {
	return Config{
		Token:         token,
		UpdateTimeout: 60,
	}
}
