package api

import "time"

// Config holds server configuration.
type Config struct {
	Port              int
	Version           string
	RateLimitRequests int           // Requests per minute per client IP (0 = disabled)
	RateLimitBurst    int           // Burst size
	Auth              AuthConfig    // Authentication configuration
	AllowedOrigins    []string      // CORS and websocket allowed origins (empty = allow all)
	SearchCacheTTL    time.Duration // Lifetime of cached search results
	SearchCacheSize   int           // Maximum cached result sets
	WebSocket         WebSocketConfig
	ShutdownTimeout   time.Duration
}

// DefaultConfig returns the settings used when the command line leaves them
// unset.
func DefaultConfig() Config {
	return Config{
		Port:              8080,
		Version:           "dev",
		RateLimitRequests: 120,
		RateLimitBurst:    20,
		SearchCacheTTL:    10 * time.Minute,
		SearchCacheSize:   256,
		WebSocket:         DefaultWebSocketConfig(),
		ShutdownTimeout:   10 * time.Second,
	}
}
