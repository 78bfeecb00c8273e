package config

// DatabaseConfig selects the game store.
type DatabaseConfig struct {
	// Driver is memory, sqlite or postgres.
	Driver string
	URL    string
}

// RedisConfig enables the update stream when URL is set.
type RedisConfig struct {
	URL          string
	StreamMaxLen int64
}

func loadDatabase() DatabaseConfig {
	return DatabaseConfig{
		Driver: envOrDefault(envDatabaseDriver, defaultDatabaseDriver),
		URL:    envOrDefault(envDatabaseURL, ""),
	}
}

func loadRedis() RedisConfig {
	return RedisConfig{
		URL:          envOrDefault(envRedisURL, ""),
		StreamMaxLen: int64(intEnvOrDefault(envRedisStreamMaxLen, 10000)),
	}
}
