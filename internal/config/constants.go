package config

import "time"

const (
	envDotEnv            = "DOTENV_PATH"
	envPort              = "PORT"
	envProvider          = "PROVIDER"
	envTimezone          = "TIMEZONE"
	envPollingHours      = "POLLING_HOURS"
	envOffHoursSleep     = "OFF_HOURS_SLEEP"
	envMinSleep          = "MIN_POLL_SLEEP"
	envDefaultInterval   = "DEFAULT_POLL_INTERVAL"
	envCloseGameInterval = "CLOSE_GAME_POLL_INTERVAL"
	envScheduledInterval = "SCHEDULED_GAME_POLL_INTERVAL"
	envAPITimeout        = "API_TIMEOUT"
	envScheduleTimes     = "SCHEDULE_UPDATE_TIMES"
	envScheduleDaysAhead = "SCHEDULE_DAYS_AHEAD"
	envAdminToken        = "ADMIN_TOKEN"
	envDatabaseDriver    = "DATABASE_DRIVER"
	envDatabaseURL       = "DATABASE_URL"
	envRedisURL          = "REDIS_URL"
	envRedisStreamMaxLen = "REDIS_STREAM_MAXLEN"
	envLogLevel          = "LOG_LEVEL"
	envLogFormat         = "LOG_FORMAT"
	envMetricsPort       = "METRICS_PORT"
	envMetricsOn         = "METRICS_ENABLED"
	envOtelEndpoint      = "OTEL_EXPORTER_OTLP_ENDPOINT"
	envOtelService       = "OTEL_SERVICE_NAME"
	envOtelInsecure      = "OTEL_EXPORTER_OTLP_INSECURE"

	// Per-league suffixes, prefixed with the league code and an underscore.
	suffixEnabled      = "_ENABLED"
	suffixProvider     = "_PROVIDER"
	suffixBaseURL      = "_BASE_URL"
	suffixAPIKey       = "_API_KEY"
	suffixRPM          = "_MAX_REQUESTS_PER_MINUTE"
	suffixThreshold    = "_CLOSE_GAME_THRESHOLD"
	suffixHeartbeat    = "_HEARTBEAT"
	suffixFastHours    = "_FAST_HOURS"
	suffixFastInterval = "_FAST_INTERVAL"
	suffixSlowInterval = "_SLOW_INTERVAL"

	defaultPort     = "4000"
	defaultTimezone = "America/New_York"
	// Upstream providers publish overnight corrections until about 2 AM eastern.
	defaultPollingHours      = "12:00-02:00"
	defaultOffHoursSleep     = 5 * Duration(time.Minute)
	defaultMinSleep          = 5 * Duration(time.Second)
	defaultDefaultInterval   = 120 * Duration(time.Second)
	defaultCloseGameInterval = 60 * Duration(time.Second)
	defaultScheduledInterval = 300 * Duration(time.Second)
	defaultAPITimeout        = 10 * Duration(time.Second)
	defaultScheduleTimes     = "06:00,18:00"
	defaultScheduleDaysAhead = 1
	defaultDatabaseDriver    = "memory"
	defaultMetricsPort       = "9090"
	defaultServiceName       = "sports-data-service"

	// Provider identifiers understood by the collector factory.
	ProviderFixture     = "fixture"
	ProviderBalldontlie = "balldontlie"
	ProviderNHL         = "nhl"
	ProviderMLB         = "mlb"
	ProviderESPN        = "espn"
)
