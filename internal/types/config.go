package types

type RunMode string

const (
	// ModeLocal runs the API server and the scheduler in one process
	ModeLocal RunMode = "local"
	// ModeAPI runs just the API server
	ModeAPI RunMode = "api"
	// ModeScheduler runs just the scheduler and the webhook consumer
	ModeScheduler RunMode = "scheduler"
)

func (m RunMode) IsLocal() bool {
	return m == ModeLocal
}

// RunsAPI reports whether the mode serves the HTTP API
func (m RunMode) RunsAPI() bool {
	return m == ModeLocal || m == ModeAPI
}

// RunsScheduler reports whether the mode runs the scheduler and the webhook consumer
func (m RunMode) RunsScheduler() bool {
	return m == ModeLocal || m == ModeScheduler
}

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

type DatabaseDriver string

const (
	DatabaseDriverSQLite   DatabaseDriver = "sqlite"
	DatabaseDriverPostgres DatabaseDriver = "postgres"
)
