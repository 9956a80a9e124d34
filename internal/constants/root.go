package constants

import "time"

const (
	AppName = "lightsout"
	Version = "v0.1.0"

	// HomeEnvVar overrides the default state/config directory.
	HomeEnvVar = "LIGHTSOUT_HOME"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the standard time format used throughout the application (HH:MM)
	TimeFormat = "15:04"

	// MinuteStampFormat renders an instant at minute precision without a zone.
	// It is the deadline half of a sent-warning key.
	MinuteStampFormat = "2006-01-02T15:04"

	// File names under the home directory
	ConfigFileName     = "config.yaml"
	NightStateFileName = "state.json"
	WeeklyFileName     = "weekly.json"
	ConfigMetaFileName = "config_meta.json"
	LedgerFileName     = "ledger.db"
	AgentPIDFileName   = "agent.pid"
	LogDirName         = "logs"
	LogFileName        = "lightsout.log"

	// Persistence constants
	CASMaxAttempts   = 5
	CASRetryInitial  = 15 * time.Millisecond
	CASRetryMax      = 200 * time.Millisecond
	CommitLockWait   = 5 * time.Second
	CommitLockRetry  = 10 * time.Millisecond
	StateFileMode    = 0600
	StateDirMode     = 0700
	ConfigWatchDelay = 500 * time.Millisecond

	// Agent constants
	DefaultPollInterval = 3 * time.Second
	SchedulerStopWait   = 5 * time.Second
	WarningTitle        = "Lights Out"
)
