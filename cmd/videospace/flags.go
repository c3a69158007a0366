package main

import "time"

// GlobalFlags holds persistent flags shared by every command.
type GlobalFlags struct {
	ConfigPath string
}

// RunFlags override config values for the run command. Empty means "keep config".
type RunFlags struct {
	APIListen     string
	MetricsListen string
	LogLevel      string
	NoTray        bool
	NoAutoStart   bool
	StopOnExit    bool
}

// APIFlags select the running shell the client commands talk to.
type APIFlags struct {
	APIUrl     string
	APITimeout time.Duration
}

// HistoryFlags extends APIFlags for the history command.
type HistoryFlags struct {
	APIFlags
	Limit int
}
