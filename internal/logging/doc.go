// Package logging provides structured logging with per-module levels.
//
// Loggers are obtained by module name and route to stdout (text or json),
// the systemd journal when available, and an in-memory history buffer
// serving the daemon's log readback call:
//
//	logger := logging.GetLogger("video")
//	logger.Info("dump started", "port", "hdmi", "fields", 5)
//
// Levels are set globally and overridden per module from the [logging]
// section of the config file; the config watcher re-applies them at
// runtime without restarting the daemon.
package logging
