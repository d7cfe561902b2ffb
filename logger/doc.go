// Package logger provides structured logging using zerolog.
//
// It supports JSON and console output, level configuration, and
// component-scoped loggers with structured fields. Logs go to stderr by
// default so stdout stays available for program output.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("stream")
//	log.Info("run completed", logger.Fields("stage", "batch"))
package logger
