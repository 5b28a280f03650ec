// Package logger provides structured logging for the remote-data layer
// using zerolog.
//
// Every long-lived collaborator (tracker, cache, builder, services) receives a
// *Logger at construction and tags it with its component name, so log lines
// can be filtered per component.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.New(&cfg, "hyperdata").WithComponent("request-tracker")
//	log.Debug("request dispatched", logger.Fields("key", key, "id", id))
package logger
