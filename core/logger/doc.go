// Package logger provides a structured logging facility based on Zap.
//
// It builds a development or production logger from configuration and offers
// helpers that attach correlation fields.
//
// # Correlation
//
// WithRayID extracts the request id set by the rayid middleware from a Fiber
// context. WithJob attaches client, batch and job ids so that every log line
// of one poller job can be found together.
//
// # Configuration
//
//   - Level: debug, info, warn, error
//   - Format: json (production) or console (development)
//
// # Usage
//
//	log, _ := logger.New(&cfg.Log)
//	log.Info("Server started")
//
//	l := logger.WithJob(log, clientID, batch.ID, job.ID)
//	l.Debug("Page fetched", zap.Int("records", n))
package logger
