// Package logger configures the process-wide slog JSON logger and carries
// request-scoped loggers (with trace_id and learner_id attached) through a
// context.Context.
package logger
