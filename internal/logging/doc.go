// Package logging wraps log/slog with the handlers and attribute conventions
// used throughout tradescribe: a single-line console format, a JSON format,
// component-scoped child loggers, and standardized field keys.
package logging
