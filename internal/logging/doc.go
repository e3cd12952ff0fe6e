// Package logging configures slog for artman. By default warnings go to
// stderr as text; with --debug every event is also written as JSON to
// ~/.artman/logs/artman.log with size-based rotation.
package logging
