package sl

import "log/slog"

// Err wraps an error as a structured "error" attribute.  A nil error is
// rendered as an empty string.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// Discard returns a logger that drops every record.  Used by tests and
// by commands that do not want service logs.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
