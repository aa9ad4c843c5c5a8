// Package logging configures the structured logger every scanner
// component logs through, mirroring the teacher's
// observability/logging.Setup: JSON output, a ReplaceAttr remap of the
// standard slog keys, and service/env attributes attached to every line.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup builds a JSON slog.Logger tagged with service and env, and installs
// it as the process default so packages that log via slog.Default() pick
// it up without an explicit logger being threaded through.
func Setup(service, env string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: false,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.TimeKey:
				return slog.Attr{Key: "timestamp", Value: attr.Value}
			case slog.LevelKey:
				return slog.String("severity", strings.ToUpper(attr.Value.String()))
			case slog.MessageKey:
				return slog.Attr{Key: "message", Value: attr.Value}
			default:
				return attr
			}
		},
	})

	attrs := []any{slog.String("service", strings.TrimSpace(service))}
	if env = strings.TrimSpace(env); env != "" {
		attrs = append(attrs, slog.String("env", env))
	}

	logger := slog.New(handler).With(attrs...)
	slog.SetDefault(logger)
	return logger
}
