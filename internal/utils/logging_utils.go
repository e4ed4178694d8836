package utils

import (
	"context"
	"os"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

func GenerateTraceId() string {
	return uuid.New().String()
}

// ExtractServiceName names the deployment, "PR-<n>" for preview builds and "main" otherwise.
func ExtractServiceName() string {
	service := "PR-" + os.Getenv("PR_NUMBER")

	if service == "PR-" {
		service = "main"
	}
	return service
}

func LogEntry(entry *log.Entry, level, message string) {
	switch level {
	case "debug":
		entry.Debug(message)
	case "info":
		entry.Info(message)
	case "warn":
		entry.Warn(message)
	case "error":
		entry.Error(message)
	case "fatal":
		entry.Fatal(message)
	case "panic":
		entry.Panic(message)
	default:
		entry.Info(message)
	}
}

func LogMessage(level, message string) {
	entry := log.WithFields(log.Fields{
		"service": ExtractServiceName(),
	})

	LogEntry(entry, level, message)
}

// LogMessageWithFields logs with the trace id of the request. Contexts without a trace id,
// such as background work, log an empty one.
func LogMessageWithFields(ctx context.Context, level, message string) {
	LogEntry(entryFromContext(ctx), level, message)
}

func LogMessageWithFieldsAndError(ctx context.Context, level, message string, err error) {
	LogEntry(entryFromContext(ctx).WithError(err), level, message)
}

func entryFromContext(ctx context.Context) *log.Entry {
	traceId, _ := ctx.Value(TraceIdKey.String()).(string)

	return log.WithFields(log.Fields{
		"traceId": traceId,
		"service": ExtractServiceName(),
	})
}

// IsTraceId reports whether the value is a UUID usable as trace id.
func IsTraceId(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil && value != ""
}
