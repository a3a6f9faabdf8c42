package logger

import (
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

const ErrorTypeField = "error_type"

const (
	ErrorTypeSource  = "source"
	ErrorTypeBrowser = "browser"
	ErrorTypeATS     = "ats"
	ErrorTypeMailbox = "mailbox"
	ErrorTypeDb      = "db"
	ErrorTypeAiApi   = "ai_api"
)

var logFile *os.File

// Setup configures logrus output, format, and level. Errors are mirrored to
// a log file next to the database so automation failures survive the
// terminal session.
func Setup(dir, level string) {
	logDir := filepath.Join(dir, "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.Fatalf("Failed to create log directory: %v", err)
	}

	var err error
	logFile, err = os.OpenFile(filepath.Join(logDir, "applypilot.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}

	log.SetOutput(io.MultiWriter(os.Stdout, logFile))
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000 -0700",
	})

	switch level {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "warning", "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
}

func Cleanup() {
	if logFile != nil {
		_ = logFile.Close()
	}
}
