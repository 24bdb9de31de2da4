package logging

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/client9/reopen"
	log "github.com/sirupsen/logrus"
)

// Config selects the level, format and destination of the standard logger
type Config struct {
	Level  string
	Format string
	File   string // "stdout", or a path
}

// ParseLevel accepts trace, debug, info, warn, error, fatal or panic (any case)
func ParseLevel(level string) (log.Level, error) {
	switch strings.ToLower(level) {
	case "trace":
		return log.TraceLevel, nil
	case "debug":
		return log.DebugLevel, nil
	case "info":
		return log.InfoLevel, nil
	case "warn":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	case "fatal":
		return log.FatalLevel, nil
	case "panic":
		return log.PanicLevel, nil
	default:
		return log.PanicLevel, fmt.Errorf("log level can be trace, debug, info, warn, error, fatal or panic but not %s", level)
	}
}

// ParseFormat accepts json or text
func ParseFormat(format string) (log.Formatter, error) {
	switch strings.ToLower(format) {
	case "json":
		return &log.JSONFormatter{}, nil
	case "text":
		return &log.TextFormatter{FullTimestamp: true}, nil
	default:
		return nil, fmt.Errorf("log format can be json or text but not %s", format)
	}
}

// Setup configures the standard logger. When logging to a file, the file is
// reopened on SIGHUP (for logrotate) until ctx is cancelled. If the file cannot
// be opened, logs go to stderr instead. Only a bad level or format is an error.
func Setup(ctx context.Context, config Config) error {

	level, err := ParseLevel(config.Level)
	if err != nil {
		return err
	}

	formatter, err := ParseFormat(config.Format)
	if err != nil {
		return err
	}

	log.SetLevel(level)
	log.SetFormatter(formatter)

	if config.File == "" || strings.ToLower(config.File) == "stdout" {
		log.SetOutput(reopen.Stdout)
		return nil
	}

	w, err := reopen.NewFileWriter(config.File)
	if err != nil {
		log.SetOutput(reopen.Stderr)
		log.WithField("error", err.Error()).Warnf("Failed to log to %s, logging to default stderr", config.File)
		return nil
	}

	log.SetOutput(w)

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)

	go func() {
		defer signal.Stop(hup)
		for {
			select {
			case <-ctx.Done():
				log.SetOutput(reopen.Stderr)
				w.Close()
				return
			case <-hup:
				if err := w.Reopen(); err != nil {
					fmt.Fprintf(os.Stderr, "SIGHUP detected, but could not reopen log file %s: %s\n", config.File, err.Error())
				}
			}
		}
	}()

	return nil
}
