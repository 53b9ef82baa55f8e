// Package log builds the framework's logrus logger using functional options.
//
//	logger := log.New(
//		log.WithLevel("debug"),
//		log.WithFormat("json"),
//	)
//
// Conventions: field keys in snake_case ("request_id", "type"), messages
// capitalized and without trailing punctuation.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Default configuration values for a new logger.
const (
	DefaultLevel  = logrus.InfoLevel
	DefaultFormat = FormatText
)

// Format is the log output format.
type Format uint8

const (
	FormatText Format = iota
	FormatJSON
)

func (f Format) String() string {
	if f == FormatJSON {
		return "json"
	}
	return "text"
}

type config struct {
	level  logrus.Level
	format Format
	writer io.Writer
}

// Option configures a logger.
type Option func(*config)

// WithLevel sets the minimum level. It accepts a logrus.Level or a level
// name; invalid values leave the level unchanged.
func WithLevel(v any) Option {
	return func(c *config) {
		switch t := v.(type) {
		case logrus.Level:
			c.level = t
		case string:
			if level, err := logrus.ParseLevel(t); err == nil {
				c.level = level
			}
		}
	}
}

// WithFormat sets the output format. It accepts a Format or "text"/"json";
// invalid values leave the format unchanged.
func WithFormat(v any) Option {
	return func(c *config) {
		switch t := v.(type) {
		case Format:
			c.format = t
		case string:
			if format, err := ParseFormat(t); err == nil {
				c.format = format
			}
		}
	}
}

// WithWriter sets the output destination. A nil writer is ignored.
func WithWriter(w io.Writer) Option {
	return func(c *config) {
		if w != nil {
			c.writer = w
		}
	}
}

// New creates a logger. By default it logs at info level, as text, to stdout.
func New(opts ...Option) *logrus.Logger {
	c := config{level: DefaultLevel, format: DefaultFormat, writer: os.Stdout}
	for _, opt := range opts {
		opt(&c)
	}

	l := logrus.New()
	l.SetOutput(c.writer)
	l.SetLevel(c.level)
	if c.format == FormatJSON {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l
}

// ParseFormat converts "text" or "json" (any case) into a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "text", "":
		return FormatText, nil
	default:
		return FormatText, fmt.Errorf("invalid log format %q", s)
	}
}
