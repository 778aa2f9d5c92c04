package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Debug        bool
	PrettyFormat bool
	Service      string
}

// New builds the process logger and installs it as zerolog's global logger
// so stray log.* calls share the same sink.
func New(conf Config) zerolog.Logger {
	return newWithWriter(conf, os.Stdout)
}

func newWithWriter(conf Config, w io.Writer) zerolog.Logger {
	if conf.PrettyFormat {
		w = zerolog.ConsoleWriter{Out: w}
	}

	level := zerolog.InfoLevel
	if conf.Debug {
		level = zerolog.DebugLevel
	}

	ctx := zerolog.New(w).Level(level).With().Timestamp().Caller()
	if conf.Service != "" {
		ctx = ctx.Str("service", conf.Service)
	}
	l := ctx.Logger()

	log.Logger = l
	return l
}
