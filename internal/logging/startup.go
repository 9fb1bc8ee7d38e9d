package logging

import (
	"runtime"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// StartupLogger collects process identity, configuration, the resolved frame
// source and feature flags, then emits a single structured event summarising
// how the process was started.
type StartupLogger struct {
	name         string
	version      string
	source       string
	initDuration time.Duration

	features map[string]bool
	config   map[string]string
	logger   *zerolog.Logger
}

// NewStartupLogger creates a StartupLogger for the named binary
// (e.g. "retrosnap-web").
func NewStartupLogger(name string) *StartupLogger {
	return &StartupLogger{
		name:     name,
		features: make(map[string]bool),
		config:   make(map[string]string),
	}
}

// WithLogger redirects the summary to l instead of the global logger.
func (s *StartupLogger) WithLogger(l zerolog.Logger) *StartupLogger {
	s.logger = &l
	return s
}

// Version sets the build version string.
func (s *StartupLogger) Version(v string) *StartupLogger {
	s.version = v
	return s
}

// Source records the frame source in use, e.g. "device:/dev/video0".
func (s *StartupLogger) Source(desc string) *StartupLogger {
	s.source = desc
	return s
}

// Feature registers a boolean feature flag (e.g. "captions").
func (s *StartupLogger) Feature(name string, enabled bool) *StartupLogger {
	s.features[name] = enabled
	return s
}

// Config registers a non-sensitive configuration key-value pair.
func (s *StartupLogger) Config(key, value string) *StartupLogger {
	s.config[key] = value
	return s
}

// InitDuration records how long startup took.
func (s *StartupLogger) InitDuration(d time.Duration) *StartupLogger {
	s.initDuration = d
	return s
}

// Log emits the summary at info level.
func (s *StartupLogger) Log() {
	l := log.Logger
	if s.logger != nil {
		l = *s.logger
	}
	evt := l.Info()

	proc := zerolog.Dict().
		Str("name", s.name).
		Str("goVersion", runtime.Version()).
		Str("os", runtime.GOOS).
		Str("arch", runtime.GOARCH).
		Str("logLevel", zerolog.GlobalLevel().String())
	if s.version != "" {
		proc = proc.Str("version", s.version)
	}
	evt = evt.Dict("process", proc)

	if s.source != "" {
		evt = evt.Str("source", s.source)
	}

	if len(s.features) > 0 {
		d := zerolog.Dict()
		for _, k := range sortedKeys(s.features) {
			d = d.Bool(k, s.features[k])
		}
		evt = evt.Dict("features", d)
	}

	if len(s.config) > 0 {
		d := zerolog.Dict()
		for _, k := range sortedKeys(s.config) {
			d = d.Str(k, s.config[k])
		}
		evt = evt.Dict("config", d)
	}

	if s.initDuration > 0 {
		evt = evt.Dur("initDuration", s.initDuration)
	}

	evt.Msg("Startup complete")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
