/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

const timestampFormat = "2006-01-02 15:04:05.000"

// LogOptions configures every logger created through NewLogger.
type LogOptions struct {
	Level         string `mapstructure:"level"`
	ConsoleFormat string `mapstructure:"console_format"`
	FileEnabled   bool   `mapstructure:"file_enabled"`
	FileDir       string `mapstructure:"file_dir"`
	FileFormat    string `mapstructure:"file_format"`
	FileMaxAge    int    `mapstructure:"file_max_age_days"`
}

var (
	optionsMu        sync.RWMutex
	options          = defaultLogOptions()
	consoleOut       io.Writer = os.Stdout
	loggerRegistryMu sync.RWMutex
	loggerRegistry   = map[string]*logrus.Logger{}
)

func defaultLogOptions() LogOptions {
	return LogOptions{
		Level:         EnvDefaultString("LOG_LEVEL", "info"),
		ConsoleFormat: EnvDefaultString("CONSOLE_LOG_FORMAT", "text"),
		FileEnabled:   EnvDefaultBool("FILE_LOG_ENABLED", false),
		FileDir:       "logs",
		FileFormat:    EnvDefaultString("FILE_LOG_FORMAT", "text"),
		FileMaxAge:    7,
	}
}

// ConfigureLogging replaces the options used by loggers created afterwards
// and re-levels every logger already registered.
func ConfigureLogging(opts LogOptions) {
	optionsMu.Lock()
	if opts.FileDir == "" {
		opts.FileDir = "logs"
	}
	options = opts
	optionsMu.Unlock()
	SetAllLoggersLevel(ParseLogLevel(opts.Level))
}

// SetConsoleOutput redirects the console hook of loggers created afterwards.
func SetConsoleOutput(w io.Writer) {
	optionsMu.Lock()
	defer optionsMu.Unlock()
	consoleOut = w
}

func currentOptions() (LogOptions, io.Writer) {
	optionsMu.RLock()
	defer optionsMu.RUnlock()
	return options, consoleOut
}

// NewLogger returns the named logger, creating and registering it on first use.
func NewLogger(name string) *logrus.Logger {
	loggerRegistryMu.RLock()
	l, ok := loggerRegistry[name]
	loggerRegistryMu.RUnlock()
	if ok {
		return l
	}

	opts, out := currentOptions()
	l = logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(ParseLogLevel(opts.Level))
	l.SetReportCaller(true)
	l.SetFormatter(newFormatter(name, opts.ConsoleFormat, true))
	l.AddHook(&writerHook{writer: out, formatter: l.Formatter})
	if opts.FileEnabled {
		if err := AddDailyRollingFileHook(l, name, opts.FileDir, opts.FileFormat, opts.FileMaxAge); err != nil {
			l.WithError(err).Warn("file logging disabled")
		}
	}

	loggerRegistryMu.Lock()
	defer loggerRegistryMu.Unlock()
	if existing, ok := loggerRegistry[name]; ok {
		return existing
	}
	loggerRegistry[name] = l
	return l
}

func newFormatter(name, format string, colored bool) logrus.Formatter {
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return &JSONLogFormatter{LoggerName: name}
	}
	return &Log4jFormatter{LoggerName: name, Colored: colored, NameWidth: 10}
}

// SetAllLoggersLevel applies lvl to every registered logger.
func SetAllLoggersLevel(lvl logrus.Level) {
	loggerRegistryMu.RLock()
	defer loggerRegistryMu.RUnlock()
	for _, lg := range loggerRegistry {
		lg.SetLevel(lvl)
	}
	logrus.SetLevel(lvl)
}

// SetLoggerLevel changes the level of one registered logger.
func SetLoggerLevel(name string, lvl string) bool {
	loggerRegistryMu.RLock()
	lg, ok := loggerRegistry[name]
	loggerRegistryMu.RUnlock()
	if !ok {
		return false
	}
	lg.SetLevel(ParseLogLevel(lvl))
	return true
}

// ParseLogLevel maps a level name to logrus, defaulting to info.
func ParseLogLevel(s string) logrus.Level {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(s))
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

type writerHook struct {
	writer    io.Writer
	formatter logrus.Formatter
	mu        sync.Mutex
}

func (h *writerHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *writerHook) Fire(e *logrus.Entry) error {
	b, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.writer.Write(b)
	return err
}

// Log4jFormatter renders "time LEVEL pid --- [name] file:line : msg k=v".
type Log4jFormatter struct {
	LoggerName string
	Colored    bool
	NameWidth  int
}

var (
	levelColors = map[logrus.Level]*color.Color{
		logrus.TraceLevel: color.New(color.FgWhite),
		logrus.DebugLevel: color.New(color.FgBlue),
		logrus.InfoLevel:  color.New(color.FgGreen),
		logrus.WarnLevel:  color.New(color.FgYellow),
		logrus.ErrorLevel: color.New(color.FgRed),
		logrus.FatalLevel: color.New(color.FgRed, color.Bold),
		logrus.PanicLevel: color.New(color.FgRed, color.Bold),
	}
	nameColor  = color.New(color.FgCyan)
	pidColor   = color.New(color.FgMagenta)
	faintColor = color.New(color.Faint)
)

func (f *Log4jFormatter) paint(c *color.Color, s string) string {
	if !f.Colored || c == nil {
		return s
	}
	return c.Sprint(s)
}

func (f *Log4jFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b strings.Builder
	b.WriteString(entry.Time.Format(timestampFormat))
	b.WriteByte(' ')
	b.WriteString(f.paint(levelColors[entry.Level], fmt.Sprintf("%7s", strings.ToUpper(entry.Level.String()))))
	b.WriteByte(' ')
	b.WriteString(f.paint(pidColor, fmt.Sprintf("%-6d", os.Getpid())))
	b.WriteString(" --- ")
	name := f.LoggerName
	if f.NameWidth > 0 && len(name) > f.NameWidth {
		name = name[:f.NameWidth]
	}
	b.WriteString(f.paint(nameColor, fmt.Sprintf("[%*s]", f.NameWidth, name)))
	if entry.Caller != nil {
		b.WriteString(f.paint(faintColor, fmt.Sprintf(" %s:%d", callerPath(entry.Caller.File), entry.Caller.Line)))
	}
	b.WriteString(" : ")
	b.WriteString(entry.Message)
	for _, k := range sortedKeys(entry.Data) {
		fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

// JSONLogFormatter renders one JSON object per entry.
type JSONLogFormatter struct {
	LoggerName string
}

func (f *JSONLogFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	rec := map[string]interface{}{
		"time":    entry.Time.Format(timestampFormat),
		"level":   entry.Level.String(),
		"logger":  f.LoggerName,
		"message": entry.Message,
	}
	if entry.Caller != nil {
		rec["caller"] = fmt.Sprintf("%s:%d", callerPath(entry.Caller.File), entry.Caller.Line)
	}
	if len(entry.Data) > 0 {
		fields := make(map[string]interface{}, len(entry.Data))
		for k, v := range entry.Data {
			if err, ok := v.(error); ok {
				v = err.Error()
			}
			fields[k] = v
		}
		rec["fields"] = fields
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func sortedKeys(data logrus.Fields) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// callerPath trims a source path to its last two elements.
func callerPath(file string) string {
	file = filepath.ToSlash(file)
	if i := strings.LastIndex(file, "/"); i > 0 {
		if j := strings.LastIndex(file[:i], "/"); j >= 0 {
			return file[j+1:]
		}
	}
	return file
}

// EnvDefaultString returns the environment value for key, or def when unset.
func EnvDefaultString(key string, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

// EnvDefaultBool parses the environment value for key as a bool, or returns def.
func EnvDefaultBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
