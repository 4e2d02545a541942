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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const dateLayout = "2006-01-02"

// dailyWriter appends to <dir>/<date>/<name>.log and opens a new directory
// when the date changes. Directories older than maxAgeDays are removed on
// rollover; maxAgeDays <= 0 keeps everything.
type dailyWriter struct {
	dir        string
	name       string
	maxAgeDays int
	now        func() time.Time

	mu      sync.Mutex
	curDate string
	file    *os.File
}

func newDailyWriter(dir, name string, maxAgeDays int) *dailyWriter {
	return &dailyWriter{dir: dir, name: name, maxAgeDays: maxAgeDays, now: time.Now}
}

func (w *dailyWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	date := w.now().Format(dateLayout)
	if w.file == nil || w.curDate != date {
		rolled := w.curDate != "" && w.curDate != date
		if err := w.open(date); err != nil {
			return 0, err
		}
		if rolled {
			w.cleanup()
		}
	}
	return w.file.Write(p)
}

func (w *dailyWriter) open(date string) error {
	if w.file != nil {
		_ = w.file.Close()
		w.file = nil
	}
	dir := filepath.Join(w.dir, date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(dir, w.name+".log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	w.file = f
	w.curDate = date
	return nil
}

func (w *dailyWriter) cleanup() {
	if w.maxAgeDays <= 0 {
		return
	}
	cutoff := w.now().AddDate(0, 0, -w.maxAgeDays).Format(dateLayout)
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := time.Parse(dateLayout, e.Name()); err != nil {
			continue
		}
		if e.Name() < cutoff {
			_ = os.RemoveAll(filepath.Join(w.dir, e.Name()))
		}
	}
}

func (w *dailyWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// levelFileHook routes entries to one daily file per level; fatal and panic
// share the error file.
type levelFileHook struct {
	writers   map[logrus.Level]io.Writer
	formatter logrus.Formatter
}

func (h *levelFileHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *levelFileHook) Fire(e *logrus.Entry) error {
	w, ok := h.writers[e.Level]
	if !ok {
		return nil
	}
	b, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// AddDailyRollingFileHook attaches per-level daily files under dir to l.
func AddDailyRollingFileHook(l *logrus.Logger, name, dir, format string, maxAgeDays int) error {
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create log dir %s: %w", dir, err)
	}
	errW := newDailyWriter(dir, "error", maxAgeDays)
	l.AddHook(&levelFileHook{
		writers: map[logrus.Level]io.Writer{
			logrus.TraceLevel: newDailyWriter(dir, "trace", maxAgeDays),
			logrus.DebugLevel: newDailyWriter(dir, "debug", maxAgeDays),
			logrus.InfoLevel:  newDailyWriter(dir, "info", maxAgeDays),
			logrus.WarnLevel:  newDailyWriter(dir, "warn", maxAgeDays),
			logrus.ErrorLevel: errW,
			logrus.FatalLevel: errW,
			logrus.PanicLevel: errW,
		},
		formatter: newFormatter(name, format, false),
	})
	return nil
}
