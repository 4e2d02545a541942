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
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestParseLogLevel(t *testing.T) {
	cases := map[string]logrus.Level{
		"debug":   logrus.DebugLevel,
		" WARN ":  logrus.WarnLevel,
		"warning": logrus.WarnLevel,
		"":        logrus.InfoLevel,
		"chatty":  logrus.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestNewLoggerIsRegisteredOnce(t *testing.T) {
	var buf bytes.Buffer
	SetConsoleOutput(&buf)
	defer SetConsoleOutput(os.Stdout)

	a := NewLogger("once-test")
	b := NewLogger("once-test")
	if a != b {
		t.Fatal("same name should return the same logger")
	}
	if !SetLoggerLevel("once-test", "error") || a.GetLevel() != logrus.ErrorLevel {
		t.Fatalf("level = %s", a.GetLevel())
	}
	if SetLoggerLevel("never-created", "debug") {
		t.Fatal("unknown logger reported as updated")
	}
}

func TestLog4jFormatter(t *testing.T) {
	f := &Log4jFormatter{LoggerName: "API", NameWidth: 6}
	entry := &logrus.Entry{
		Time:    time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "slow request",
		Data:    logrus.Fields{"status": 200, "path": "/x"},
	}
	b, err := f.Format(entry)
	if err != nil {
		t.Fatal(err)
	}
	line := string(b)
	for _, want := range []string{"2025-03-01 10:00:00.000", "WARN", "[   API]", "slow request path=/x status=200"} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
}

func TestJSONLogFormatter(t *testing.T) {
	f := &JSONLogFormatter{LoggerName: "DATABASE"}
	b, err := f.Format(&logrus.Entry{
		Time:    time.Now(),
		Level:   logrus.ErrorLevel,
		Message: "boom",
		Data:    logrus.Fields{"error": os.ErrNotExist},
	})
	if err != nil {
		t.Fatal(err)
	}
	var rec map[string]interface{}
	if err := json.Unmarshal(b, &rec); err != nil {
		t.Fatalf("invalid json %s: %v", b, err)
	}
	fields := rec["fields"].(map[string]interface{})
	if rec["logger"] != "DATABASE" || rec["level"] != "error" || fields["error"] != os.ErrNotExist.Error() {
		t.Fatalf("record = %v", rec)
	}
}

func TestDailyWriterRollsAndCleansUp(t *testing.T) {
	dir := t.TempDir()
	day := time.Date(2025, 1, 1, 12, 0, 0, 0, time.Local)
	w := newDailyWriter(dir, "info", 2)
	w.now = func() time.Time { return day }
	defer w.Close()

	for i := 0; i < 4; i++ {
		if _, err := w.Write([]byte("line\n")); err != nil {
			t.Fatalf("write day %d: %v", i, err)
		}
		day = day.AddDate(0, 0, 1)
	}
	if _, err := os.Stat(filepath.Join(dir, "2025-01-04", "info.log")); err != nil {
		t.Fatalf("current file missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "2025-01-01")); !os.IsNotExist(err) {
		t.Fatalf("expired dir kept: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "2025-01-02")); err != nil {
		t.Fatalf("dir within max age removed: %v", err)
	}
}

func TestEnvDefaults(t *testing.T) {
	t.Setenv("FLEETDESK_TEST_BOOL", "yes")
	t.Setenv("FLEETDESK_TEST_STR", "")
	if !EnvDefaultBool("FLEETDESK_TEST_BOOL", false) {
		t.Fatal("bool not parsed")
	}
	if EnvDefaultString("FLEETDESK_TEST_STR", "def") != "def" {
		t.Fatal("empty string should fall back")
	}
}
