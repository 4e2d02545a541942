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

package database

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
)

const commonSeedDir = "common"

var seedOrderPattern = regexp.MustCompile(`^(\d+)_`)

// SeedFile describes a SQL file to be executed during seeding.
type SeedFile struct {
	Path        string
	Name        string
	Order       int
	Environment string
}

// SeedResult contains the outcome of executing a single seed file.
type SeedResult struct {
	File         string
	Duration     time.Duration
	Statements   int
	RowsAffected int64
}

// Seeder runs the SQL files under common/ followed by those under
// environments/<env>/, each file in its own transaction. Within a directory
// files run by their numeric prefix ("010_users.sql"); unprefixed files run
// last in name order. Files may use text/template placeholders filled from
// the process environment plus ENVIRONMENT and TIMESTAMP.
type Seeder struct {
	fsys        fs.FS
	environment string
	logger      logrus.FieldLogger
	now         func() time.Time
}

// NewSeeder returns a seeder reading from fsys.
func NewSeeder(fsys fs.FS, environment string, logger logrus.FieldLogger) *Seeder {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Seeder{fsys: fsys, environment: environment, logger: logger, now: time.Now}
}

// Files lists the seed files in execution order.
func (s *Seeder) Files() ([]SeedFile, error) {
	files, err := s.filesIn(commonSeedDir, commonSeedDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list common seed files: %w", err)
	}
	if s.environment != "" {
		envFiles, err := s.filesIn(path.Join("environments", s.environment), s.environment)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s seed files: %w", s.environment, err)
		}
		files = append(files, envFiles...)
	}
	return files, nil
}

func (s *Seeder) filesIn(dir, environment string) ([]SeedFile, error) {
	var files []SeedFile
	err := fs.WalkDir(s.fsys, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".sql") {
			return nil
		}
		files = append(files, SeedFile{
			Path:        p,
			Name:        d.Name(),
			Order:       parseSeedOrder(d.Name()),
			Environment: environment,
		})
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Order != files[j].Order {
			return files[i].Order < files[j].Order
		}
		return files[i].Name < files[j].Name
	})
	return files, nil
}

func parseSeedOrder(name string) int {
	if m := seedOrderPattern.FindStringSubmatch(name); len(m) > 1 {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	return 999
}

// Run executes every seed file against db and stops at the first failure.
func (s *Seeder) Run(ctx context.Context, db bun.IDB) ([]SeedResult, error) {
	files, err := s.Files()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		s.logger.WithField("environment", s.environment).Info("no seed files found")
		return nil, nil
	}
	results := make([]SeedResult, 0, len(files))
	for _, file := range files {
		result, err := s.runFile(ctx, db, file)
		if err != nil {
			s.logger.WithError(err).WithField("file", file.Path).Error("seed file failed")
			return results, fmt.Errorf("seed file %s: %w", file.Path, err)
		}
		s.logger.WithFields(logrus.Fields{
			"file":          result.File,
			"duration":      result.Duration.String(),
			"rows_affected": result.RowsAffected,
		}).Info("seed file executed")
		results = append(results, result)
	}
	return results, nil
}

func (s *Seeder) runFile(ctx context.Context, db bun.IDB, file SeedFile) (SeedResult, error) {
	start := time.Now()
	result := SeedResult{File: file.Path}
	content, err := fs.ReadFile(s.fsys, file.Path)
	if err != nil {
		return result, fmt.Errorf("failed to read file: %w", err)
	}
	text, err := s.render(string(content))
	if err != nil {
		return result, err
	}
	statements := SplitSQLStatements(text)
	err = db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, stmt := range statements {
			res, err := tx.ExecContext(ctx, stmt)
			if err != nil {
				return fmt.Errorf("failed to execute %q: %w", stmt, err)
			}
			if n, err := res.RowsAffected(); err == nil {
				result.RowsAffected += n
			}
		}
		return nil
	})
	result.Statements = len(statements)
	result.Duration = time.Since(start)
	return result, err
}

func (s *Seeder) render(content string) (string, error) {
	if !strings.Contains(content, "{{") {
		return content, nil
	}
	tmpl, err := template.New("seed").Option("missingkey=zero").Parse(content)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}
	vars := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}
	vars["ENVIRONMENT"] = s.environment
	vars["TIMESTAMP"] = s.now().Format("2006-01-02 15:04:05")

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

// SplitSQLStatements splits a script on statement terminating semicolons.
// Blank lines and "--" comment lines are dropped.
func SplitSQLStatements(content string) []string {
	var statements []string
	var current strings.Builder
	flush := func() {
		stmt := strings.TrimSpace(current.String())
		stmt = strings.TrimSuffix(stmt, ";")
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteByte(' ')
		if strings.HasSuffix(line, ";") {
			flush()
		}
	}
	flush()
	return statements
}
