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

// Package i18n loads the embedded message catalogs and picks the one
// matching a request's Accept-Language header.
package i18n

import (
	"context"
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var locales embed.FS

// Fallback is used when no catalog matches the request.
var Fallback = language.English

// Bundle holds one flattened catalog per language.
type Bundle struct {
	tags     []language.Tag
	catalogs map[language.Tag]map[string]string
	matcher  language.Matcher
}

// Load parses every embedded catalog. The catalog of Fallback must exist.
func Load() (*Bundle, error) {
	entries, err := locales.ReadDir("locales")
	if err != nil {
		return nil, err
	}
	b := &Bundle{catalogs: make(map[language.Tag]map[string]string)}
	for _, entry := range entries {
		name := strings.TrimSuffix(entry.Name(), path.Ext(entry.Name()))
		tag, err := language.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("catalog %s: %w", entry.Name(), err)
		}
		raw, err := locales.ReadFile(path.Join("locales", entry.Name()))
		if err != nil {
			return nil, err
		}
		var tree map[string]interface{}
		if err := yaml.Unmarshal(raw, &tree); err != nil {
			return nil, fmt.Errorf("catalog %s: %w", entry.Name(), err)
		}
		flat := make(map[string]string)
		flatten("", tree, flat)
		b.catalogs[tag] = flat
	}
	if _, ok := b.catalogs[Fallback]; !ok {
		return nil, fmt.Errorf("missing %s catalog", Fallback)
	}
	// The matcher falls back to its first tag.
	b.tags = append(b.tags, Fallback)
	others := make([]language.Tag, 0, len(b.catalogs)-1)
	for tag := range b.catalogs {
		if tag != Fallback {
			others = append(others, tag)
		}
	}
	sort.Slice(others, func(i, j int) bool { return others[i].String() < others[j].String() })
	b.tags = append(b.tags, others...)
	b.matcher = language.NewMatcher(b.tags)
	return b, nil
}

// MustLoad is Load that panics on error.
func MustLoad() *Bundle {
	b, err := Load()
	if err != nil {
		panic(err)
	}
	return b
}

func flatten(prefix string, node map[string]interface{}, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]interface{}:
			flatten(key, val, out)
		case string:
			out[key] = val
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

// Languages lists the supported languages, fallback first.
func (b *Bundle) Languages() []language.Tag {
	return append([]language.Tag(nil), b.tags...)
}

// Match picks the best catalog for an Accept-Language header value.
func (b *Bundle) Match(acceptLanguage string) language.Tag {
	prefs, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(prefs) == 0 {
		return Fallback
	}
	_, index, confidence := b.matcher.Match(prefs...)
	if confidence == language.No {
		return Fallback
	}
	return b.tags[index]
}

// T formats the message under key for tag. Missing keys fall back to the
// default catalog and then to the key itself.
func (b *Bundle) T(tag language.Tag, key string, args ...interface{}) string {
	msg, ok := b.catalogs[tag][key]
	if !ok {
		msg, ok = b.catalogs[Fallback][key]
	}
	if !ok {
		return key
	}
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}

// Entity returns the localized display name of an entity kind such as
// "vehicle".
func (b *Bundle) Entity(tag language.Tag, kind string) string {
	return b.T(tag, "entity."+kind)
}

type localeKey struct{}

// WithLocale stores tag in ctx.
func WithLocale(ctx context.Context, tag language.Tag) context.Context {
	return context.WithValue(ctx, localeKey{}, tag)
}

// Locale returns the tag stored in ctx, or Fallback.
func Locale(ctx context.Context) language.Tag {
	if tag, ok := ctx.Value(localeKey{}).(language.Tag); ok {
		return tag
	}
	return Fallback
}
