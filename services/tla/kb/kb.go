// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package kb serves the TLA+ knowledge base: a directory of markdown
// articles with optional YAML front matter.
//
// Thread Safety:
//
//	A Catalog is safe for concurrent use. Reload and Watch swap the article
//	set atomically.
package kb

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/photoszzt/vscode-tlaplus/services/tla/fault"
)

const (
	// URIPrefix prefixes every article URI.
	URIPrefix = "tlaplus://knowledge/"

	// MimeType is the content type of every article.
	MimeType = "text/markdown"

	frontMatterDelim = "---"
)

// Article describes one knowledge base entry.
type Article struct {
	Name        string `json:"name"`
	URI         string `json:"uri"`
	Title       string `json:"title"`
	Description string `json:"description"`
	MimeType    string `json:"mimeType"`
}

// FrontMatter is the metadata block at the top of an article.
type FrontMatter struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

// =============================================================================
// FRONT MATTER
// =============================================================================

// frontMatterBounds returns the end of the opening delimiter and the start
// of the closing one, or ok false when content has no front matter.
func frontMatterBounds(content string) (start, end int, ok bool) {
	if !strings.HasPrefix(content, frontMatterDelim) {
		return 0, 0, false
	}
	i := strings.Index(content[len(frontMatterDelim):], frontMatterDelim)
	if i < 0 {
		return 0, 0, false
	}
	return len(frontMatterDelim), len(frontMatterDelim) + i, true
}

// ParseFrontMatter decodes the front matter of content. Content without
// front matter, or with a block that is not valid YAML, yields the zero
// value.
func ParseFrontMatter(content string) FrontMatter {
	var fm FrontMatter
	start, end, ok := frontMatterBounds(content)
	if !ok {
		return fm
	}
	if err := yaml.Unmarshal([]byte(content[start:end]), &fm); err != nil {
		return FrontMatter{}
	}
	fm.Title = strings.TrimSpace(fm.Title)
	fm.Description = strings.TrimSpace(fm.Description)
	return fm
}

// StripFrontMatter returns content without its front matter block and the
// line breaks that follow it.
func StripFrontMatter(content string) string {
	_, end, ok := frontMatterBounds(content)
	if !ok {
		return content
	}
	return strings.TrimLeft(content[end+len(frontMatterDelim):], "\r\n")
}

// =============================================================================
// CATALOG
// =============================================================================

// Catalog is the set of articles in one directory.
type Catalog struct {
	dir    string
	logger *slog.Logger

	mu       sync.RWMutex
	articles map[string]Article
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Catalog) {
		if l != nil {
			c.logger = l
		}
	}
}

// Open loads the articles in dir.
//
// Errors:
//
//	fault.KindInvalidConfigPath - dir is missing or not a directory.
func Open(dir string, opts ...Option) (*Catalog, error) {
	c := &Catalog{dir: dir, logger: slog.Default(), articles: map[string]Article{}}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Dir returns the catalog directory.
func (c *Catalog) Dir() string {
	return c.dir
}

// Reload rescans the directory.
func (c *Catalog) Reload() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fault.Newf(fault.KindInvalidConfigPath,
				"Knowledge base directory not found: %s", c.dir).WithContext("path", c.dir)
		}
		return fault.Wrap(fault.KindInvalidConfigPath, err,
			fmt.Sprintf("Failed to read knowledge base directory %s", c.dir))
	}

	articles := make(map[string]Article, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".md") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(c.dir, name))
		if err != nil {
			c.logger.Warn("Skipping unreadable article",
				slog.String("file", name),
				slog.String("error", err.Error()),
			)
			continue
		}
		articles[name] = describe(name, string(data))
	}

	c.mu.Lock()
	c.articles = articles
	c.mu.Unlock()

	c.logger.Info("Knowledge base loaded",
		slog.String("dir", c.dir),
		slog.Int("articles", len(articles)),
	)
	return nil
}

func describe(name, content string) Article {
	fm := ParseFrontMatter(content)
	a := Article{
		Name:        name,
		URI:         URIPrefix + name,
		Title:       fm.Title,
		Description: fm.Description,
		MimeType:    MimeType,
	}
	if a.Title == "" {
		a.Title = name
	}
	if a.Description == "" {
		a.Description = "TLA+ knowledge base article: " + name
	}
	return a
}

// List returns all articles sorted by name.
func (c *Catalog) List() []Article {
	c.mu.RLock()
	out := make([]Article, 0, len(c.articles))
	for _, a := range c.articles {
		out = append(out, a)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Read returns the article named name (or addressed by its URI) and its
// content without front matter. The file is read on every call.
//
// Errors:
//
//	fault.KindFileNotFound - no such article.
func (c *Catalog) Read(name string) (Article, string, error) {
	name = strings.TrimPrefix(name, URIPrefix)

	c.mu.RLock()
	_, ok := c.articles[name]
	c.mu.RUnlock()
	if !ok {
		return Article{}, "", fault.Newf(fault.KindFileNotFound,
			"Knowledge base article not found: %s", name).WithContext("article", name)
	}

	data, err := os.ReadFile(filepath.Join(c.dir, name))
	if err != nil {
		return Article{}, "", fault.Wrap(fault.Classify(err), err,
			fmt.Sprintf("Failed to read knowledge base article %s", name))
	}
	content := string(data)
	return describe(name, content), StripFrontMatter(content), nil
}
