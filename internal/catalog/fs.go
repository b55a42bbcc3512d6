// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/specialistvlad/routegrid/internal/ctxlog"
	"github.com/specialistvlad/routegrid/internal/definition"
	"github.com/specialistvlad/routegrid/internal/fsutil"
	"github.com/specialistvlad/routegrid/internal/profile"
	"gopkg.in/yaml.v3"
)

// IndexFile is the per-category index of the file system catalog.
const IndexFile = "index.yaml"

// DefinitionExtension is the extension of definitions listed when a
// category has no index.
const DefinitionExtension = ".hcl"

// Index is the content of a category index file.
type Index struct {
	// Profiles are listed for every scope.
	Profiles []string `yaml:"profiles"`
	// Scopes holds lines listed only when the current scope matches the key,
	// ignoring case.
	Scopes map[string][]string `yaml:"scopes"`
}

// Lines returns the lines listed for scope: Profiles followed by the lines
// of every matching scope section, in key order for determinism.
func (idx *Index) Lines(scope string) []string {
	lines := append([]string(nil), idx.Profiles...)
	keys := make([]string, 0, len(idx.Scopes))
	for k := range idx.Scopes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.EqualFold(k, scope) {
			lines = append(lines, idx.Scopes[k]...)
		}
	}
	return lines
}

// FS is a catalog backed by a directory tree:
//
//	<root>/service/index.yaml
//	<root>/service/<name>
//	<root>/api/index.yaml
//	<root>/api/<name>
type FS struct {
	root string
}

var _ Catalog = (*FS)(nil)

// NewFS creates a file system catalog rooted at root.
func NewFS(root string) *FS {
	return &FS{root: root}
}

func (c *FS) dir(category profile.Category) string {
	return filepath.Join(c.root, category.String())
}

// ListProfiles implements Catalog. Without an index file every definition
// file of the category is listed, unscoped, in lexical order.
func (c *FS) ListProfiles(ctx context.Context, category profile.Category, scope string) ([]string, error) {
	logger := ctxlog.FromContext(ctx)
	indexPath := filepath.Join(c.dir(category), IndexFile)

	exists, err := fsutil.FileExists(indexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", indexPath, err)
	}
	if !exists {
		logger.Debug("No catalog index, listing definition files.", "category", category, "dir", c.dir(category))
		names, err := fsutil.FilesWithExtension(c.dir(category), DefinitionExtension)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s profiles: %w", category, err)
		}
		return names, nil
	}

	data, err := os.ReadFile(indexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", indexPath, err)
	}
	var idx Index
	if err := yaml.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", indexPath, err)
	}
	lines := idx.Lines(scope)
	logger.Debug("Loaded catalog index.", "category", category, "path", indexPath, "lines", len(lines))
	return lines, nil
}

// LoadDefinition implements Catalog.
func (c *FS) LoadDefinition(ctx context.Context, category profile.Category, name string) (*definition.Definition, error) {
	if !fs.ValidPath(name) || strings.Contains(name, "/") {
		return nil, fmt.Errorf("%s profile %q: invalid name: %w", category, name, ErrProfileNotFound)
	}
	path := filepath.Join(c.dir(category), name)

	src, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s profile %q: %w", category, name, ErrProfileNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return definition.Parse(ctx, name, src, path)
}
