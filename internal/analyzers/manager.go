// Package analyzers turns source trees into comparable units by dispatching
// each file to the extractor registered for its extension.
package analyzers

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/doITmagic/repo-similarity/internal/analyzers/golang"
	"github.com/doITmagic/repo-similarity/internal/analyzers/php"
	"github.com/doITmagic/repo-similarity/internal/analyzers/python"
	"github.com/doITmagic/repo-similarity/internal/codetypes"
	"github.com/doITmagic/repo-similarity/internal/config"
	"github.com/doITmagic/repo-similarity/internal/workspace"
)

// Language identifies a supported source language
type Language string

const (
	LanguagePython Language = "python"
	LanguagePHP    Language = "php"
	LanguageGo     Language = "go"
)

// FileFailure records a file that contributed no units
type FileFailure struct {
	Path string
	Err  error
}

// Result is the outcome of extracting one tree
type Result struct {
	Units    codetypes.Units
	Files    int // files handed to an extractor
	Failures []FileFailure
}

// Manager owns one extractor per enabled language
type Manager struct {
	byExt      map[string]codetypes.UnitExtractor
	extensions []string
	exclude    []string
}

// ResolveLanguages expands "auto" into the languages present under roots,
// ignoring paths matched by exclude. Explicit languages are returned sorted
// and deduplicated.
func ResolveLanguages(languages, exclude []string, roots ...string) ([]string, error) {
	if !slices.Contains(languages, config.LanguagesAuto) {
		out := slices.Clone(languages)
		slices.Sort(out)
		return slices.Compact(out), nil
	}
	detected, err := workspace.DetectLanguages(exclude, roots...)
	if err != nil {
		return nil, fmt.Errorf("detect languages: %w", err)
	}
	slog.Info("detected languages", "languages", detected)
	return detected, nil
}

// NewManager builds extractors for languages using the model settings in cfg
func NewManager(cfg *config.SimilarityConfig, languages []string) (*Manager, error) {
	m := &Manager{
		byExt:   make(map[string]codetypes.UnitExtractor),
		exclude: cfg.Exclude,
	}

	for _, lang := range languages {
		var ex codetypes.UnitExtractor
		switch Language(strings.ToLower(lang)) {
		case LanguagePython:
			ex = python.NewExtractor(cfg.Python)
		case LanguagePHP:
			ex = php.NewExtractor(cfg.PHP)
		case LanguageGo:
			ex = golang.NewExtractor(cfg.Go)
		default:
			return nil, fmt.Errorf("no extractor for language %q", lang)
		}
		m.Register(ex)
	}
	return m, nil
}

// Register adds an extractor, replacing any extractor for the same extensions
func (m *Manager) Register(ex codetypes.UnitExtractor) {
	for _, ext := range ex.Extensions() {
		ext = strings.ToLower(ext)
		if _, exists := m.byExt[ext]; !exists {
			m.extensions = append(m.extensions, ext)
		}
		m.byExt[ext] = ex
	}
}

// Languages returns the languages with a registered extractor
func (m *Manager) Languages() []string {
	var langs []string
	for _, ex := range m.byExt {
		if !slices.Contains(langs, ex.Language()) {
			langs = append(langs, ex.Language())
		}
	}
	slices.Sort(langs)
	return langs
}

// Extract walks root and extracts units from every supported file. Files
// that cannot be read or parsed are logged, recorded in Result.Failures and
// skipped; only an unusable root or a cancelled context fails the call.
func (m *Manager) Extract(ctx context.Context, root string) (*Result, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("error accessing path %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	res := &Result{}
	if len(m.extensions) == 0 {
		return res, nil
	}

	err = workspace.WalkSourceFiles(root, m.extensions, m.exclude, func(path string) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		ex := m.byExt[strings.ToLower(filepath.Ext(path))]
		res.Files++

		content, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("failed to read file", "path", path, "error", err)
			res.Failures = append(res.Failures, FileFailure{Path: path, Err: err})
			return nil
		}

		units, err := ex.ExtractFile(path, content)
		if err != nil {
			slog.Warn("failed to analyze file", "path", path, "language", ex.Language(), "error", err)
			res.Failures = append(res.Failures, FileFailure{Path: path, Err: err})
			return nil
		}
		res.Units.Append(units)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking directory %s: %w", root, err)
	}

	slog.Debug("extraction complete",
		"root", root,
		"files", res.Files,
		"failed", len(res.Failures),
		"functions", len(res.Units.Functions),
		"models", len(res.Units.Models))
	return res, nil
}
