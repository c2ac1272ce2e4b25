package workspace

import (
	"path/filepath"
	"slices"
	"strings"
)

var languageExtensions = map[string][]string{
	"python": {".py"},
	"php":    {".php"},
	"go":     {".go"},
}

// LanguageFileExtensions returns the file extensions for a given language
func LanguageFileExtensions(language string) []string {
	return languageExtensions[strings.ToLower(language)]
}

// DetectLanguages scans the given roots and returns the supported languages
// that have at least one source file, sorted.
func DetectLanguages(exclude []string, roots ...string) ([]string, error) {
	byExt := make(map[string]string)
	var exts []string
	for lang, langExts := range languageExtensions {
		for _, ext := range langExts {
			byExt[ext] = lang
			exts = append(exts, ext)
		}
	}

	found := make(map[string]bool)
	for _, root := range roots {
		err := WalkSourceFiles(root, exts, exclude, func(path string) error {
			found[byExt[strings.ToLower(filepath.Ext(path))]] = true
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	languages := make([]string, 0, len(found))
	for lang := range found {
		languages = append(languages, lang)
	}
	slices.Sort(languages)
	return languages, nil
}
