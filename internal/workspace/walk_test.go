package workspace

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func collect(t *testing.T, root string, exts, exclude []string) []string {
	t.Helper()
	var got []string
	err := WalkSourceFiles(root, exts, exclude, func(path string) error {
		rel, err := filepath.Rel(root, path)
		require.NoError(t, err)
		got = append(got, filepath.ToSlash(rel))
		return nil
	})
	require.NoError(t, err)
	sort.Strings(got)
	return got
}

func TestWalkSourceFilesFiltersAndSkips(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app/models.py", "")
	writeFile(t, root, "app/views.PY", "")
	writeFile(t, root, "app/README.md", "")
	writeFile(t, root, ".venv/lib/site.py", "")
	writeFile(t, root, "venv/lib/site.py", "")
	writeFile(t, root, ".git/hooks/hook.py", "")
	writeFile(t, root, "main.go", "")

	assert.Equal(t, []string{"app/models.py", "app/views.PY"}, collect(t, root, []string{".py"}, nil))
	assert.Equal(t, []string{"app/README.md", "app/models.py", "app/views.PY", "main.go"}, collect(t, root, nil, nil))
}

func TestWalkSourceFilesKeepsBuildLikePackages(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "build/steps.py", "")
	writeFile(t, root, "dist/release.py", "")
	writeFile(t, root, "target/rules.py", "")
	writeFile(t, root, ".github/scripts/ci.py", "")
	writeFile(t, root, "node_modules/pkg/index.py", "")

	assert.Equal(t, []string{
		".github/scripts/ci.py",
		"build/steps.py",
		"dist/release.py",
		"node_modules/pkg/index.py",
		"target/rules.py",
	}, collect(t, root, []string{".py"}, nil))

	// dependency trees are left to exclude globs
	assert.Equal(t, []string{
		".github/scripts/ci.py",
		"build/steps.py",
		"dist/release.py",
		"target/rules.py",
	}, collect(t, root, []string{".py"}, []string{"**/node_modules"}))
}

func TestWalkSourceFilesExclude(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app/models.py", "")
	writeFile(t, root, "app/migrations/0001_initial.py", "")
	writeFile(t, root, "tests/test_models.py", "")
	writeFile(t, root, "app/test_views.py", "")

	got := collect(t, root, []string{".py"}, []string{"**/migrations", "tests/**", "**/test_*.py"})
	assert.Equal(t, []string{"app/models.py"}, got)
}

func TestWalkSourceFilesErrors(t *testing.T) {
	err := WalkSourceFiles(filepath.Join(t.TempDir(), "missing"), nil, nil, func(string) error { return nil })
	assert.Error(t, err)

	err = WalkSourceFiles(t.TempDir(), nil, []string{"[unclosed"}, func(string) error { return nil })
	assert.ErrorContains(t, err, "invalid exclude pattern")
}

func TestSkipDir(t *testing.T) {
	for _, name := range []string{".git", ".hg", ".svn", ".venv", "venv"} {
		assert.True(t, SkipDir(name), name)
	}
	for _, name := range []string{"app", "models", ".", "build", "dist", "target", "vendor", ".github"} {
		assert.False(t, SkipDir(name), name)
	}
}

func TestDetectLanguages(t *testing.T) {
	a := t.TempDir()
	b := t.TempDir()
	writeFile(t, a, "app/models.py", "")
	writeFile(t, b, "src/User.php", "")
	writeFile(t, b, "vendor/lib/lib.go", "")

	langs, err := DetectLanguages([]string{"**/vendor"}, a, b)
	require.NoError(t, err)
	assert.Equal(t, []string{"php", "python"}, langs)

	langs, err = DetectLanguages(nil, a, b)
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "php", "python"}, langs)

	assert.Equal(t, []string{".go"}, LanguageFileExtensions("Go"))
	assert.Empty(t, LanguageFileExtensions("cobol"))
}
