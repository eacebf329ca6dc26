package bundle

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/pybundle/internal/model"
)

// renderTestConfig returns a fully defaulted configuration for a small
// GUI project with an icon and one data directory.
func renderTestConfig(t *testing.T) *Config {
	t.Helper()

	cfg := &Config{
		Name:          "file-sorter",
		EntryScript:   "main.py",
		HiddenImports: []string{"PySide6.QtWidgets", "shiboken6"},
		Exclude:       []string{"Qt6WebEngine", "translations"},
		AddData:       []string{"assets:assets"},
		Icon:          "assets/app.ico",
	}
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())
	return cfg
}

// TestRender_Onefile verifies the single-executable descriptor: one EXE
// call carrying the binaries and datas, no COLLECT stage.
func TestRender_Onefile(t *testing.T) {
	content, err := Render(renderTestConfig(t), model.ModeOnefile)
	require.NoError(t, err)

	text := string(content)
	assert.Contains(t, text, `a = Analysis(`)
	assert.Contains(t, text, `["main.py"]`)
	assert.Contains(t, text, `name="file-sorter"`)
	assert.Contains(t, text, `icon="assets/app.ico"`)
	assert.Contains(t, text, `("assets", "assets"),`)
	assert.NotContains(t, text, "COLLECT(", "onefile must not have a COLLECT stage")

	// Windowed GUI default: no console window.
	assert.Contains(t, text, "console=False")
}

// TestRender_Onedir verifies the directory-bundle descriptor: EXE with
// exclude_binaries plus a COLLECT stage gathering the filtered manifests.
func TestRender_Onedir(t *testing.T) {
	content, err := Render(renderTestConfig(t), model.ModeOnedir)
	require.NoError(t, err)

	text := string(content)
	assert.Contains(t, text, "exclude_binaries=True")
	assert.Contains(t, text, "coll = COLLECT(")
}

// TestRender_EmbedsExclusionFilter verifies that the exclusion list and
// the filter applying it to both manifests are present in the descriptor.
// PyInstaller executes this code against its full TOC at build time.
func TestRender_EmbedsExclusionFilter(t *testing.T) {
	content, err := Render(renderTestConfig(t), model.ModeOnefile)
	require.NoError(t, err)

	text := string(content)
	assert.Contains(t, text, "EXCLUDE_PATTERNS = [")
	assert.Contains(t, text, `"Qt6WebEngine",`)
	assert.Contains(t, text, `"translations",`)
	assert.Contains(t, text, "a.datas = [entry for entry in a.datas if _keep(entry)]")
	assert.Contains(t, text, "a.binaries = [entry for entry in a.binaries if _keep(entry)]")

	// The filter must normalize separators exactly like MatchesExclusion.
	assert.Contains(t, text, `entry[0].replace("\\", "/")`)
}

// TestRender_Deterministic verifies byte-stable output: duplicated and
// unsorted configuration lists must not change the rendered descriptor.
func TestRender_Deterministic(t *testing.T) {
	cfg := renderTestConfig(t)

	first, err := Render(cfg, model.ModeOnefile)
	require.NoError(t, err)

	// Shuffle and duplicate the lists; the output must not move.
	cfg.Exclude = []string{"translations", "Qt6WebEngine", "translations"}
	cfg.HiddenImports = []string{"shiboken6", "PySide6.QtWidgets", "shiboken6"}

	second, err := Render(cfg, model.ModeOnefile)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

// TestRender_NoIcon verifies the icon falls back to Python None.
func TestRender_NoIcon(t *testing.T) {
	cfg := renderTestConfig(t)
	cfg.Icon = ""

	content, err := Render(cfg, model.ModeOnefile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "icon=None")
}

// TestRender_ConsoleApp verifies that windowed=false flips the console flag.
func TestRender_ConsoleApp(t *testing.T) {
	cfg := renderTestConfig(t)
	windowed := false
	cfg.Windowed = &windowed

	content, err := Render(cfg, model.ModeOnefile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "console=True")
}

// TestRender_InvalidMode verifies mode validation.
func TestRender_InvalidMode(t *testing.T) {
	_, err := Render(renderTestConfig(t), model.BundleMode("zip"))
	assert.Error(t, err)
}

// TestWriteDescriptors verifies that both descriptor files land in the
// project root under their mode-specific names.
func TestWriteDescriptors(t *testing.T) {
	root := t.TempDir()
	cfg := renderTestConfig(t)

	paths, err := WriteDescriptors(root, cfg)
	require.NoError(t, err)
	require.Len(t, paths, 2)

	assert.True(t, strings.HasSuffix(paths[0], "file-sorter.onefile.spec"))
	assert.True(t, strings.HasSuffix(paths[1], "file-sorter.onedir.spec"))

	for _, path := range paths {
		info, statErr := os.Stat(path)
		require.NoError(t, statErr)
		assert.Greater(t, info.Size(), int64(0))
	}
}
