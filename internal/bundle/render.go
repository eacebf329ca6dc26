// render.go generates the two PyInstaller spec files (the bundle
// descriptors) from the project configuration.
//
// A spec file is Python source executed by PyInstaller, so generation
// uses text/template rather than a structured encoder. The exclusion
// filter is embedded into the descriptor as a small Python function with
// the same semantics as Partition/MatchesExclusion in manifest.go:
// PyInstaller applies it to its full data and binary manifests at build
// time, after analysis and before collection.
//
// Generation is deterministic: exclusion patterns and hidden imports are
// de-duplicated and sorted, so regenerating an unchanged configuration
// produces byte-identical descriptors.
package bundle

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"text/template"

	"github.com/mmr-tortoise/pybundle/internal/model"
)

// descriptorTemplate is the shared template for both layouts. The onedir
// variant splits collection into EXE (bootloader only) + COLLECT; the
// onefile variant folds everything into a single EXE.
var descriptorTemplate = template.Must(template.New("descriptor").Funcs(template.FuncMap{
	"py": pyString,
}).Parse(`# -*- mode: python ; coding: utf-8 -*-
# Generated by pybundle from pybundle.jsonc — do not edit by hand.
# Regenerate with: pybundle descriptor

block_cipher = None

EXCLUDE_PATTERNS = [
{{- range .Exclude}}
    {{py .}},
{{- end}}
]


def _keep(entry):
    dest = entry[0].replace("\\", "/")
    return not any(pattern in dest for pattern in EXCLUDE_PATTERNS)


a = Analysis(
    [{{py .Entry}}],
    pathex=[],
    binaries=[],
    datas=[
{{- range .Datas}}
        ({{py .Source}}, {{py .Dest}}),
{{- end}}
    ],
    hiddenimports=[
{{- range .HiddenImports}}
        {{py .}},
{{- end}}
    ],
    hookspath=[],
    runtime_hooks=[],
    excludes=[],
    noarchive=False,
)

# Filter the two manifests (data files and binaries) against the
# exclusion list before anything is collected.
a.datas = [entry for entry in a.datas if _keep(entry)]
a.binaries = [entry for entry in a.binaries if _keep(entry)]

pyz = PYZ(a.pure, a.zipped_data, cipher=block_cipher)

{{if .Onedir -}}
exe = EXE(
    pyz,
    a.scripts,
    [],
    exclude_binaries=True,
    name={{py .App}},
    debug=False,
    bootloader_ignore_signals=False,
    strip=False,
    upx=False,
    console={{.Console}},
    icon={{.Icon}},
)

coll = COLLECT(
    exe,
    a.binaries,
    a.zipfiles,
    a.datas,
    strip=False,
    upx=False,
    name={{py .App}},
)
{{- else -}}
exe = EXE(
    pyz,
    a.scripts,
    a.binaries,
    a.zipfiles,
    a.datas,
    [],
    name={{py .App}},
    debug=False,
    bootloader_ignore_signals=False,
    strip=False,
    upx=False,
    upx_exclude=[],
    runtime_tmpdir=None,
    console={{.Console}},
    icon={{.Icon}},
)
{{- end}}
`))

// dataTuple is one (source, dest) entry of the Analysis datas list.
type dataTuple struct {
	Source string
	Dest   string
}

// descriptorData is the template input assembled from a Config.
type descriptorData struct {
	App           string
	Entry         string
	Exclude       []string
	HiddenImports []string
	Datas         []dataTuple
	Console       string
	Icon          string
	Onedir        bool
}

// pyString renders a Go string as a Python string literal.
// strconv.Quote's escaping rules (backslash, quote, control characters)
// are a compatible subset of Python's, which is all a path or module
// name needs.
func pyString(s string) string {
	return strconv.Quote(s)
}

// pyBool renders a Go bool as a Python boolean literal.
func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// Render produces the descriptor file contents for the given mode.
// It is a pure function of the configuration; no file system access.
func Render(cfg *Config, mode model.BundleMode) ([]byte, error) {
	if !mode.IsValid() {
		return nil, fmt.Errorf("invalid bundle mode: %q", mode)
	}

	data := descriptorData{
		App:           cfg.Name,
		Entry:         NormalizePath(cfg.EntryScript),
		Exclude:       NormalizePatterns(cfg.Exclude),
		HiddenImports: NormalizePatterns(cfg.HiddenImports),
		// Windowed GUI apps must not spawn a console window on Windows.
		Console: pyBool(!cfg.IsWindowed()),
		Icon:    "None",
		Onedir:  mode == model.ModeOnedir,
	}

	if cfg.Icon != "" {
		data.Icon = pyString(NormalizePath(cfg.Icon))
	}

	for _, spec := range cfg.AddData {
		source, dest, err := SplitDataSpec(spec)
		if err != nil {
			return nil, err
		}
		data.Datas = append(data.Datas, dataTuple{
			Source: NormalizePath(source),
			Dest:   NormalizePath(dest),
		})
	}

	var buf bytes.Buffer
	if err := descriptorTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render %s descriptor: %w", mode, err)
	}
	return buf.Bytes(), nil
}

// WriteDescriptor renders and writes the descriptor for one mode into
// the project root, returning the written path.
func WriteDescriptor(projectRoot string, cfg *Config, mode model.BundleMode) (string, error) {
	content, err := Render(cfg, mode)
	if err != nil {
		return "", err
	}

	path := cfg.DescriptorPath(projectRoot, mode)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write descriptor %s: %w", path, err)
	}
	return path, nil
}

// WriteDescriptors writes both descriptors (onefile and onedir) and
// returns their paths in that order.
func WriteDescriptors(projectRoot string, cfg *Config) ([]string, error) {
	paths := make([]string, 0, 2)
	for _, mode := range []model.BundleMode{model.ModeOnefile, model.ModeOnedir} {
		path, err := WriteDescriptor(projectRoot, cfg, mode)
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
