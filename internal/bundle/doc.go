// Package bundle handles the pybundle.jsonc project configuration and the
// generation of PyInstaller bundle descriptors.
//
// This package handles:
//   - Locating and parsing pybundle.jsonc (with JSONC comment support)
//   - Applying PySide6-oriented defaults for hidden imports and the
//     manifest exclusion list
//   - Pure manifest filtering: partitioning entries against the exclusion
//     list (substring match on normalized path separators)
//   - Rendering the two PyInstaller spec files (onefile and onedir) that
//     the packaging tool consumes as configuration
package bundle
