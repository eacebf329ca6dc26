// Package venv provides provisioning and inspection of the disposable
// Python environment the packaging workflow runs in.
//
// This package handles:
//   - Environment lifecycle: destructive removal, creation via the base
//     interpreter found on PATH, dependency installation from the
//     requirements manifest
//   - Environment layout knowledge (bin/ vs Scripts/ interpreter paths)
//   - Import checks ("is the GUI framework importable in there?")
//   - Dependency snapshots: pip freeze parsed into pybundle.lock.yml
//
// All Python and pip interaction shells out via os/exec — pip and venv
// have no Go-native equivalent, and driving the real tools is the only
// way to get a real environment.
package venv
