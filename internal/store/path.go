package store

import (
	"path/filepath"
	"regexp"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_]`)

// SanitizeName maps a test name to a file base name.
// "TestQuery/empty result" becomes "TestQuery_empty_result".
func SanitizeName(name string) string {
	return unsafeChars.ReplaceAllString(name, "_")
}

// SnapshotPath returns the snapshot file of a test:
// root/<pkgDir>/<fileStem>/<sanitized testName>.db, where pkgDir is the
// test's package directory relative to the module root and fileStem is
// its test file name without extension.
func SnapshotPath(root, pkgDir, fileStem, testName string) string {
	return filepath.Join(root, pkgDir, fileStem, SanitizeName(testName)+".db")
}
