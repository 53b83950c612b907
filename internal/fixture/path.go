package fixture

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// testIdentity is where a test lives: its package directory relative to
// the module root and the stem of its _test.go file.
type testIdentity struct {
	pkgDir   string
	fileStem string
}

// callerIdentity finds the nearest _test.go file on the call stack.
// Falls back to the immediate caller of New when none is found.
func callerIdentity(skip int) testIdentity {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip+1, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var fallback string
	for {
		frame, more := frames.Next()
		if fallback == "" {
			fallback = frame.File
		}
		if strings.HasSuffix(frame.File, "_test.go") {
			return identityOf(frame.File)
		}
		if !more {
			break
		}
	}
	return identityOf(fallback)
}

func identityOf(file string) testIdentity {
	dir := filepath.Dir(file)
	stem := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))

	rel := filepath.Base(dir)
	if root, ok := moduleRoot(dir); ok {
		if r, err := filepath.Rel(root, dir); err == nil {
			rel = r
		}
	}
	return testIdentity{pkgDir: rel, fileStem: stem}
}

// moduleRoot walks up from dir to the nearest directory holding go.mod.
func moduleRoot(dir string) (string, bool) {
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
