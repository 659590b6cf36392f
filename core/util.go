package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// Getwd returns the module root: the closest directory above the working directory holding a go.mod.
// go test runs in the package directory, which would hide `config/.env.*` otherwise.
// Outside of a module (an installed binary), the working directory itself is returned.
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	return moduleRoot(wd)
}

func moduleRoot(dir string) string {
	for curr := dir; ; {
		if fi, err := os.Stat(filepath.Join(curr, "go.mod")); err == nil && !fi.IsDir() {
			return curr
		}
		parent := filepath.Dir(curr)
		if parent == curr {
			return dir
		}
		curr = parent
	}
}
