package core_test

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// coreImports returns the import paths of every non-test file in pkg/core,
// keyed by file name.
func coreImports(t *testing.T) map[string][]string {
	t.Helper()
	fset := token.NewFileSet()

	entries, err := os.ReadDir(".")
	if err != nil {
		t.Fatalf("Failed to read core directory: %v", err)
	}

	out := make(map[string][]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".go") || strings.HasSuffix(entry.Name(), "_test.go") {
			continue
		}
		f, err := parser.ParseFile(fset, filepath.Join(".", entry.Name()), nil, parser.ImportsOnly)
		if err != nil {
			t.Errorf("Failed to parse %s: %v", entry.Name(), err)
			continue
		}
		for _, imp := range f.Imports {
			out[entry.Name()] = append(out[entry.Name()], strings.Trim(imp.Path.Value, `"`))
		}
	}
	return out
}

// TestCoreImportsOnly verifies pkg/core only imports allowed packages.
// The Golden Rule: pkg/core imports ONLY stdlib and golang.org/x/text.
func TestCoreImportsOnly(t *testing.T) {
	allowedExternal := map[string]bool{
		"golang.org/x/text/cases":    true,
		"golang.org/x/text/language": true,
	}

	for file, imports := range coreImports(t) {
		for _, importPath := range imports {
			// Allow stdlib (no dots in path)
			if !strings.Contains(importPath, ".") {
				continue
			}
			if !allowedExternal[importPath] {
				t.Errorf("%s imports forbidden package: %s", file, importPath)
			}
		}
	}
}

// TestCoreDoesNotImportModule verifies pkg/core imports nothing from this
// module: dialects and the compiler depend on core, never the reverse.
func TestCoreDoesNotImportModule(t *testing.T) {
	for file, imports := range coreImports(t) {
		for _, importPath := range imports {
			if strings.HasPrefix(importPath, "github.com/leapstack-labs/leapmetrics/") {
				t.Errorf("%s imports %s (core must not depend on other module packages)", file, importPath)
			}
		}
	}
}
