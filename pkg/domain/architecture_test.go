package domain

import (
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestDomainImportsStdlibOnly enforces the architectural rule that the domain
// layer depends on nothing but the standard library. Higher layers depend on
// domain, never the other way around.
func TestDomainImportsStdlibOnly(t *testing.T) {
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports}
	pkgs, err := packages.Load(cfg, "neocore/pkg/domain")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}

	var violations []string
	for _, pkg := range pkgs {
		for importPath := range pkg.Imports {
			if strings.Contains(importPath, ".") {
				violations = append(violations, pkg.PkgPath+": "+importPath)
			}
		}
	}
	if len(violations) > 0 {
		sort.Strings(violations)
		for _, v := range violations {
			t.Errorf("forbidden non-stdlib import in domain layer: %s", v)
		}
		t.Fatalf("found %d forbidden imports", len(violations))
	}
}
