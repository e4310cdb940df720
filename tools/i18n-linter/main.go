// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

// i18n-linter checks that every message id passed to i18n.T exists in every
// locale under internal/i18n/locales and reports ids no code uses.
package main

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const localesDir = "internal/i18n/locales"

// Location is where a message id is used.
type Location struct {
	File string
	Line int
}

func main() {
	used, err := findUsedKeys(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "scan sources: %v\n", err)
		os.Exit(2)
	}
	locales, err := loadLocales(localesDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load locales: %v\n", err)
		os.Exit(2)
	}
	missing, orphaned := compare(used, locales)
	for _, m := range missing {
		fmt.Println(m)
	}
	for _, o := range orphaned {
		fmt.Printf("orphaned: %s\n", o)
	}
	fmt.Printf("%d ids used, %d locales checked\n", len(used), len(locales))
	if len(missing) > 0 {
		os.Exit(1)
	}
}

// findUsedKeys collects the literal first arguments of i18n.T calls in all
// non-test Go files below root, skipping tools/ and directories starting with
// "_" or ".".
func findUsedKeys(root string) (map[string][]Location, error) {
	used := make(map[string][]Location)
	fset := token.NewFileSet()
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (name == "tools" || strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		file, err := parser.ParseFile(fset, path, nil, 0)
		if err != nil {
			return err
		}
		ast.Inspect(file, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok || len(call.Args) == 0 {
				return true
			}
			sel, ok := call.Fun.(*ast.SelectorExpr)
			if !ok || sel.Sel.Name != "T" {
				return true
			}
			if pkg, ok := sel.X.(*ast.Ident); !ok || pkg.Name != "i18n" {
				return true
			}
			lit, ok := call.Args[0].(*ast.BasicLit)
			if !ok || lit.Kind != token.STRING {
				return true
			}
			id, err := strconv.Unquote(lit.Value)
			if err != nil {
				return true
			}
			pos := fset.Position(lit.Pos())
			used[id] = append(used[id], Location{File: pos.Filename, Line: pos.Line})
			return true
		})
		return nil
	})
	return used, err
}

// loadLocales returns the flattened message ids of each *.yaml file in dir,
// keyed by file name.
func loadLocales(dir string) (map[string]map[string]struct{}, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no locale files in %s", dir)
	}
	out := make(map[string]map[string]struct{}, len(files))
	for _, f := range files {
		keys, err := loadKeysFromLocale(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		out[filepath.Base(f)] = keys
	}
	return out, nil
}

func loadKeysFromLocale(path string) (map[string]struct{}, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data map[string]any
	if err := yaml.Unmarshal(content, &data); err != nil {
		return nil, err
	}
	keys := make(map[string]struct{})
	flatten("", data, keys)
	return keys, nil
}

// flatten turns nested maps into dot-separated message ids.
func flatten(prefix string, node any, keys map[string]struct{}) {
	m, ok := node.(map[string]any)
	if !ok {
		if prefix != "" {
			keys[prefix] = struct{}{}
		}
		return
	}
	for k, v := range m {
		next := k
		if prefix != "" {
			next = prefix + "." + k
		}
		flatten(next, v, keys)
	}
}

// compare reports used ids absent from a locale and locale ids nothing uses.
func compare(used map[string][]Location, locales map[string]map[string]struct{}) (missing, orphaned []string) {
	names := make([]string, 0, len(locales))
	for name := range locales {
		names = append(names, name)
	}
	sort.Strings(names)

	ids := make([]string, 0, len(used))
	for id := range used {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, name := range names {
		for _, id := range ids {
			if _, ok := locales[name][id]; !ok {
				loc := used[id][0]
				missing = append(missing, fmt.Sprintf("missing: %s in %s (used at %s:%d)", id, name, loc.File, loc.Line))
			}
		}
	}

	seen := map[string]struct{}{}
	for _, name := range names {
		for id := range locales[name] {
			if _, ok := used[id]; ok {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			orphaned = append(orphaned, id)
		}
	}
	sort.Strings(orphaned)
	return missing, orphaned
}
