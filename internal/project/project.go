package project

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
)

// A buildable function: one binary crate in the workspace.
type Function struct {
	Name string // Binary name, as produced under target/<triple>/<profile>/.
	Dir  string // Crate directory, absolute.
}

// A loaded cargo project.
type Workspace struct {
	Root      string     // Project root, absolute.
	Functions []Function // Binary crates, sorted by name.
}

// Mirrors the subset of Cargo.toml the orchestrator reads.
type cargoManifest struct {
	Package   *cargoPackage   `toml:"package"`
	Workspace *cargoWorkspace `toml:"workspace"`
	Bin       []cargoBin      `toml:"bin"`
}

type cargoPackage struct {
	Name string `toml:"name"`
}

type cargoWorkspace struct {
	Members []string `toml:"members"`
	Exclude []string `toml:"exclude"`
}

type cargoBin struct {
	Name string `toml:"name"`
}

// Loads the cargo project rooted at the given directory.
//
// A workspace manifest is expanded into its member crates (glob patterns in
// the members list are supported); a single-package manifest yields one
// entry. Only crates that produce a binary become functions: a crate with
// src/main.rs or explicit [[bin]] sections. Library-only crates are ignored.
func Load(root string) (*Workspace, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifest, err)
	}

	manifest, err := readManifest(filepath.Join(root, "Cargo.toml"))
	if err != nil {
		return nil, err
	}

	ws := &Workspace{Root: root}

	if manifest.Workspace != nil {
		dirs, err := expandMembers(root, manifest.Workspace)
		if err != nil {
			return nil, err
		}
		for _, dir := range dirs {
			fns, err := crateFunctions(dir)
			if err != nil {
				return nil, err
			}
			ws.Functions = append(ws.Functions, fns...)
		}
	} else if manifest.Package != nil {
		fns, err := crateFunctions(root)
		if err != nil {
			return nil, err
		}
		ws.Functions = fns
	} else {
		return nil, fmt.Errorf("%w: %s has neither [package] nor [workspace]", ErrManifest, filepath.Join(root, "Cargo.toml"))
	}

	sort.Slice(ws.Functions, func(i, j int) bool {
		return ws.Functions[i].Name < ws.Functions[j].Name
	})

	if len(ws.Functions) == 0 {
		return nil, fmt.Errorf("%w: no binary crates in %s", ErrNoFunctions, root)
	}

	return ws, nil
}

// Returns the subset of functions matching the given names, in manifest
// order. An empty name list selects every function. Unknown names are an
// error so typos never silently build nothing.
func (ws *Workspace) Select(names []string) ([]Function, error) {
	if len(names) == 0 {
		return ws.Functions, nil
	}

	byName := make(map[string]Function, len(ws.Functions))
	for _, fn := range ws.Functions {
		byName[fn.Name] = fn
	}

	selected := make([]Function, 0, len(names))
	for _, name := range names {
		fn, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFunction, name)
		}
		selected = append(selected, fn)
	}
	return selected, nil
}

// Parses a Cargo.toml file.
func readManifest(path string) (*cargoManifest, error) {
	var m cargoManifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrManifest, path, err)
	}
	return &m, nil
}

// Expands workspace member patterns to crate directories.
//
// Members may contain glob patterns (e.g., "aws-lambda-*"). Matches without
// a Cargo.toml and excluded members are skipped. The result is sorted for
// deterministic build order.
func expandMembers(root string, ws *cargoWorkspace) ([]string, error) {
	excluded := make(map[string]bool, len(ws.Exclude))
	for _, e := range ws.Exclude {
		excluded[filepath.Join(root, e)] = true
	}

	var dirs []string
	for _, member := range ws.Members {
		matches, err := filepath.Glob(filepath.Join(root, member))
		if err != nil {
			return nil, fmt.Errorf("%w: member pattern %q: %v", ErrManifest, member, err)
		}
		for _, dir := range matches {
			if excluded[dir] {
				continue
			}
			if _, err := os.Stat(filepath.Join(dir, "Cargo.toml")); err != nil {
				continue
			}
			dirs = append(dirs, dir)
		}
	}

	sort.Strings(dirs)
	return dirs, nil
}

// Returns the functions a single crate produces.
//
// Explicit [[bin]] sections win; otherwise a crate with src/main.rs produces
// one binary named after the package.
func crateFunctions(dir string) ([]Function, error) {
	manifest, err := readManifest(filepath.Join(dir, "Cargo.toml"))
	if err != nil {
		return nil, err
	}
	if manifest.Package == nil {
		return nil, nil
	}

	if len(manifest.Bin) > 0 {
		fns := make([]Function, 0, len(manifest.Bin))
		for _, bin := range manifest.Bin {
			if bin.Name == "" {
				continue
			}
			fns = append(fns, Function{Name: bin.Name, Dir: dir})
		}
		return fns, nil
	}

	if _, err := os.Stat(filepath.Join(dir, "src", "main.rs")); err != nil {
		return nil, nil // Library crate.
	}

	return []Function{{Name: manifest.Package.Name, Dir: dir}}, nil
}
