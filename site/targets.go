package site

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"

	"github.com/justic-ssg/justic/loader"
)

// EnumerateTargets lists the child nodes of current. Declared targets and
// target win over directory listing; an empty result means a leaf. Listed
// entries come back in name order, skipping reserved names, unsupported
// suffixes and any path in exclude.
func EnumerateTargets(fs afero.Fs, current string, isFile bool, meta Meta, suffixes []string, exclude ...string) ([]string, error) {
	declared := append([]string(nil), meta.Targets...)
	if meta.Target != "" {
		declared = append(declared, meta.Target)
	}
	if len(declared) > 0 {
		targets := make([]string, len(declared))
		for i, target := range declared {
			targets[i] = ResolveRelative(current, isFile, target)
		}
		return targets, nil
	}
	if isFile {
		return nil, nil
	}

	entries, err := afero.ReadDir(fs, current)
	if err != nil {
		return nil, err
	}
	var targets []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, loader.ReservedPrefix) {
			continue
		}
		if !slices.Contains(suffixes, loader.Suffix(name)) {
			continue
		}
		path := filepath.Join(current, name)
		if slices.Contains(exclude, path) {
			continue
		}
		targets = append(targets, path)
	}
	return targets, nil
}
