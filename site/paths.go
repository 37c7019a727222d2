package site

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/justic-ssg/justic/loader"
)

const htmlSuffix = ".html"

// DeriveBuildPath maps a source node onto the build directory. The node path
// is taken relative to root/removeBuildPrefix and its final suffix becomes
// .html, so root/a/b/page builds to buildDir/a/b/page.html. The prefix
// directory itself has no page below buildDir and is rejected.
func DeriveBuildPath(root, buildDir, removeBuildPrefix, current string) (string, error) {
	base := BuildBase(root, removeBuildPrefix)
	rel, err := filepath.Rel(base, current)
	if err != nil || !isDescendant(rel) {
		return "", fmt.Errorf("%w: %s is not under %s", ErrPathOutsideRoot, current, base)
	}
	if rel == "." {
		return "", fmt.Errorf("%w: %s is the build prefix itself", ErrPathOutsideRoot, current)
	}
	return withSuffix(filepath.Join(buildDir, rel), htmlSuffix), nil
}

// BuildBase returns the absolute directory output paths are taken relative to.
func BuildBase(root, removeBuildPrefix string) string {
	if filepath.IsAbs(removeBuildPrefix) {
		return filepath.Clean(removeBuildPrefix)
	}
	return filepath.Join(root, removeBuildPrefix)
}

// ResolveDeclaredBuild joins an explicitly declared build path onto buildDir.
// The declared name is kept as written, without a suffix rewrite.
func ResolveDeclaredBuild(buildDir, declared string) string {
	return filepath.Join(buildDir, declared)
}

// ResolveRelative resolves value against a node. Absolute values are kept;
// relative ones are taken from the parent directory of a file node or from
// the directory node itself.
func ResolveRelative(base string, baseIsFile bool, value string) string {
	if filepath.IsAbs(value) {
		return filepath.Clean(value)
	}
	dir := base
	if baseIsFile {
		dir = filepath.Dir(base)
	}
	return filepath.Join(dir, value)
}

func isDescendant(rel string) bool {
	if filepath.IsAbs(rel) {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func withSuffix(path, suffix string) string {
	dir, name := filepath.Split(path)
	if ext := loader.Suffix(name); ext != "" {
		name = strings.TrimSuffix(name, ext)
	}
	return dir + name + suffix
}
