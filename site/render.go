package site

import (
	"bytes"
	"fmt"
	"maps"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/justic-ssg/justic/fsutil"
)

// StaticDirName is the directory under buildDir receiving static copies.
const StaticDirName = "static"

// renderNode writes the node's page when its meta asks for one. Nodes that
// are not rendered, or that have no template, produce no output.
func (b *build) renderNode(st State) error {
	meta := st.Meta
	if !meta.Render || meta.Template == "" {
		return nil
	}

	var buf bytes.Buffer
	if err := b.templates.Render(&buf, st.Config.TemplatesDir, meta.Template, maps.Clone(st.Content)); err != nil {
		return err
	}
	out := buf.Bytes()
	if st.Config.Minify {
		minified, err := b.renderer.MinifyHTML(out)
		if err != nil {
			return fmt.Errorf("minify: %w", err)
		}
		out = minified
	}

	if err := b.fs.MkdirAll(filepath.Dir(meta.Build), 0o755); err != nil {
		return fmt.Errorf("ensure output dir: %w", err)
	}
	if err := afero.WriteFile(b.fs, meta.Build, out, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", meta.Build, err)
	}
	b.pages++
	b.logger.Info("rendered", "path", meta.Current, "template", meta.Template, "build", meta.Build)
	return nil
}

// copyStatic replaces buildDir/static with the node's declared static
// directory. The last node to copy into a given buildDir wins.
func (b *build) copyStatic(st State) error {
	if st.Meta.Static == "" {
		return nil
	}
	src := ResolveRelative(st.Meta.Current, st.IsFile, st.Meta.Static)
	ok, err := afero.DirExists(b.fs, src)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrStaticSourceMissing, src)
	}

	dst := filepath.Join(st.Config.BuildDir, StaticDirName)
	if owner, seen := b.staticOwners[dst]; seen && owner != st.Meta.Current {
		b.logger.Warn("static overwritten", "path", st.Meta.Current, "previous", owner, "dest", dst)
	}
	if err := fsutil.ReplaceTree(b.fs, src, dst); err != nil {
		return fmt.Errorf("copy static %s: %w", src, err)
	}
	b.staticOwners[dst] = st.Meta.Current
	b.statics++
	b.logger.Info("static copied", "path", st.Meta.Current, "source", src, "dest", dst)
	return nil
}
