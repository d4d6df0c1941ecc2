package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paperchase/relay/internal/core/common"
	"github.com/paperchase/relay/internal/core/model"
	"github.com/paperchase/relay/internal/errors"
)

const safeTitleLen = 30

// Writer persists generated artifacts as markdown files, one directory per
// kind. Files land via write-to-temp-then-rename so a crash mid-write never
// leaves a half-written artifact at the final path.
type Writer struct {
	dirs map[model.ArtifactKind]string
}

func NewWriter(blogDir, scriptDir string) *Writer {
	return &Writer{dirs: map[model.ArtifactKind]string{
		model.ArtifactBlog:   blogDir,
		model.ArtifactScript: scriptDir,
	}}
}

// Write renders and durably stores one artifact, returning its final path.
// The temp file is created in the destination directory so the rename
// stays on one filesystem.
func (w *Writer) Write(a model.Artifact) (string, error) {
	dir, ok := w.dirs[a.Kind]
	if !ok || dir == "" {
		return "", errors.Newf("no directory configured for artifact kind %q", a.Kind)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "create artifact dir %s", dir)
	}

	name := fmt.Sprintf("%s_%s_%s.md",
		a.Date.Format("20060102_150405"),
		common.SafeTitle(a.Title, safeTitleLen),
		a.Kind,
	)
	final := filepath.Join(dir, name)

	tmp, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return "", errors.Wrapf(err, "create temp for %s", name)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(render(a)); err != nil {
		tmp.Close()
		return "", errors.Wrapf(err, "write %s", name)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", errors.Wrapf(err, "sync %s", name)
	}
	if err := tmp.Close(); err != nil {
		return "", errors.Wrapf(err, "close %s", name)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", errors.Wrapf(err, "chmod %s", name)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		return "", errors.Wrapf(err, "rename %s into place", name)
	}
	return final, nil
}

// render produces the file body: frontmatter, the content, and a citation
// trailer pointing back at the source.
func render(a model.Artifact) string {
	return fmt.Sprintf(`---
title: %q
date: %s
source_url: %s
---

%s

> Source: [%s](%s)
`,
		a.Title,
		a.Date.Format("2006-01-02"),
		a.SourceRef,
		strings.TrimSpace(a.Body),
		a.Title,
		a.SourceRef,
	)
}
