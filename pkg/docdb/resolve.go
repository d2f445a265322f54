package docdb

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/calvinalkan/docdb/pkg/fs"
)

// defaultBaseName is used when a logical path names a directory.
const defaultBaseName = "db"

// NormalizePath turns a logical database path into a slash-separated path
// rooted at workDir, ending in ext.
//
// A leading workDir prefix and a leading "./" are stripped, and the result
// always starts with a single "/". A leading "/" therefore means "relative to
// workDir", not the filesystem root. Paths ending in "/" get "db"+ext
// appended; other paths without ext get ext appended. A ".yaml" path is
// kept as is when ext is ".yml".
func NormalizePath(workDir, logical, ext string) string {
	p := filepath.ToSlash(logical)
	wd := filepath.ToSlash(workDir)

	if wd != "" && wd != "/" && strings.HasPrefix(p, wd+"/") {
		p = p[len(wd):]
	}

	if strings.HasPrefix(p, "./") {
		p = p[1:]
	}

	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}

	for strings.HasPrefix(p, "//") {
		p = p[1:]
	}

	if !hasExt(p, ext) {
		if strings.HasSuffix(p, "/") {
			p += defaultBaseName + ext
		} else {
			p += ext
		}
	}

	return p
}

// hasExt reports whether p already ends in ext. ".yaml" counts as ".yml".
func hasExt(p, ext string) bool {
	if strings.HasSuffix(p, ext) {
		return true
	}

	return ext == ".yml" && strings.HasSuffix(p, ".yaml")
}

// ResolvePath resolves logical to an absolute file below workDir, creates
// missing parent directories one segment at a time, and writes an empty
// document with codec if the file does not exist.
//
// ResolvePath is idempotent: existing directories and files are left alone.
func ResolvePath(fsys fs.FS, workDir, logical string, codec Codec) (string, error) {
	normalized := NormalizePath(workDir, logical, codec.Ext())
	file := filepath.Join(workDir, filepath.FromSlash(normalized))

	segs := strings.Split(strings.TrimPrefix(normalized, "/"), "/")
	dir := workDir

	for _, seg := range segs[:len(segs)-1] {
		if seg == "" {
			continue
		}

		dir = filepath.Join(dir, seg)

		exists, err := fsys.Exists(dir)
		if err != nil {
			return "", wrap(ErrIO, err)
		}

		if exists {
			continue
		}

		err = fsys.Mkdir(dir, 0o755)
		if err != nil && !os.IsExist(err) {
			return "", wrap(ErrIO, err)
		}
	}

	exists, err := fsys.Exists(file)
	if err != nil {
		return "", wrap(ErrIO, err)
	}

	if exists {
		return file, nil
	}

	empty, err := codec.Encode(NewObject())
	if err != nil {
		return "", err
	}

	err = fsys.WriteFileAtomic(file, empty, 0o644)
	if err != nil {
		return "", wrap(ErrIO, fmt.Errorf("create %s: %w", file, err))
	}

	return file, nil
}
