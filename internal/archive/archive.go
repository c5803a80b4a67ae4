// Package archive names and prepares the archive directory.
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"codeberg.org/mutker/hostwatch/internal/errors"
)

const (
	DefaultPrefix = "log"

	defaultDirPerm = 0o755
	nameLayout     = "20060102_150405"
	maxSuffix      = 1000
)

const (
	ErrCreateDir   = errors.ErrorCode("archive_create_dir_failed")
	ErrNotWritable = errors.ErrorCode("archive_dir_not_writable")
	ErrNameTaken   = errors.ErrorCode("archive_name_exhausted")
)

// Namer maps a cycle timestamp to an archive path of the form
// <dir>/<prefix>_<YYYYMMDD>_<HHMMSS>.<ext>. The stamp is in UTC so names
// sort in time order across offset changes.
type Namer struct {
	Dir    string
	Prefix string
	Ext    string
}

func NewNamer(dir, ext string) Namer {
	return Namer{Dir: dir, Prefix: DefaultPrefix, Ext: ext}
}

// Base returns the file name for t without checking the directory.
func (n Namer) Base(t time.Time) string {
	prefix := n.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}

	return fmt.Sprintf("%s_%s.%s", prefix, t.UTC().Format(nameLayout), n.Ext)
}

// NameFor returns a path for t that does not exist yet. When a file for the
// same second is already present a _<nnn> suffix is added, which still sorts
// after the earlier file.
func (n Namer) NameFor(t time.Time) (string, error) {
	errFactory := errors.New()

	if err := checkDir(n.Dir); err != nil {
		return "", err
	}

	path := filepath.Join(n.Dir, n.Base(t))
	if !exists(path) {
		return path, nil
	}

	prefix := n.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	for i := 1; i < maxSuffix; i++ {
		candidate := filepath.Join(n.Dir, fmt.Sprintf("%s_%s_%03d.%s", prefix, t.UTC().Format(nameLayout), i, n.Ext))
		if !exists(candidate) {
			return candidate, nil
		}
	}

	return "", errFactory.WithData(ErrNameTaken, path)
}

// EnsureDir creates dir when missing and verifies files can be created in it.
func EnsureDir(dir string) error {
	errFactory := errors.New()

	if err := os.MkdirAll(dir, defaultDirPerm); err != nil {
		return errFactory.WithData(ErrCreateDir, struct {
			Path  string
			Error string
		}{
			Path:  dir,
			Error: err.Error(),
		})
	}

	probe, err := os.CreateTemp(dir, ".hostwatch-probe-*")
	if err != nil {
		return errFactory.WithData(ErrNotWritable, struct {
			Path  string
			Error string
		}{
			Path:  dir,
			Error: err.Error(),
		})
	}
	probe.Close()
	os.Remove(probe.Name())

	return nil
}

func checkDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return errors.New().Wrap(ErrNotWritable, err)
	}
	if !info.IsDir() {
		return errors.New().WithData(ErrNotWritable, dir+" is not a directory")
	}

	return nil
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
