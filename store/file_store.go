package store

import (
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"

	raven "github.com/getsentry/raven-go"
	"github.com/pkg/errors"
)

// FileSystem is a Store backed by a directory tree. Keys are used as file
// names, fanned out into two levels of subdirectories so no single
// directory grows too large. Writes go to a scratch directory first and are
// renamed into place on Close, so a crash mid-write never leaves a partial
// value under its final key.
type FileSystem struct {
	root string
}

// the subdir files are written into before being renamed into place
const scratchdir = "scratch"

var (
	_ Store = &FileSystem{}

	// ErrKeyExists indicates an attempt to create a key which already exists.
	ErrKeyExists = errors.New("key already exists")

	// ErrBadKey means the key contains a forward slash or is empty.
	ErrBadKey = errors.New("malformed key")
)

// NewFileSystem creates a FileSystem store rooted at the given path.
func NewFileSystem(root string) *FileSystem {
	return &FileSystem{root: root}
}

// List returns a channel giving every key in the store. The walk opens
// directories only, so it is cheap even on slow media.
func (s *FileSystem) List() <-chan string {
	c := make(chan string)
	go func() {
		defer close(c)
		level0, err := os.ReadDir(s.root)
		if err != nil {
			log.Println(err)
			raven.CaptureError(err, nil)
			return
		}
		for _, d := range level0 {
			if !d.IsDir() || d.Name() == scratchdir {
				continue
			}
			level1, err := os.ReadDir(filepath.Join(s.root, d.Name()))
			if err != nil {
				log.Println(err)
				raven.CaptureError(err, nil)
				continue
			}
			for _, dd := range level1 {
				if !dd.IsDir() {
					continue
				}
				files, err := os.ReadDir(filepath.Join(s.root, d.Name(), dd.Name()))
				if err != nil {
					log.Println(err)
					continue
				}
				for _, f := range files {
					if !f.IsDir() {
						c <- f.Name()
					}
				}
			}
		}
	}()
	return c
}

// ListPrefix returns every key beginning with the given prefix.
func (s *FileSystem) ListPrefix(prefix string) ([]string, error) {
	var glob string
	switch len(prefix) {
	case 0:
		glob = "*/*"
	case 1:
		glob = prefix + "*/*"
	case 2:
		glob = prefix + "/*"
	case 3:
		glob = prefix[0:2] + "/" + prefix[2:3] + "*"
	default:
		glob = prefix[0:2] + "/" + prefix[2:4]
	}
	glob = filepath.Join(s.root, glob, prefix+"*")
	result, err := filepath.Glob(glob)
	if err == nil {
		for i := range result {
			result[i] = path.Base(result[i])
		}
	}
	return result, err
}

// Open returns a reader for the given key along with its size.
func (s *FileSystem) Open(key string) (ReadAtCloser, int64, error) {
	if err := checkKey(key); err != nil {
		return nil, 0, err
	}
	f, err := os.Open(filepath.Join(s.root, keySubdir(key), key))
	if err != nil {
		return nil, 0, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, fi.Size(), nil
}

// Create makes a new entry under the given key and returns a writer for its
// value.
func (s *FileSystem) Create(key string) (io.WriteCloser, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	target, err := s.mkSubdir(keySubdir(key), key)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		return nil, errors.Wrap(ErrKeyExists, key)
	}
	temp, err := s.mkSubdir(scratchdir, key)
	if err != nil {
		return nil, err
	}
	// O_EXCL so two writers never share a scratch file
	w, err := os.OpenFile(temp, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0666)
	if err != nil {
		return nil, err
	}
	return &moveCloser{WriteCloser: w, source: temp, target: target}, nil
}

// mkSubdir makes sure the given subdirectory exists under the root and
// returns the absolute path for the keyed file inside it.
func (s *FileSystem) mkSubdir(subdir, key string) (string, error) {
	dir := filepath.Join(s.root, subdir)
	err := os.MkdirAll(dir, 0775)
	return filepath.Join(dir, key), err
}

// moveCloser renames the scratch file to its final location on Close.
type moveCloser struct {
	io.WriteCloser
	source string
	target string
}

func (w *moveCloser) Close() error {
	err := w.WriteCloser.Close()
	if err != nil {
		return err
	}
	if _, err := os.Stat(w.target); !os.IsNotExist(err) {
		return ErrKeyExists
	}
	return os.Rename(w.source, w.target)
}

// Delete removes the given key from the store. It is not an error to delete
// a key which does not exist.
func (s *FileSystem) Delete(key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.root, keySubdir(key), key))
	if err != nil && os.IsNotExist(err) {
		err = nil
	}
	return err
}

// keySubdir returns the two-level fan-out directory for a key,
// e.g. "abcd1234" gives "ab/cd".
func keySubdir(key string) string {
	switch len(key) {
	case 0:
		return "."
	case 1, 2:
		return key
	case 3:
		return key[0:2] + "/" + key[2:3]
	default:
		return key[0:2] + "/" + key[2:4]
	}
}

func checkKey(key string) error {
	if key == "" || strings.Contains(key, "/") {
		return errors.Wrap(ErrBadKey, key)
	}
	return nil
}
