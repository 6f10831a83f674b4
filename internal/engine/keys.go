package engine

import (
	"fmt"
	"path"
	"strings"
)

// Address names an object relative to the configured key prefix. The three
// implementations are the addressing conventions the nodes expose; all of
// them resolve through BuildKey.
type Address interface {
	segments() ([]string, error)
	String() string
}

// PrefixAddress joins a key prefix and a file name: "portraits/2024" + "a.png".
type PrefixAddress struct {
	Prefix   string
	Filename string
}

func (a PrefixAddress) segments() ([]string, error) {
	name := cleanSegment(a.Filename)
	if name == "" {
		return nil, fmt.Errorf("%w: file name is required", ErrInvalidInput)
	}
	return []string{cleanSegment(a.Prefix), name}, nil
}

func (a PrefixAddress) String() string { return "prefix:" + a.Prefix + "+" + a.Filename }

// FolderAddress joins a folder path and a file name.
type FolderAddress struct {
	Folder string
	File   string
}

func (a FolderAddress) segments() ([]string, error) {
	name := cleanSegment(a.File)
	if name == "" {
		return nil, fmt.Errorf("%w: file name is required", ErrInvalidInput)
	}
	return []string{cleanSegment(a.Folder), name}, nil
}

func (a FolderAddress) String() string { return "folder:" + a.Folder + "/" + a.File }

// FullPathAddress is a single path string including the file name.
type FullPathAddress struct {
	Path string
}

func (a FullPathAddress) segments() ([]string, error) {
	p := cleanSegment(a.Path)
	if p == "" {
		return nil, fmt.Errorf("%w: full path is required", ErrInvalidInput)
	}
	return []string{p}, nil
}

func (a FullPathAddress) String() string { return "path:" + a.Path }

// BuildKey resolves addr under keyPrefix. Surrounding whitespace and slashes are
// dropped from every part and repeated slashes collapse, so equivalent inputs in
// different conventions produce the same key.
func BuildKey(keyPrefix string, addr Address) (string, error) {
	if addr == nil {
		return "", fmt.Errorf("%w: address is required", ErrInvalidInput)
	}
	segs, err := addr.segments()
	if err != nil {
		return "", err
	}

	parts := make([]string, 0, len(segs)+1)
	if p := cleanSegment(keyPrefix); p != "" {
		parts = append(parts, p)
	}
	for _, s := range segs {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return collapseSlashes(strings.Join(parts, "/")), nil
}

// NormalizePrefix returns prefix with exactly one trailing slash, or "".
func NormalizePrefix(prefix string) string {
	p := cleanSegment(prefix)
	if p == "" {
		return ""
	}
	return collapseSlashes(p) + "/"
}

// BatchKey returns the key for entry index of a batch of size count. A missing
// extension becomes ".png"; batches of more than one image get "_<index>"
// before the extension.
func BatchKey(key string, index, count int) string {
	dir, file := path.Split(key)
	ext := path.Ext(file)
	name := strings.TrimSuffix(file, ext)
	if ext == "" {
		ext = ".png"
	}
	if count > 1 {
		name = fmt.Sprintf("%s_%d", name, index)
	}
	return dir + name + ext
}

func cleanSegment(s string) string {
	return strings.Trim(strings.TrimSpace(s), "/")
}

func collapseSlashes(s string) string {
	for strings.Contains(s, "//") {
		s = strings.ReplaceAll(s, "//", "/")
	}
	return s
}
