package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildKey_ConventionsAgree(t *testing.T) {
	addrs := []Address{
		PrefixAddress{Prefix: "portraits/2024", Filename: "a.png"},
		FolderAddress{Folder: "portraits/2024", File: "a.png"},
		FullPathAddress{Path: "portraits/2024/a.png"},
		FolderAddress{Folder: " /portraits/2024/ ", File: " a.png "},
		FullPathAddress{Path: "/portraits//2024/a.png/"},
	}

	for _, prefix := range []string{"", "uploads", "uploads/", "/uploads/"} {
		var want string
		for i, addr := range addrs {
			key, err := BuildKey(prefix, addr)
			require.NoError(t, err, addr.String())
			if i == 0 {
				want = key
				continue
			}
			assert.Equal(t, want, key, "prefix %q, %s", prefix, addr)
		}
	}
}

func TestBuildKey(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		addr   Address
		want   string
	}{
		{"folder and file", "", FolderAddress{"renders", "cat.png"}, "renders/cat.png"},
		{"empty folder", "uploads/", FolderAddress{"", "cat.png"}, "uploads/cat.png"},
		{"prefix convention", "root", PrefixAddress{"a/b", "c.png"}, "root/a/b/c.png"},
		{"empty key prefix", "", PrefixAddress{"", "c.png"}, "c.png"},
		{"full path", "uploads", FullPathAddress{"x/y.png"}, "uploads/x/y.png"},
		{"double slashes collapse", "uploads//", FullPathAddress{"x///y.png"}, "uploads/x/y.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildKey(tt.prefix, tt.addr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildKey_Invalid(t *testing.T) {
	for _, addr := range []Address{
		nil,
		FolderAddress{Folder: "x"},
		PrefixAddress{Prefix: "x", Filename: "  "},
		FullPathAddress{Path: "///"},
	} {
		_, err := BuildKey("uploads", addr)
		assert.True(t, errors.Is(err, ErrInvalidInput), "%v", addr)
	}
}

func TestNormalizePrefix(t *testing.T) {
	assert.Equal(t, "", NormalizePrefix(""))
	assert.Equal(t, "", NormalizePrefix(" / "))
	assert.Equal(t, "uploads/", NormalizePrefix("uploads"))
	assert.Equal(t, "uploads/", NormalizePrefix("uploads/"))
	assert.Equal(t, "a/b/", NormalizePrefix("/a//b/"))
}

func TestBatchKey(t *testing.T) {
	assert.Equal(t, "a/img.png", BatchKey("a/img", 0, 1))
	assert.Equal(t, "a/img.jpg", BatchKey("a/img.jpg", 0, 1))
	assert.Equal(t, "a/img_1.png", BatchKey("a/img", 1, 2))
	assert.Equal(t, "a/img_0.webp", BatchKey("a/img.webp", 0, 4))
	assert.Equal(t, "v1.2/img.png", BatchKey("v1.2/img", 0, 1))
}
