package dom

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
)

// File is an entry of a file input's selection.
type File struct {
	Name        string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// BytesFile wraps in-memory content as a File.
func BytesFile(name string, data []byte) File {
	content := append([]byte(nil), data...)
	return File{
		Name:        name,
		Size:        int64(len(content)),
		ContentType: contentTypeFor(name),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(content)), nil
		},
	}
}

// OpenFile describes a file on disk; its content is read lazily when the
// payload is encoded.
func OpenFile(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("dom: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("dom: %s is a directory", path)
	}
	return File{
		Name:        filepath.Base(path),
		Size:        info.Size(),
		ContentType: contentTypeFor(path),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
