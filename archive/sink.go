package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// Exporter stores a transcript document and returns where it landed.
type Exporter interface {
	Export(content, path string) (string, error)
}

// FileSink writes transcripts to a filesystem, creating parent directories as needed.
type FileSink struct {
	fs afero.Fs
}

// NewFileSink returns a sink over fs. Use afero.NewOsFs() for the real disk.
func NewFileSink(fs afero.Fs) *FileSink {
	return &FileSink{fs: fs}
}

// Export writes content to path, replacing any existing file.
func (s *FileSink) Export(content, path string) (string, error) {
	dir := filepath.Dir(path)
	if err := s.fs.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory %s: %w", dir, err)
	}
	if err := afero.WriteFile(s.fs, path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write transcript %s: %w", path, err)
	}
	return path, nil
}

// Open returns a reader for a previously exported transcript.
func (s *FileSink) Open(path string) (io.ReadCloser, error) {
	f, err := s.fs.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript %s: %w", path, err)
	}
	return f, nil
}
