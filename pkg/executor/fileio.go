package executor

import (
	"fmt"
	"os"

	"github.com/codeready-toolchain/tarsy/pkg/apperrors"
	"github.com/codeready-toolchain/tarsy/pkg/models"
	"github.com/codeready-toolchain/tarsy/pkg/sandbox"
)

// FileIO is the narrow filesystem interface the WRITE/READ/EDIT action
// handlers use — kept as an interface so tests can substitute an in-memory
// implementation without touching a real filesystem.
type FileIO interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
}

// OSFileIO is the default FileIO backed by the real filesystem.
type OSFileIO struct{}

func (OSFileIO) ReadFile(path string) ([]byte, error)        { return os.ReadFile(path) }
func (OSFileIO) WriteFile(path string, data []byte) error { return os.WriteFile(path, data, 0o644) }

// handleWrite implements the WRITE action (spec.md §4.5.c).
func (l *Loop) handleWrite(filePath, content string) (string, error) {
	if err := l.fs.WriteFile(filePath, []byte(content)); err != nil {
		return "", apperrors.New(apperrors.KindFileIO, fmt.Sprintf("failed to write %s", filePath), err)
	}
	return fmt.Sprintf("Wrote %d bytes to %s.", len(content), filePath), nil
}

// handleRead implements the READ action, rejecting files over MaxReadBytes.
func (l *Loop) handleRead(filePath string) (string, error) {
	data, err := l.fs.ReadFile(filePath)
	if err != nil {
		return "", apperrors.New(apperrors.KindFileIO, fmt.Sprintf("failed to read %s", filePath), err)
	}
	if len(data) > MaxReadBytes {
		return "", apperrors.New(apperrors.KindFileIO,
			fmt.Sprintf("%s is %d bytes, over the %d byte read cap; use CODE to summarize or page through it instead",
				filePath, len(data), MaxReadBytes), apperrors.ErrFileTooLarge)
	}
	return sandbox.AnnotateSnippet(string(data), 0), nil
}

// handleEdit implements the EDIT action: replacements are applied in order,
// each find string must occur at least once and only its first occurrence is
// replaced — a missing find string fails the whole edit hard, leaving the
// file untouched.
func (l *Loop) handleEdit(filePath string, replacements []models.Replacement) (string, error) {
	data, err := l.fs.ReadFile(filePath)
	if err != nil {
		return "", apperrors.New(apperrors.KindFileIO, fmt.Sprintf("failed to read %s", filePath), err)
	}
	content := string(data)

	for _, r := range replacements {
		idx := indexOf(content, r.Find)
		if idx == -1 {
			return "", apperrors.New(apperrors.KindFileIO,
				fmt.Sprintf("Find string %q not found", r.Find), apperrors.ErrFindStringMissing)
		}
		content = content[:idx] + r.Replace + content[idx+len(r.Find):]
	}

	if err := l.fs.WriteFile(filePath, []byte(content)); err != nil {
		return "", apperrors.New(apperrors.KindFileIO, fmt.Sprintf("failed to write %s", filePath), err)
	}
	return sandbox.AnnotateSnippet(content, 0), nil
}

func indexOf(s, sub string) int {
	n, m := len(s), len(sub)
	if m == 0 {
		return -1
	}
	for i := 0; i+m <= n; i++ {
		if s[i:i+m] == sub {
			return i
		}
	}
	return -1
}
