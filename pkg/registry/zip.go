package registry

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/tarsy/pkg/apperrors"
)

// manifestFileName is the archive member holding the Record metadata and
// AgentState — spec.md §4.6's "agent.yml manifest" (kept as JSON here since
// Record already round-trips through encoding/json elsewhere in this
// package; the manifest's on-disk name is yml per spec, its content is a
// JSON document, which yaml.v3 parses identically to JSON for this shape).
const manifestFileName = "agent.yml"

// Export writes a zip archive of the agent's manifest and working
// directory to w — spec.md §4.6 "export agent".
func (r *Registry) Export(id string, w io.Writer) error {
	rec, err := r.Get(id)
	if err != nil {
		return err
	}

	zw := zip.NewWriter(w)

	manifest, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return apperrors.New(apperrors.KindFileIO, "marshal export manifest", err)
	}
	mw, err := zw.Create(manifestFileName)
	if err != nil {
		return apperrors.New(apperrors.KindFileIO, "create manifest entry", err)
	}
	if _, err := mw.Write(manifest); err != nil {
		return apperrors.New(apperrors.KindFileIO, "write manifest entry", err)
	}

	workdir := r.workdirPath(id)
	err = filepath.Walk(workdir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(workdir, path)
		if err != nil {
			return err
		}
		fw, err := zw.Create(filepath.Join("workdir", rel))
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		_, err = fw.Write(data)
		return err
	})
	if err != nil && !os.IsNotExist(err) {
		return apperrors.New(apperrors.KindFileIO, "archive agent working directory", err)
	}

	if err := zw.Close(); err != nil {
		return apperrors.New(apperrors.KindFileIO, "finalize export archive", err)
	}
	return nil
}

// Import reads a zip archive previously produced by Export and installs it
// under a freshly-minted id — spec.md §4.6 "import agent": the id always
// changes on import, and the working directory path is reset to the new
// agent's own workdir rather than whatever path the export captured.
func (r *Registry) Import(ra io.ReaderAt, size int64) (*Record, error) {
	zr, err := zip.NewReader(ra, size)
	if err != nil {
		return nil, apperrors.New(apperrors.KindValidation, "open import archive", err)
	}

	var rec Record
	manifestFound := false
	for _, f := range zr.File {
		if f.Name == manifestFileName {
			rc, err := f.Open()
			if err != nil {
				return nil, apperrors.New(apperrors.KindFileIO, "open import manifest", err)
			}
			data, err := io.ReadAll(rc)
			rc.Close()
			if err != nil {
				return nil, apperrors.New(apperrors.KindFileIO, "read import manifest", err)
			}
			if err := json.Unmarshal(data, &rec); err != nil {
				return nil, apperrors.New(apperrors.KindValidation, "parse import manifest", err)
			}
			manifestFound = true
			break
		}
	}
	if !manifestFound {
		return nil, apperrors.New(apperrors.KindValidation, fmt.Sprintf("import archive has no %s", manifestFileName), nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	newID := uuid.NewString()
	rec.ID = newID
	rec.CreatedAt = time.Now()
	rec.LastMessageAt = time.Time{}
	rec.CWD = r.workdirPath(newID)

	if err := os.MkdirAll(rec.CWD, 0o755); err != nil {
		return nil, apperrors.New(apperrors.KindFileIO, "create imported agent working directory", err)
	}
	for _, f := range zr.File {
		if f.Name == manifestFileName || f.FileInfo().IsDir() {
			continue
		}
		rel := strings.TrimPrefix(f.Name, "workdir/")
		if rel == f.Name {
			continue // not a workdir member, e.g. directory entries or stray metadata
		}
		dest := filepath.Join(rec.CWD, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return nil, apperrors.New(apperrors.KindFileIO, "create imported file directory", err)
		}
		rc, err := f.Open()
		if err != nil {
			return nil, apperrors.New(apperrors.KindFileIO, "open imported archive member", err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, apperrors.New(apperrors.KindFileIO, "read imported archive member", err)
		}
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return nil, apperrors.New(apperrors.KindFileIO, "write imported file", err)
		}
	}

	if err := r.persist(&rec); err != nil {
		return nil, err
	}
	r.cache[newID] = &cacheEntry{record: &rec, loadedAt: time.Now()}
	return rec.clone(), nil
}
