// Package persist saves and loads the vector index and metadata store as a
// mutually consistent pair of artifacts: <base>.index holds the binary
// vectors, <base>_metadata.json holds the documents in insertion order.
// The pair is only ever written or loaded together; a lone or disagreeing
// artifact is an error, never a partial restore.
package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/hyperjump/rinsho/internal/models"
	"github.com/hyperjump/rinsho/internal/store"
	"github.com/hyperjump/rinsho/internal/vector"
)

const (
	indexSuffix    = ".index"
	metadataSuffix = "_metadata.json"
)

// ErrNoIndex indicates no saved artifact pair exists at the base path.
// Callers treat this as "no prior index: start empty", distinct from a
// corrupt or incomplete pair.
var ErrNoIndex = errors.New("no saved index")

// Error wraps a save or load failure with the artifact path it concerns.
type Error struct {
	Op   string // "save" or "load"
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IndexPath returns the vector artifact path for a base path.
func IndexPath(base string) string {
	return base + indexSuffix
}

// MetadataPath returns the metadata artifact path for a base path.
func MetadataPath(base string) string {
	return base + metadataSuffix
}

// Manager persists index/metadata pairs.
type Manager struct {
	logger *zap.Logger
}

// NewManager creates a manager. logger may be nil for silent operation.
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{logger: logger}
}

// Save writes both artifacts for basePath. Each artifact is written to a
// temp file and renamed into place, index first, so a crash mid-save leaves
// either the old pair or the new pair, not a mix with torn contents.
// Row counts must agree before anything is written.
func (m *Manager) Save(index *vector.FlatIndex, docs *store.DocumentStore, basePath string) error {
	if index.Size() != docs.Len() {
		return &Error{Op: "save", Path: basePath,
			Err: fmt.Errorf("index has %d vectors but store has %d documents", index.Size(), docs.Len())}
	}
	if err := os.MkdirAll(filepath.Dir(basePath), 0o755); err != nil {
		return &Error{Op: "save", Path: basePath, Err: err}
	}

	indexPath := IndexPath(basePath)
	metaPath := MetadataPath(basePath)
	indexTmp := indexPath + ".tmp"
	metaTmp := metaPath + ".tmp"

	if err := m.writeIndex(index, indexTmp); err != nil {
		return &Error{Op: "save", Path: indexPath, Err: err}
	}
	if err := m.writeMetadata(docs.All(), metaTmp); err != nil {
		os.Remove(indexTmp)
		return &Error{Op: "save", Path: metaPath, Err: err}
	}
	if err := os.Rename(indexTmp, indexPath); err != nil {
		os.Remove(indexTmp)
		os.Remove(metaTmp)
		return &Error{Op: "save", Path: indexPath, Err: err}
	}
	if err := os.Rename(metaTmp, metaPath); err != nil {
		os.Remove(metaTmp)
		return &Error{Op: "save", Path: metaPath, Err: err}
	}

	m.logger.Info("index saved",
		zap.String("index_path", indexPath),
		zap.String("metadata_path", metaPath),
		zap.Int("documents", docs.Len()),
	)
	return nil
}

// Load reads the artifact pair for basePath. Returns ErrNoIndex when neither
// artifact exists; any other condition (one artifact missing, unreadable
// content, row count disagreement) is a *Error. Document IDs equal row
// positions, so a successful load preserves ID alignment exactly.
func (m *Manager) Load(basePath string) (*vector.FlatIndex, *store.DocumentStore, error) {
	indexPath := IndexPath(basePath)
	metaPath := MetadataPath(basePath)

	_, indexErr := os.Stat(indexPath)
	_, metaErr := os.Stat(metaPath)
	if os.IsNotExist(indexErr) && os.IsNotExist(metaErr) {
		return nil, nil, ErrNoIndex
	}
	if os.IsNotExist(indexErr) || os.IsNotExist(metaErr) {
		missing := indexPath
		if os.IsNotExist(metaErr) {
			missing = metaPath
		}
		return nil, nil, &Error{Op: "load", Path: missing, Err: errors.New("artifact pair incomplete")}
	}

	f, err := os.Open(indexPath)
	if err != nil {
		return nil, nil, &Error{Op: "load", Path: indexPath, Err: err}
	}
	defer f.Close()
	index, err := vector.Decode(f)
	if err != nil {
		return nil, nil, &Error{Op: "load", Path: indexPath, Err: err}
	}

	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, nil, &Error{Op: "load", Path: metaPath, Err: err}
	}
	var docs []models.Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, nil, &Error{Op: "load", Path: metaPath, Err: err}
	}

	if index.Size() != len(docs) {
		return nil, nil, &Error{Op: "load", Path: basePath,
			Err: fmt.Errorf("index has %d vectors but metadata has %d documents", index.Size(), len(docs))}
	}

	m.logger.Info("index loaded",
		zap.String("index_path", indexPath),
		zap.Int("documents", len(docs)),
	)
	return index, store.New(docs), nil
}

func (m *Manager) writeIndex(index *vector.FlatIndex, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := index.Encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (m *Manager) writeMetadata(docs []models.Document, path string) error {
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
