package kb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/rinsho/internal/models"
	"github.com/hyperjump/rinsho/internal/retrieval"
)

// Loader ingests JSON document files into the retrieval service. The engine
// never fetches data itself; files are produced by external acquisition
// scripts and dropped into the configured knowledge directories.
type Loader struct {
	svc    *retrieval.Service
	logger *zap.Logger
}

// NewLoader creates a loader. logger may be nil.
func NewLoader(svc *retrieval.Service, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{svc: svc, logger: logger}
}

// LoadFile reads a JSON array of document records from path and appends them
// to the index. Returns the number of documents ingested. Each ingest gets a
// unique ID for log correlation.
func (l *Loader) LoadFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read knowledge file: %w", err)
	}
	docs, err := DecodeDocuments(data)
	if err != nil {
		return 0, fmt.Errorf("parse knowledge file %s: %w", path, err)
	}
	if err := l.svc.AddDocuments(ctx, docs); err != nil {
		return 0, err
	}
	l.logger.Info("knowledge file ingested",
		zap.String("ingest_id", uuid.New().String()),
		zap.String("path", path),
		zap.Int("documents", len(docs)),
	)
	return len(docs), nil
}

// LoadDir ingests every .json file directly under dir, in lexical order so
// document IDs are reproducible. Returns the total documents ingested.
func (l *Loader) LoadDir(ctx context.Context, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read knowledge dir: %w", err)
	}
	total := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			continue
		}
		n, err := l.LoadFile(ctx, filepath.Join(dir, entry.Name()))
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// DecodeDocuments parses a JSON array of document records. Two shapes are
// accepted per record: {"text": ..., "metadata": {...}} and the flat form
// {"text": ..., <other keys>} where every non-text key becomes metadata.
func DecodeDocuments(data []byte) ([]models.Document, error) {
	var raw []map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	docs := make([]models.Document, 0, len(raw))
	for i, record := range raw {
		text, _ := record["text"].(string)
		if strings.TrimSpace(text) == "" {
			return nil, &retrieval.ValidationError{Msg: fmt.Sprintf("record %d has empty or missing text", i)}
		}
		var meta map[string]interface{}
		if nested, ok := record["metadata"].(map[string]interface{}); ok {
			meta = nested
		} else {
			meta = make(map[string]interface{}, len(record)-1)
			for key, value := range record {
				if key == "text" {
					continue
				}
				meta[key] = value
			}
		}
		docs = append(docs, models.Document{Text: text, Metadata: meta})
	}
	return docs, nil
}
