package vectorstore

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// metadataSidecar is the JSON file written next to the binary index. It is
// the authoritative copy: when the index file is missing or unreadable the
// index is rebuilt from the embeddings stored here. Documents is an array of
// live records; IDMapping holds a null per tombstoned position.
type metadataSidecar struct {
	Config    sidecarConfig     `json:"config"`
	Documents []*VectorDocument `json:"documents"`
	IDMapping []*string         `json:"id_mapping"`
	SavedAt   time.Time         `json:"saved_at"`
}

type sidecarConfig struct {
	Dimension      int    `json:"dimension"`
	Algorithm      string `json:"algorithm"`
	Metric         string `json:"metric"`
	EmbeddingModel string `json:"embedding_model"`
}

// persistLocked writes the index file and then the metadata sidecar, each
// via temp-file rename. No-op unless StoreOnDisk is set. Caller holds the
// write lock. On failure the in-memory state is not rolled back.
func (e *Engine) persistLocked() error {
	if !e.cfg.StoreOnDisk {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(e.cfg.IndexPath), 0o755); err != nil {
		return fmt.Errorf("%w: creating index directory: %v", ErrPersistence, err)
	}
	if err := os.MkdirAll(filepath.Dir(e.cfg.MetadataPath), 0o755); err != nil {
		return fmt.Errorf("%w: creating metadata directory: %v", ErrPersistence, err)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e.index.snapshot()); err != nil {
		return fmt.Errorf("%w: encoding index: %v", ErrPersistence, err)
	}
	if err := writeFileAtomic(e.cfg.IndexPath, buf.Bytes()); err != nil {
		return fmt.Errorf("%w: writing index file: %v", ErrPersistence, err)
	}

	docs := make([]*VectorDocument, 0, len(e.documents))
	for _, id := range e.liveIDsLocked() {
		docs = append(docs, e.documents[id])
	}
	mapping := make([]*string, len(e.idMapping))
	for pos, id := range e.idMapping {
		if id != "" {
			id := id // per-iteration copy; the go directive predates Go 1.22 loop-variable scoping
			mapping[pos] = &id
		}
	}

	sidecar := metadataSidecar{
		Config: sidecarConfig{
			Dimension:      e.cfg.Dimension,
			Algorithm:      e.cfg.Algorithm,
			Metric:         e.cfg.Metric,
			EmbeddingModel: e.cfg.EmbeddingModel,
		},
		Documents: docs,
		IDMapping: mapping,
		SavedAt:   time.Now().UTC(),
	}
	data, err := json.Marshal(sidecar)
	if err != nil {
		return fmt.Errorf("%w: encoding metadata: %v", ErrPersistence, err)
	}
	if err := writeFileAtomic(e.cfg.MetadataPath, data); err != nil {
		return fmt.Errorf("%w: writing metadata file: %v", ErrPersistence, err)
	}
	return nil
}

// load restores engine state from disk. Returns false when no store exists
// or when the persisted state is unreadable; unreadable state is logged and
// the engine starts fresh rather than refusing to start. The one hard
// failure is a sidecar whose dimension disagrees with the active provider,
// which returns ErrDimensionMismatch. A missing or corrupt index file is
// tolerated and rebuilt from the sidecar's embeddings.
func (e *Engine) load() (bool, error) {
	data, err := os.ReadFile(e.cfg.MetadataPath)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		e.logger.Warn("metadata file unreadable, starting with a fresh index",
			zap.String("path", e.cfg.MetadataPath),
			zap.Error(err))
		return false, nil
	}

	var sidecar metadataSidecar
	if err := json.Unmarshal(data, &sidecar); err != nil {
		e.logger.Warn("metadata file undecodable, starting with a fresh index",
			zap.String("path", e.cfg.MetadataPath),
			zap.Error(err))
		return false, nil
	}
	if sidecar.Config.Dimension != e.cfg.Dimension {
		return false, fmt.Errorf("%w: persisted store has dimension %d, provider %q produces %d",
			ErrDimensionMismatch, sidecar.Config.Dimension, e.cfg.EmbeddingModel, e.cfg.Dimension)
	}
	if sidecar.Config.EmbeddingModel != "" && sidecar.Config.EmbeddingModel != e.cfg.EmbeddingModel {
		e.logger.Warn("persisted store was built with a different embedding model",
			zap.String("persisted", sidecar.Config.EmbeddingModel),
			zap.String("active", e.cfg.EmbeddingModel))
	}

	e.documents = make(map[string]*VectorDocument, len(sidecar.Documents))
	for _, doc := range sidecar.Documents {
		if doc == nil || doc.ID == "" {
			continue
		}
		e.documents[doc.ID] = doc
	}
	e.idMapping = make([]string, len(sidecar.IDMapping))
	for pos, id := range sidecar.IDMapping {
		if id != nil {
			e.idMapping[pos] = *id
		}
	}

	if idx, err := e.loadIndexFile(); err == nil {
		e.index = idx
		return true, nil
	} else {
		e.logger.Warn("index file unusable, rebuilding from metadata",
			zap.String("path", e.cfg.IndexPath),
			zap.Error(err))
	}
	if err := e.rebuildLocked(); err != nil {
		e.logger.Warn("persisted documents unusable, starting with a fresh index",
			zap.Error(err))
		e.documents = make(map[string]*VectorDocument)
		e.idMapping = nil
		e.index = nil
		return false, nil
	}
	return true, nil
}

// loadIndexFile decodes the binary index file and checks it against the
// loaded mapping.
func (e *Engine) loadIndexFile() (vectorIndex, error) {
	data, err := os.ReadFile(e.cfg.IndexPath)
	if err != nil {
		return nil, fmt.Errorf("reading index file: %w", err)
	}
	var snap indexSnapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decoding index file: %w", err)
	}
	idx, err := restoreIndex(&snap, e.cfg)
	if err != nil {
		return nil, err
	}
	if idx.Len() != len(e.idMapping) {
		return nil, fmt.Errorf("index holds %d vectors but mapping has %d entries",
			idx.Len(), len(e.idMapping))
	}
	return idx, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
