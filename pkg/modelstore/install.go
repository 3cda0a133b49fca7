package modelstore

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cyclopcam/logs"

	"github.com/ljj727/edge-core-hailo/pkg/apperr"
)

// Store manages the models directory on disk and its sqlite Catalog,
// mirroring ModelRegistry's Initialize/UploadModel/RemoveModel from
// original_source/src/model_registry.cpp — the ZIP-extraction step itself
// is the one place this repo intentionally reaches for stdlib archive/zip
// rather than a third-party library (see DESIGN.md).
type Store struct {
	log       logs.Log
	modelsDir string
	catalog   *Catalog
}

func NewStore(log logs.Log, modelsDir string, catalog *Catalog) *Store {
	return &Store{log: log, modelsDir: modelsDir, catalog: catalog}
}

// Install extracts zipData into modelsDir/<model_id>, parses
// model_config.json, and records the model in the catalog. overwrite
// governs whether an existing model_id may be replaced (it must have
// usage_count 0).
func (s *Store) Install(zipData []byte, overwrite bool) (string, error) {
	cfg, files, err := parseZip(zipData)
	if err != nil {
		return "", apperr.New(apperr.InvalidInput, err.Error())
	}
	if cfg.ModelID == "" {
		return "", apperr.New(apperr.InvalidInput, "model_config.json missing id")
	}
	cfg.normalize()

	if existing, err := s.catalog.Get(cfg.ModelID); err == nil {
		if !overwrite {
			return "", apperr.New(apperr.Conflict, "model '"+cfg.ModelID+"' already exists")
		}
		if existing.UsageCount > 0 {
			return "", apperr.New(apperr.Conflict, fmt.Sprintf("model '%s' is in use by %d stream(s)", cfg.ModelID, existing.UsageCount))
		}
		if err := os.RemoveAll(s.modelDir(cfg.ModelID)); err != nil {
			return "", fmt.Errorf("failed to remove existing model: %w", err)
		}
		if err := s.catalog.Delete(cfg.ModelID); err != nil {
			return "", err
		}
	}

	modelDir := s.modelDir(cfg.ModelID)
	if err := os.MkdirAll(modelDir, 0777); err != nil {
		return "", fmt.Errorf("failed to create model directory: %w", err)
	}
	for name, data := range files {
		dest := filepath.Join(modelDir, name)
		if err := os.MkdirAll(filepath.Dir(dest), 0777); err != nil {
			return "", err
		}
		if err := os.WriteFile(dest, data, 0644); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", name, err)
		}
	}

	hefPath := filepath.Join(modelDir, ModelHefFile)
	if _, err := os.Stat(hefPath); err != nil {
		os.RemoveAll(modelDir)
		return "", apperr.New(apperr.InvalidInput, "model package missing "+ModelHefFile)
	}

	if err := s.catalog.Insert(*cfg, hefPath); err != nil {
		os.RemoveAll(modelDir)
		return "", err
	}
	return cfg.ModelID, nil
}

// Uninstall removes a model's catalog entry and its on-disk package.
// Returns apperr.Conflict if the model is still attached to a stream.
func (s *Store) Uninstall(modelID string) error {
	if err := s.catalog.Delete(modelID); err != nil {
		return err
	}
	return os.RemoveAll(s.modelDir(modelID))
}

func (s *Store) modelDir(modelID string) string {
	return filepath.Join(s.modelsDir, modelID)
}

// parseZip extracts every file from zipData into an in-memory map and
// decodes model_config.json from it.
func parseZip(zipData []byte) (*Config, map[string][]byte, error) {
	r, err := zip.NewReader(bytes.NewReader(zipData), int64(len(zipData)))
	if err != nil {
		return nil, nil, fmt.Errorf("invalid model package: %w", err)
	}

	files := map[string][]byte{}
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open %s in package: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read %s in package: %w", f.Name, err)
		}
		files[filepath.Base(f.Name)] = data
	}

	raw, ok := files[ModelConfigFile]
	if !ok {
		return nil, nil, fmt.Errorf("model package missing %s", ModelConfigFile)
	}
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid %s: %w", ModelConfigFile, err)
	}
	return &cfg, files, nil
}
