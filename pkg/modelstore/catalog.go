package modelstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
	"gorm.io/gorm"

	"github.com/ljj727/edge-core-hailo/pkg/apperr"
)

// ModelRecord is the gorm-mapped row persisted for one installed model,
// mirroring ModelInfo from original_source/include/model_registry.h.
type ModelRecord struct {
	ModelID       string `gorm:"primaryKey"`
	Name          string
	Version       string
	Date          string
	Task          string
	FunctionName  string
	PostProcessSo string
	LabelsJSON    string `gorm:"column:labels"`
	NumKeypoints  int
	Description   string
	HefPath       string
	UsageCount    int
	RegisteredAt  dbh.IntTime
}

// TableName maps ModelRecord onto the "model" table created by Migrations.
func (ModelRecord) TableName() string { return "model" }

func (r *ModelRecord) Labels() []string {
	var labels []string
	json.Unmarshal([]byte(r.LabelsJSON), &labels)
	return labels
}

func (r *ModelRecord) IsPoseModel() bool { return r.Task == "pose" }

// Catalog is the sqlite-backed model catalog (§6.5: list/describe
// installed models, track reference counts), opened the way the teacher's
// ConfigDB opens its own sqlite store.
type Catalog struct {
	Log logs.Log
	DB  *gorm.DB
}

func NewCatalog(log logs.Log, dbFilename string) (*Catalog, error) {
	os.MkdirAll(filepath.Dir(dbFilename), 0777)
	db, err := dbh.OpenDB(log, dbh.MakeSqliteConfig(dbFilename), Migrations(log), 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open model catalog %v: %w", dbFilename, err)
	}
	return &Catalog{Log: log, DB: db}, nil
}

// Insert records a newly-installed model. Returns apperr.Conflict if the
// model_id already exists (callers must Remove first when overwriting).
func (c *Catalog) Insert(cfg Config, hefPath string) error {
	labels, _ := json.Marshal(cfg.Labels)
	rec := ModelRecord{
		ModelID:       cfg.ModelID,
		Name:          cfg.Name,
		Version:       cfg.Version,
		Date:          cfg.Date,
		Task:          cfg.Task,
		FunctionName:  cfg.FunctionName,
		PostProcessSo: cfg.PostProcessSo,
		LabelsJSON:    string(labels),
		NumKeypoints:  cfg.NumKeypoints,
		Description:   cfg.Description,
		HefPath:       hefPath,
		RegisteredAt:  dbh.MakeIntTime(time.Now()),
	}
	if err := c.DB.Create(&rec).Error; err != nil {
		return apperr.Wrap(apperr.Conflict, err)
	}
	return nil
}

// Get returns the record for modelID, or apperr.NotFound.
func (c *Catalog) Get(modelID string) (*ModelRecord, error) {
	var rec ModelRecord
	err := c.DB.First(&rec, "model_id = ?", modelID).Error
	if err != nil {
		return nil, apperr.New(apperr.NotFound, "model "+modelID+" not found")
	}
	return &rec, nil
}

// List returns every installed model, most recently registered first.
func (c *Catalog) List() ([]ModelRecord, error) {
	var recs []ModelRecord
	if err := c.DB.Order("registered_at DESC").Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

// Delete removes modelID's catalog entry. Returns apperr.Conflict if the
// model is still attached to a running stream (usage_count > 0), matching
// ModelRegistry::UploadModel's in-use check.
func (c *Catalog) Delete(modelID string) error {
	rec, err := c.Get(modelID)
	if err != nil {
		return err
	}
	if rec.UsageCount > 0 {
		return apperr.New(apperr.Conflict, fmt.Sprintf("model %s is in use by %d stream(s)", modelID, rec.UsageCount))
	}
	return c.DB.Delete(&ModelRecord{}, "model_id = ?", modelID).Error
}

// IncrementUsage/DecrementUsage track model_handle reference counts the way
// spec.md §4.6 describes ("Reference counts on model handles are
// incremented when a worker attaches and decremented on detach").
func (c *Catalog) IncrementUsage(modelID string) error {
	return c.DB.Model(&ModelRecord{}).Where("model_id = ?", modelID).
		UpdateColumn("usage_count", gorm.Expr("usage_count + 1")).Error
}

func (c *Catalog) DecrementUsage(modelID string) error {
	return c.DB.Model(&ModelRecord{}).Where("model_id = ? AND usage_count > 0", modelID).
		UpdateColumn("usage_count", gorm.Expr("usage_count - 1")).Error
}
