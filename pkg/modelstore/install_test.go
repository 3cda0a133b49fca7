package modelstore

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildTestZip(t *testing.T, files map[string][]byte) []byte {
	buf := &bytes.Buffer{}
	w := zip.NewWriter(buf)
	for name, data := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestParseZipExtractsConfigAndFiles(t *testing.T) {
	zipData := buildTestZip(t, map[string][]byte{
		ModelConfigFile: []byte(`{"id":"yolov8n","labels":["person","car"]}`),
		ModelHefFile:    []byte("fake hef bytes"),
	})

	cfg, files, err := parseZip(zipData)
	require.NoError(t, err)
	require.Equal(t, "yolov8n", cfg.ModelID)
	require.Equal(t, []string{"person", "car"}, cfg.Labels)
	require.Equal(t, []byte("fake hef bytes"), files[ModelHefFile])
}

func TestParseZipMissingConfigIsError(t *testing.T) {
	zipData := buildTestZip(t, map[string][]byte{ModelHefFile: []byte("x")})
	_, _, err := parseZip(zipData)
	require.Error(t, err)
}

func TestParseZipInvalidArchiveIsError(t *testing.T) {
	_, _, err := parseZip([]byte("not a zip"))
	require.Error(t, err)
}

func TestConfigNormalizeFillsDefaults(t *testing.T) {
	cfg := Config{ModelID: "yolov8n"}
	cfg.normalize()
	require.Equal(t, "yolov8n", cfg.Name)
	require.Equal(t, "det", cfg.Task)
	require.Equal(t, "yolov8", cfg.FunctionName)
	require.NotEmpty(t, cfg.PostProcessSo)
	require.False(t, cfg.IsPoseModel())
}

func TestConfigNormalizePreservesExplicitPoseTask(t *testing.T) {
	cfg := Config{ModelID: "yolov8n-pose", Task: "pose"}
	cfg.normalize()
	require.True(t, cfg.IsPoseModel())
}
