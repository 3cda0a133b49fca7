// Package modelstore implements §6.5 model package management: ZIP
// install/uninstall into a models directory, model_config.json parsing,
// and a sqlite-backed catalog of installed models.
package modelstore

const (
	ModelConfigFile = "model_config.json"
	ModelHefFile    = "model.hef"

	defaultFunctionName  = "yolov8"
	defaultPostProcessSo = "/usr/lib/hailo-post-processes/libyolo_hailortpp_post.so"
)

// Config is the model_config.json schema inside a model's ZIP package.
type Config struct {
	ModelID       string   `json:"id"`
	Name          string   `json:"name"`
	Version       string   `json:"version"`
	Date          string   `json:"date"`
	Task          string   `json:"task"`
	FunctionName  string   `json:"function_name"`
	PostProcessSo string   `json:"post_process_so"`
	Labels        []string `json:"labels"`
	NumKeypoints  int      `json:"num_keypoints"`
	Description   string   `json:"description"`
}

// normalize fills in the same defaults ModelRegistry::UploadModel applies:
// "det" task, "yolov8" post-process function, the stock Hailo post-process
// library path, and name falling back to the model id.
func (c *Config) normalize() {
	if c.Name == "" {
		c.Name = c.ModelID
	}
	if c.Task == "" {
		c.Task = "det"
	}
	if c.FunctionName == "" {
		c.FunctionName = defaultFunctionName
	}
	if c.PostProcessSo == "" {
		c.PostProcessSo = defaultPostProcessSo
	}
}

func (c *Config) IsPoseModel() bool { return c.Task == "pose" }
