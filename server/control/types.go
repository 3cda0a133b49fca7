package control

import "github.com/ljj727/edge-core-hailo/pkg/stream"

// errorJSON is the body of every non-2xx control-surface response.
type errorJSON struct {
	Error string `json:"error"`
}

// streamConfigJSON is the §6.1 add_stream/update_inference "config" object.
type streamConfigJSON struct {
	TargetWidth         int     `json:"target_w"`
	TargetHeight        int     `json:"target_h"`
	TargetFPS           int     `json:"target_fps"`
	ConfidenceThreshold float32 `json:"confidence_threshold"`
	PublishImages       bool    `json:"publish_images"`
	PublishOverlay      bool    `json:"publish_overlay"`
	JPEGQuality         int     `json:"jpeg_quality"`
	BatchSize           int     `json:"batch_size"`
}

// addStreamRequest is the §6.1 add_stream payload.
type addStreamRequest struct {
	StreamID  string            `json:"stream_id"`
	SourceURL string            `json:"source_url"`
	ModelID   string            `json:"model_id,omitempty"`
	Config    *streamConfigJSON `json:"config,omitempty"`
}

// updateInferenceRequest is the §6.1 update_inference payload: every field
// besides stream_id is optional, leaving the existing value untouched.
type updateInferenceRequest struct {
	SourceURL string            `json:"source_url,omitempty"`
	ModelID   string            `json:"model_id,omitempty"`
	Config    *streamConfigJSON `json:"config,omitempty"`
}

// streamStatusJSON is returned by get_stream/list_streams/add_stream,
// carrying the §6.1 status-code enum as a string.
type streamStatusJSON struct {
	StreamID  string       `json:"stream_id"`
	SourceURL string       `json:"source_url"`
	ModelID   string       `json:"model_id,omitempty"`
	State     string       `json:"state"`
	Width     int          `json:"width"`
	Height    int          `json:"height"`
	Bus       *busStatusJSON `json:"bus,omitempty"`
}

// busStatusJSON surfaces bus.NatsBus's connection state and counters on
// get_stream/list_streams, the supplemented NatsStats carryover.
type busStatusJSON struct {
	State             string `json:"state"`
	MessagesPublished uint64 `json:"messages_published"`
	ReconnectAttempts int32  `json:"reconnect_attempts"`
	LastError         string `json:"last_error,omitempty"`
}

// installModelResponse is returned by install_model.
type installModelResponse struct {
	ModelID string `json:"model_id"`
}

// modelInfoJSON is one entry of list_models.
type modelInfoJSON struct {
	ModelID      string   `json:"model_id"`
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Task         string   `json:"task"`
	NumKeypoints int      `json:"num_keypoints"`
	Labels       []string `json:"labels"`
	UsageCount   int      `json:"usage_count"`
}

// updateEventSettingsResponse carries the terminal-rule id list §4.4's
// Rule-set update returns.
type updateEventSettingsResponse struct {
	TerminalRuleIDs []string `json:"terminal_rule_ids"`
}

func defaultStreamConfig(def streamConfigJSON, in *streamConfigJSON) stream.Config {
	cfg := streamConfigJSON{
		TargetWidth:         def.TargetWidth,
		TargetHeight:        def.TargetHeight,
		TargetFPS:           def.TargetFPS,
		ConfidenceThreshold: def.ConfidenceThreshold,
		PublishImages:       def.PublishImages,
		PublishOverlay:      def.PublishOverlay,
		JPEGQuality:         def.JPEGQuality,
		BatchSize:           def.BatchSize,
	}
	if in != nil {
		if in.TargetWidth > 0 {
			cfg.TargetWidth = in.TargetWidth
		}
		if in.TargetHeight > 0 {
			cfg.TargetHeight = in.TargetHeight
		}
		if in.TargetFPS > 0 {
			cfg.TargetFPS = in.TargetFPS
		}
		if in.ConfidenceThreshold > 0 {
			cfg.ConfidenceThreshold = in.ConfidenceThreshold
		}
		if in.JPEGQuality > 0 {
			cfg.JPEGQuality = in.JPEGQuality
		}
		if in.BatchSize > 0 {
			cfg.BatchSize = in.BatchSize
		}
		cfg.PublishImages = in.PublishImages
		cfg.PublishOverlay = in.PublishOverlay
	}
	return stream.Config{
		TargetWidth:    cfg.TargetWidth,
		TargetHeight:   cfg.TargetHeight,
		BatchSize:      cfg.BatchSize,
		PublishImages:  cfg.PublishImages,
		PublishOverlay: cfg.PublishOverlay,
		JPEGQuality:    cfg.JPEGQuality,
		ConfThreshold:  cfg.ConfidenceThreshold,
	}
}
