package eventrule

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ljj727/edge-core-hailo/pkg/apperr"
	"github.com/ljj727/edge-core-hailo/pkg/nn"
)

// rawEnvelope mirrors the wire JSON shape of §6.3 before conversion to Rule.
type rawEnvelope struct {
	Version string    `json:"version"`
	Configs []rawRule `json:"configs"`
}

type rawRule struct {
	EventSettingID   string            `json:"eventSettingId"`
	EventSettingName string            `json:"eventSettingName"`
	EventType        string            `json:"eventType"`
	ParentID         string            `json:"parentId"`
	Points           [][]float32       `json:"points"`
	Targets          json.RawMessage   `json:"targets"`
	Timeout          float64           `json:"timeout"`
	DetectionPoint   string            `json:"detectionPoint"`
	Direction        string            `json:"direction"`
	Keypoints        []int             `json:"keypoints"`
	WarningDistance  float32           `json:"warningDistance"`
	AngleThreshold   float32           `json:"angleThreshold"`
	InOrder          bool              `json:"inOrder"`
	Ncond            string            `json:"ncond"`
	Turn             int               `json:"turn"`
	RegenInterval    float64           `json:"regenInterval"`
	Ext              string            `json:"ext"`
}

// ParseSettings decodes the §6.3 JSON envelope into a map of rules keyed by
// id, skipping any config object missing eventSettingId (§4.4 step 1).
func ParseSettings(data []byte) (map[string]*Rule, error) {
	var env rawEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, apperr.Wrap(apperr.InvalidInput, fmt.Errorf("parse event settings: %w", err))
	}
	if env.Configs == nil {
		return nil, apperr.New(apperr.InvalidInput, "event settings: missing configs array")
	}

	rules := map[string]*Rule{}
	for _, rr := range env.Configs {
		if rr.EventSettingID == "" {
			continue
		}
		r := &Rule{
			ID:              rr.EventSettingID,
			Name:            rr.EventSettingName,
			Type:            ParseType(rr.EventType),
			ParentID:        rr.ParentID,
			Timeout:         rr.Timeout,
			DetectionPoint:  ParseDetectionPoint(rr.DetectionPoint),
			Direction:       nn.ParseDirection(strings.ToLower(rr.Direction)),
			KeypointIndices: rr.Keypoints,
			WarningDistance: rr.WarningDistance,
			AngleThreshold:  rr.AngleThreshold,
			InOrder:         rr.InOrder,
			Ncond:           rr.Ncond,
			Turn:            rr.Turn,
			RegenInterval:   rr.RegenInterval,
			Ext:             rr.Ext,
		}
		for _, p := range rr.Points {
			if len(p) >= 2 {
				r.Points = append(r.Points, nn.Point2D{X: p[0], Y: p[1]})
			}
		}
		r.Targets = parseTargets(rr.Targets)
		rules[r.ID] = r
	}
	return rules, nil
}

// parseTargets handles the three shapes §6.3 allows: a bare string ("ALL"
// or a single label), an array of labels, or ["ALL"]. "ALL" (any case)
// means match-any, represented as an empty Targets slice.
func parseTargets(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if strings.EqualFold(single, "ALL") || single == "" {
			return nil
		}
		return []string{strings.ToLower(single)}
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, l := range list {
			if strings.EqualFold(l, "ALL") {
				return nil
			}
			out = append(out, strings.ToLower(l))
		}
		return out
	}

	return nil
}

// BuildTree links each rule to its parent's Children slice.
func BuildTree(rules map[string]*Rule) {
	for id, r := range rules {
		if r.ParentID == "" {
			continue
		}
		if parent, ok := rules[r.ParentID]; ok {
			parent.Children = append(parent.Children, id)
		}
	}
}

// FindTerminals returns the ids of every rule with no children whose type
// is not Filter or HM (§4.4 step 4).
func FindTerminals(rules map[string]*Rule) []string {
	var terminals []string
	for id, r := range rules {
		if len(r.Children) == 0 && r.Type != TypeFilter && r.Type != TypeHM {
			terminals = append(terminals, id)
		}
	}
	return terminals
}
