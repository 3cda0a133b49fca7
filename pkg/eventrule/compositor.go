package eventrule

import (
	"sync"

	"github.com/ljj727/edge-core-hailo/pkg/nn"
)

// Compositor holds one stream's active rule set, terminal-rule cache, and
// the single lock serialising reads and updates (§4.4 Concurrency).
type Compositor struct {
	mu        sync.RWMutex
	rules     map[string]*Rule
	terminals []string
}

func NewCompositor() *Compositor {
	return &Compositor{rules: map[string]*Rule{}}
}

// UpdateSettings replaces the entire rule set atomically and returns the
// new terminal-rule id list (§4.4 Rule-set update).
func (c *Compositor) UpdateSettings(data []byte) ([]string, error) {
	rules, err := ParseSettings(data)
	if err != nil {
		return nil, err
	}
	BuildTree(rules)
	terminals := FindTerminals(rules)

	c.mu.Lock()
	c.rules = rules
	c.terminals = terminals
	c.mu.Unlock()

	return terminals, nil
}

// ClearSettings empties the rule set.
func (c *Compositor) ClearSettings() {
	c.mu.Lock()
	c.rules = map[string]*Rule{}
	c.terminals = nil
	c.mu.Unlock()
}

// GetSettingCount returns the number of active rules.
func (c *Compositor) GetSettingCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rules)
}

// GetSetting returns a copy of the rule identified by id, if present.
func (c *Compositor) GetSetting(id string) (Rule, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.rules[id]
	if !ok {
		return Rule{}, false
	}
	return *r, true
}

// Rules returns a snapshot of every active rule, used by the snapshot
// overlay to draw ROI polygons and line segments (§"supplemented features").
func (c *Compositor) Rules() []Rule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Rule, 0, len(c.rules))
	for _, r := range c.rules {
		out = append(out, *r)
	}
	return out
}

// Terminals returns the cached terminal-rule id list.
func (c *Compositor) Terminals() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.terminals))
	copy(out, c.terminals)
	return out
}

// Evaluate runs every active rule against detections for one frame of size
// frameW x frameH. ROI rules tag detections in place (EventSettingIDs);
// Line, AngleViolation, and the complex pass-through rule types each
// produce a RuleResult, returned keyed by rule id. With no active rules or
// no detections it returns nil, so no rule results are produced for that
// frame. The lock is held for the duration of this single frame's
// evaluation only.
func (c *Compositor) Evaluate(detections []nn.Detection, frameW, frameH int) map[string]RuleResult {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.rules) == 0 || len(detections) == 0 {
		return nil
	}

	results := make(map[string]RuleResult, len(c.rules))
	for id, r := range c.rules {
		switch r.Type {
		case TypeROI:
			for i := range detections {
				EvaluateROI(r, &detections[i], frameW, frameH)
			}
		case TypeLine:
			results[id] = EvaluateLine(r, detections)
		case TypeAngleViolation:
			results[id] = EvaluateAngleViolation(r, detections)
		default:
			if r.Type.IsComplex() {
				results[id] = RuleResult{RuleID: id, Status: StatusSafe}
			}
			// Filter and Unknown rules contribute nothing — they exist only
			// to shape the tree for terminal-rule computation.
		}
	}
	return results
}
