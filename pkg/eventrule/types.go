// Package eventrule implements the declarative rule-tree event compositor:
// ROI / Line / AngleViolation evaluation against detections, plus parse and
// terminal-rule bookkeeping for the And/Or/Speed/HM/EnEx/Alarm rule types
// that this core carries through the tree but does not yet evaluate (§4.4,
// §9).
package eventrule

import "github.com/ljj727/edge-core-hailo/pkg/nn"

// Type is one of the ten rule kinds from the event-rule payload (§6.3).
type Type int

const (
	TypeUnknown Type = iota
	TypeROI
	TypeLine
	TypeAngleViolation
	TypeAnd
	TypeOr
	TypeFilter
	TypeSpeed
	TypeHM
	TypeEnEx
	TypeAlarm
)

func ParseType(s string) Type {
	switch s {
	case "ROI":
		return TypeROI
	case "Line":
		return TypeLine
	case "AngleViolation":
		return TypeAngleViolation
	case "And":
		return TypeAnd
	case "Or":
		return TypeOr
	case "Filter":
		return TypeFilter
	case "Speed":
		return TypeSpeed
	case "HM":
		return TypeHM
	case "EnEx":
		return TypeEnEx
	case "Alarm":
		return TypeAlarm
	default:
		return TypeUnknown
	}
}

// IsComplex reports whether t is one of the rule kinds the core parses and
// stores but does not evaluate — always-SAFE pass-throughs (§4.4, §9).
func (t Type) IsComplex() bool {
	switch t {
	case TypeAnd, TypeOr, TypeSpeed, TypeHM, TypeEnEx, TypeAlarm:
		return true
	default:
		return false
	}
}

// DetectionPoint selects which corner/edge/centre of a detection's bbox is
// used as its reference point for ROI evaluation.
type DetectionPoint int

const (
	DPCenterBottom DetectionPoint = iota // default
	DPLeftTop
	DPCenterTop
	DPRightTop
	DPLeftCenter
	DPCenter
	DPRightCenter
	DPLeftBottom
	DPRightBottom
)

func ParseDetectionPoint(s string) DetectionPoint {
	switch s {
	case "l:t":
		return DPLeftTop
	case "c:t":
		return DPCenterTop
	case "r:t":
		return DPRightTop
	case "l:c":
		return DPLeftCenter
	case "c:c":
		return DPCenter
	case "r:c":
		return DPRightCenter
	case "l:b":
		return DPLeftBottom
	case "r:b":
		return DPRightBottom
	default:
		return DPCenterBottom
	}
}

// Status is the three-level severity a Line or AngleViolation rule reports.
type Status int

const (
	StatusSafe Status = 0
	StatusWarning Status = 1
	StatusDanger Status = 2
)

// Rule is one node of the rule tree, keyed by ID in the Compositor's map —
// not a pointer-linked tree (§9 design note).
type Rule struct {
	ID              string
	Name            string
	Type            Type
	ParentID        string
	Points          []nn.Point2D // normalised [0,1]
	Targets         []string     // lowercased; empty means match-any ("ALL")
	Timeout         float64
	DetectionPoint  DetectionPoint
	Direction       nn.Direction
	KeypointIndices []int
	WarningDistance float32
	AngleThreshold  float32
	InOrder         bool
	Ncond           string
	Turn            int
	RegenInterval   float64
	Ext             string

	Children []string
}

// MatchesAnyLabel reports whether r's target filter accepts className
// (case-insensitive); an empty target list means "match any".
func (r *Rule) MatchesAnyLabel(className string) bool {
	if len(r.Targets) == 0 {
		return true
	}
	for _, t := range r.Targets {
		if t == className {
			return true
		}
	}
	return false
}

// RuleResult is the outcome of evaluating one Line, AngleViolation, or
// complex rule over a frame's detections.
type RuleResult struct {
	RuleID string   `json:"rule_id"`
	Status Status   `json:"status"`
	Labels []string `json:"labels,omitempty"` // class names of detections that contributed Status > 0
}
