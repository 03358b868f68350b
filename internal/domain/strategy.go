package domain

import (
	"fmt"
	"slices"
	"time"
)

// Cardinality bounds of StrategyOutput, as expected by the downstream
// copywriter and designer stages.
const (
	MinContentPillars          = 3
	MaxContentPillars          = 6
	MinPlatformRecommendations = 2
	MinContentThemes           = 5
	MinEngagementTactics       = 4
	MinVisualPrompts           = 2
	MaxVisualPrompts           = 3
)

// StrategyInput is the brand brief submitted for strategy generation.
// Values are stored trimmed.
type StrategyInput struct {
	BrandName      string `json:"brand_name" validate:"required"`
	Industry       string `json:"industry" validate:"required"`
	TargetAudience string `json:"target_audience" validate:"required"`
	Goals          string `json:"goals" validate:"required"`
}

// Priority ranks a platform recommendation. The zero value is not a valid priority.
type Priority uint8

const (
	priorityUnknown Priority = iota
	PriorityHigh
	PriorityMedium
	PriorityLow
)

var priorityNames = [...]string{
	PriorityHigh:   "high",
	PriorityMedium: "medium",
	PriorityLow:    "low",
}

// ParsePriority matches s exactly against high, medium and low.
func ParsePriority(s string) (Priority, error) {
	for p := PriorityHigh; p <= PriorityLow; p++ {
		if priorityNames[p] == s {
			return p, nil
		}
	}
	return priorityUnknown, fmt.Errorf("invalid priority %q", s)
}

func (p Priority) Valid() bool { return p >= PriorityHigh && p <= PriorityLow }

func (p Priority) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Priority(%d)", uint8(p))
	}
	return priorityNames[p]
}

func (p Priority) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid priority %d", uint8(p))
	}
	return []byte(priorityNames[p]), nil
}

func (p *Priority) UnmarshalText(b []byte) error {
	v, err := ParsePriority(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// PlatformRecommendation suggests a social platform with its rationale.
type PlatformRecommendation struct {
	Platform  string   `json:"platform"`
	Rationale string   `json:"rationale"`
	Priority  Priority `json:"priority" validate:"required"`
}

// StrategyOutput is the structured strategy produced by an agent.
type StrategyOutput struct {
	ContentPillars          []string                 `json:"content_pillars" validate:"min=3,max=6"`
	PostingSchedule         string                   `json:"posting_schedule" validate:"required"`
	PlatformRecommendations []PlatformRecommendation `json:"platform_recommendations" validate:"min=2,dive"`
	ContentThemes           []string                 `json:"content_themes" validate:"min=5"`
	EngagementTactics       []string                 `json:"engagement_tactics" validate:"min=4"`
	VisualPrompts           []string                 `json:"visual_prompts" validate:"min=2,max=3"`
}

// Clone returns a deep copy so that the result shares no slices with o.
func (o StrategyOutput) Clone() StrategyOutput {
	return StrategyOutput{
		ContentPillars:          slices.Clone(o.ContentPillars),
		PostingSchedule:         o.PostingSchedule,
		PlatformRecommendations: slices.Clone(o.PlatformRecommendations),
		ContentThemes:           slices.Clone(o.ContentThemes),
		EngagementTactics:       slices.Clone(o.EngagementTactics),
		VisualPrompts:           slices.Clone(o.VisualPrompts),
	}
}

// StrategyRecord is the persistable result of one generation: the owner,
// the flattened brief, the output and creation metadata.
// ID and CreatedAt are fixed at construction.
type StrategyRecord struct {
	ID             string         `json:"id" validate:"required"`
	UserID         string         `json:"user_id" validate:"required"`
	BrandName      string         `json:"brand_name"`
	Industry       string         `json:"industry"`
	TargetAudience string         `json:"target_audience"`
	Goals          string         `json:"goals"`
	StrategyOutput StrategyOutput `json:"strategy_output"`
	CreatedAt      time.Time      `json:"created_at" validate:"required"`
}

// Input returns the brief the record was generated from.
func (r StrategyRecord) Input() StrategyInput {
	return StrategyInput{
		BrandName:      r.BrandName,
		Industry:       r.Industry,
		TargetAudience: r.TargetAudience,
		Goals:          r.Goals,
	}
}
