package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMalformedJSON is returned when a payload is not valid JSON.
var ErrMalformedJSON = errors.New("malformed json")

// fieldReader pulls typed values out of an untyped mapping, recording
// missing and mistyped fields instead of stopping at the first one.
type fieldReader struct {
	raw    map[string]any
	prefix string
	errs   *ValidationError
}

func (r fieldReader) path(name string) string { return joinPath(r.prefix, name) }

func (r fieldReader) lookup(name string) (any, bool) {
	v, ok := r.raw[name]
	if !ok {
		r.errs.add(r.path(name), "field required")
	}
	return v, ok
}

func (r fieldReader) str(name string) (string, bool) {
	v, ok := r.lookup(name)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		r.errs.add(r.path(name), "must be a string")
	}
	return s, ok
}

// trimmed reads a required string and rejects it when only whitespace remains.
func (r fieldReader) trimmed(name string) string {
	s, ok := r.str(name)
	if !ok {
		return ""
	}
	s = strings.TrimSpace(s)
	if s == "" {
		r.errs.add(r.path(name), "must not be empty")
	}
	return s
}

func (r fieldReader) array(name string) ([]any, bool) {
	v, ok := r.lookup(name)
	if !ok {
		return nil, false
	}
	arr, ok := v.([]any)
	if !ok {
		r.errs.add(r.path(name), "must be an array")
	}
	return arr, ok
}

func (r fieldReader) stringList(name string) []string {
	arr, ok := r.array(name)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for i, v := range arr {
		s, ok := v.(string)
		if !ok {
			r.errs.add(fmt.Sprintf("%s[%d]", r.path(name), i), "must be a string")
		}
		out = append(out, s)
	}
	return out
}

func (r fieldReader) object(name string) (fieldReader, bool) {
	v, ok := r.lookup(name)
	if !ok {
		return fieldReader{}, false
	}
	m, ok := v.(map[string]any)
	if !ok {
		r.errs.add(r.path(name), "must be an object")
		return fieldReader{}, false
	}
	return fieldReader{raw: m, prefix: r.path(name), errs: r.errs}, true
}

func newReader(raw map[string]any, entity string) fieldReader {
	return fieldReader{raw: raw, errs: &ValidationError{Entity: entity}}
}

// ParseStrategyInput validates and normalizes a decoded request body.
func ParseStrategyInput(raw map[string]any) (StrategyInput, error) {
	r := newReader(raw, "StrategyInput")
	in := StrategyInput{
		BrandName:      r.trimmed("brand_name"),
		Industry:       r.trimmed("industry"),
		TargetAudience: r.trimmed("target_audience"),
		Goals:          r.trimmed("goals"),
	}
	if err := r.errs.orNil(); err != nil {
		return StrategyInput{}, err
	}
	return in, nil
}

// NewStrategyInput builds an input from plain values, trimming each one.
func NewStrategyInput(brandName, industry, targetAudience, goals string) (StrategyInput, error) {
	return ParseStrategyInput(map[string]any{
		"brand_name":      brandName,
		"industry":        industry,
		"target_audience": targetAudience,
		"goals":           goals,
	})
}

func readPlatformRecommendation(r fieldReader) PlatformRecommendation {
	var rec PlatformRecommendation
	rec.Platform, _ = r.str("platform")
	rec.Rationale, _ = r.str("rationale")
	if s, ok := r.str("priority"); ok {
		p, err := ParsePriority(s)
		if err != nil {
			r.errs.add(r.path("priority"), "must be one of high, medium, low")
		}
		rec.Priority = p
	}
	return rec
}

// ParsePlatformRecommendation validates a single recommendation object.
func ParsePlatformRecommendation(raw map[string]any) (PlatformRecommendation, error) {
	r := newReader(raw, "PlatformRecommendation")
	rec := readPlatformRecommendation(r)
	checkStruct(rec, "", r.errs)
	if err := r.errs.orNil(); err != nil {
		return PlatformRecommendation{}, err
	}
	return rec, nil
}

func readStrategyOutput(r fieldReader) StrategyOutput {
	var out StrategyOutput
	out.ContentPillars = r.stringList("content_pillars")
	out.PostingSchedule, _ = r.str("posting_schedule")
	if arr, ok := r.array("platform_recommendations"); ok {
		out.PlatformRecommendations = make([]PlatformRecommendation, 0, len(arr))
		for i, v := range arr {
			path := fmt.Sprintf("%s[%d]", r.path("platform_recommendations"), i)
			m, ok := v.(map[string]any)
			if !ok {
				r.errs.add(path, "must be an object")
				out.PlatformRecommendations = append(out.PlatformRecommendations, PlatformRecommendation{})
				continue
			}
			sub := fieldReader{raw: m, prefix: path, errs: r.errs}
			out.PlatformRecommendations = append(out.PlatformRecommendations, readPlatformRecommendation(sub))
		}
	}
	out.ContentThemes = r.stringList("content_themes")
	out.EngagementTactics = r.stringList("engagement_tactics")
	out.VisualPrompts = r.stringList("visual_prompts")
	return out
}

// ParseStrategyOutput validates an agent response against every
// cardinality and enum invariant.
func ParseStrategyOutput(raw map[string]any) (StrategyOutput, error) {
	r := newReader(raw, "StrategyOutput")
	out := readStrategyOutput(r)
	checkStruct(out, "", r.errs)
	if err := r.errs.orNil(); err != nil {
		return StrategyOutput{}, err
	}
	return out, nil
}

// ParseStrategyRecord validates a submitted record. id and
// created_at are taken from raw when present and generated by d otherwise.
func ParseStrategyRecord(raw map[string]any, d Defaults) (StrategyRecord, error) {
	r := newReader(raw, "StrategyRecord")
	var rec StrategyRecord

	if _, ok := raw["id"]; ok {
		rec.ID, _ = r.str("id")
	} else {
		rec.ID = d.newID()
	}
	rec.UserID, _ = r.str("user_id")
	rec.BrandName, _ = r.str("brand_name")
	rec.Industry, _ = r.str("industry")
	rec.TargetAudience, _ = r.str("target_audience")
	rec.Goals, _ = r.str("goals")
	if sub, ok := r.object("strategy_output"); ok {
		rec.StrategyOutput = readStrategyOutput(sub)
	}
	if _, ok := raw["created_at"]; ok {
		if s, ok := r.str("created_at"); ok {
			ts, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				r.errs.add("created_at", "must be an ISO-8601 timestamp")
			}
			rec.CreatedAt = ts.UTC()
		}
	} else {
		rec.CreatedAt = d.now()
	}

	checkStruct(rec, "", r.errs)
	if err := r.errs.orNil(); err != nil {
		return StrategyRecord{}, err
	}
	return rec, nil
}

func decodeObject(data []byte, entity string) (map[string]any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		errs := &ValidationError{Entity: entity}
		errs.add("body", "must be an object")
		return nil, errs
	}
	return m, nil
}

// DecodeStrategyInput parses a JSON request body.
func DecodeStrategyInput(data []byte) (StrategyInput, error) {
	m, err := decodeObject(data, "StrategyInput")
	if err != nil {
		return StrategyInput{}, err
	}
	return ParseStrategyInput(m)
}

// DecodeStrategyOutput parses a JSON agent response.
func DecodeStrategyOutput(data []byte) (StrategyOutput, error) {
	m, err := decodeObject(data, "StrategyOutput")
	if err != nil {
		return StrategyOutput{}, err
	}
	return ParseStrategyOutput(m)
}
