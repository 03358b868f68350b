package agent

import (
	"fmt"
	"strings"

	"example.com/strategist/internal/domain"
)

var systemPrompt = fmt.Sprintf(`You are an expert social media strategist.
Given a brand brief, produce a social media strategy as a single JSON object and nothing else.

The object must have exactly these fields:
- "content_pillars": array of %d to %d strings, core content themes aligned with the brand identity.
- "posting_schedule": string, recommended posting frequency and optimal timing.
- "platform_recommendations": array of at least %d objects, each with "platform" (string),
  "rationale" (string) and "priority" (one of "high", "medium", "low").
- "content_themes": array of at least %d strings, specific content ideas aligned with the pillars.
- "engagement_tactics": array of at least %d strings, audience interaction and community tactics.
- "visual_prompts": array of %d to %d strings, detailed image generation prompts for a designer
  that match the content themes.`,
	domain.MinContentPillars, domain.MaxContentPillars,
	domain.MinPlatformRecommendations,
	domain.MinContentThemes,
	domain.MinEngagementTactics,
	domain.MinVisualPrompts, domain.MaxVisualPrompts,
)

func userPrompt(in domain.StrategyInput) string {
	var b strings.Builder
	b.WriteString("Create a social media strategy for this brand.\n\n")
	fmt.Fprintf(&b, "Brand name: %s\n", in.BrandName)
	fmt.Fprintf(&b, "Industry: %s\n", in.Industry)
	fmt.Fprintf(&b, "Target audience: %s\n", in.TargetAudience)
	fmt.Fprintf(&b, "Goals: %s\n", in.Goals)
	return b.String()
}

// extractJSON strips markdown fences and any prose around the outermost object.
func extractJSON(text string) string {
	s := strings.TrimSpace(text)
	if rest, ok := strings.CutPrefix(s, "```"); ok {
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(rest), "```"))
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
