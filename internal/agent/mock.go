package agent

import (
	"context"
	"time"

	"example.com/strategist/internal/domain"
)

// Mock returns the same B2B SaaS strategy for every brief after Delay.
// It lets the HTTP surface run without a model provider.
type Mock struct {
	Delay time.Duration
}

func NewMock(delay time.Duration) *Mock { return &Mock{Delay: delay} }

func (m *Mock) GenerateStrategy(ctx context.Context, _ domain.StrategyInput) (domain.StrategyOutput, error) {
	if m.Delay > 0 {
		t := time.NewTimer(m.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return domain.StrategyOutput{}, &Error{Provider: "mock", Err: ctx.Err()}
		case <-t.C:
		}
	}
	return mockStrategy(), nil
}

func mockStrategy() domain.StrategyOutput {
	return domain.StrategyOutput{
		ContentPillars: []string{
			"Thought Leadership & Industry Insights",
			"Product Innovation & Features",
			"Customer Success Stories",
			"Educational Content & Best Practices",
			"Company Culture & Behind-the-Scenes",
		},
		PostingSchedule: "Post 3-4 times per week on LinkedIn and Twitter. " +
			"Optimal times: Tuesday-Thursday, 9-11 AM and 2-4 PM EST. " +
			"Reserve Fridays for community engagement and responding to comments.",
		PlatformRecommendations: []domain.PlatformRecommendation{
			{
				Platform: "LinkedIn",
				Rationale: "Primary platform for B2B decision makers. " +
					"Highest engagement rates for professional content and thought leadership. " +
					"Ideal for reaching executives and managers in target industries.",
				Priority: domain.PriorityHigh,
			},
			{
				Platform: "Twitter",
				Rationale: "Real-time engagement with tech community and industry influencers. " +
					"Great for sharing quick insights, participating in trending conversations, " +
					"and building brand personality.",
				Priority: domain.PriorityHigh,
			},
			{
				Platform: "YouTube",
				Rationale: "Long-form content for product demos, tutorials, and webinar recordings. " +
					"Strong SEO benefits and evergreen content value. " +
					"Secondary platform for deeper engagement.",
				Priority: domain.PriorityMedium,
			},
		},
		ContentThemes: []string{
			"Industry trend analysis and market insights",
			"Product feature deep-dives and use case tutorials",
			"Customer success stories and case studies",
			"Team spotlights and company culture highlights",
			"Tips and best practices for target audience pain points",
			"Live Q&A sessions and webinar announcements",
			"Infographics on industry statistics and benchmarks",
		},
		EngagementTactics: []string{
			"Host monthly LinkedIn Live Q&A sessions with product experts",
			"Respond to all comments and mentions within 2 hours during business hours",
			"Create polls and surveys to gather audience insights and spark conversations",
			"Share and comment on customer posts that mention the brand",
			"Participate in relevant industry hashtags and Twitter chats weekly",
			"Feature user-generated content and customer testimonials regularly",
		},
		VisualPrompts: []string{
			"Professional office workspace with diverse team of 3-4 people collaborating " +
				"around a modern conference table with laptops and digital screens, " +
				"bright natural lighting, clean contemporary design, conveying innovation " +
				"and teamwork in a B2B tech environment",
			"Modern SaaS dashboard interface displayed on a sleek laptop screen, " +
				"showing colorful data visualizations and analytics charts, " +
				"minimalist desk setup with coffee cup and notepad, " +
				"professional yet approachable aesthetic for product showcase content",
			"Happy business professional smiling while looking at laptop screen, " +
				"office background slightly blurred, natural expression of success and satisfaction, " +
				"suitable for customer testimonial and success story content",
		},
	}
}
