package llm

import "github.com/Shodexco/aiproductmanager/internal/domain"

// cannedResponses are the deterministic per-stage outputs. They carry the
// placeholder tokens that Substitute fills from the prompt's domain.
var cannedResponses = map[domain.Stage]string{
	domain.StageStrategist: `## Strategic Analysis: [Product]

### Problem Statement
People working on [problem domain] juggle scattered notes, spreadsheets and reminders. They lose track of
progress and give up before the habit sticks. [Product] gives them one place for [main use case].

### Target Users
- Primary: individuals who want a simple, reliable way to manage each [item] on their own.
- Secondary: coaches and small groups who want to share [item] plans with others.

### Value Proposition
Capture a [item] in seconds, see progress at a glance and get nudged at the right moment.

### Key Assumptions
- Users already own a smartphone and prefer mobile-first experiences.
- Most sessions are shorter than two minutes.
- A free tier is required for adoption; premium insights can be paid.

### Clarifying Questions
1. Who is the very first user you want to delight with [Product]?
2. Should each [item] be private by default, or shareable?
3. Which existing tools do users rely on today for [main use case]?
4. What would make a user open [Product] every day?
5. Are there regulatory or data residency constraints we must respect?`,

	domain.StageArchitect: `## Solution Architecture: [Product]

### MVP Features
1. [Item] capture: create, edit and delete a [item] with title, notes and date. Core value.
2. Dashboard: progress summary for [main use case]. Keeps users coming back.
3. Reminders: push notifications at user-chosen times. Drives retention.
4. History and insights: trends over weeks and months. Premium hook.
5. Account and sync: email sign-in with cloud backup. Protects user data.

### Core User Flows
- Onboarding: sign up, set a goal, create the first [item].
- Daily loop: open app, review dashboard, log a [item], close.
- Review: open insights, compare weeks, adjust the goal.

### Data Model
- User (id, email, goal, created_at)
- [Item] (id, user_id, title, notes, occurred_at, tags)
- Reminder (id, user_id, cron, channel)

### System Architecture
- Mobile client (React Native) talking to a REST API.
- API service in Go backed by PostgreSQL.
- Object storage for exports; push notifications through a managed provider.

### Non-Functional Requirements
- Encrypt personal data at rest and in transit.
- p95 API latency under 300 ms.
- Offline capture with background sync.

### Technical Risks
- Notification fatigue: cap reminders per day and let users snooze.
- Sync conflicts: last-writer-wins per [item] with an audit trail.`,

	domain.StageUXWriter: `## UX Copy: [Product]

### Voice and Tone
Warm, encouraging and brief. Celebrate progress, never shame.

### Onboarding
- Headline: "Make [main use case] effortless"
- Subheadline: "[Product] keeps every [item] in one calm place."
- Call to action: "Get started"

### Screen Microcopy
- Dashboard title: "Today"
- Empty state: "No [item] yet. Add your first one to see your progress."
- Primary button: "Add [Item]"
- [Item] form: "What did you do?", "Notes (optional)", "Save [Item]"
- Insights title: "Your progress in [problem domain]"

### Messages
- Success: "[Item] saved. Nice work!"
- Error: "We couldn't save that [item]. Check your connection and try again."
- Reminder: "A quick [item] keeps your streak alive."

### Feature Names
- Streaks, Weekly Recap, Smart Reminders`,

	domain.StageMockupDesigner: `{
  "product_name": "[Product Name]",
  "screens": [
    {
      "name": "Dashboard",
      "route": "/",
      "layout": "dashboard",
      "components": [
        {"type": "header", "label": "Today", "description": "Greeting and summary of recent [item] activity"},
        {"type": "stat_card", "label": "Streak", "description": "Consecutive days with at least one [item]"},
        {"type": "button", "label": "Add [Item]", "description": "Opens the [item] form"}
      ]
    },
    {
      "name": "[Item] List",
      "route": "/items",
      "layout": "list",
      "components": [
        {"type": "search", "label": "Search", "description": "Filter by title or tag"},
        {"type": "list", "label": "Recent", "description": "Every [item] sorted by date"}
      ]
    },
    {
      "name": "[Item] Form",
      "route": "/items/new",
      "layout": "form",
      "components": [
        {"type": "input", "label": "Title", "description": "Short name for the [item]"},
        {"type": "textarea", "label": "Notes", "description": "Optional details"},
        {"type": "button", "label": "Save [Item]", "description": "Persists the [item]"}
      ]
    },
    {
      "name": "Insights",
      "route": "/insights",
      "layout": "charts",
      "components": [
        {"type": "chart", "label": "Weekly trend", "description": "Progress in [problem domain] over time"}
      ]
    }
  ]
}`,

	domain.StageSynthesizer: `# Product Requirements Document: [Product Name]

## 1. Overview
[Product] is a mobile-first app for [problem domain]. It makes [main use case] effortless by keeping every
[item] in one place and nudging users at the right moment.

## 2. Problem Statement
Users rely on scattered notes and reminders, lose track of progress and abandon their goals.

## 3. Goals and Success Metrics
- 40% of new users log a second [item] within 7 days.
- 25% week-4 retention.
- Median time to log a [item] under 20 seconds.

## 4. Target Users and Personas
- Primary: individuals managing their own [main use case].
- Secondary: coaches and small groups sharing plans.

## 5. User Stories
- As a user, I want to add a [item] quickly so that logging never feels like a chore.
- As a user, I want to see my streak so that I stay motivated.
- As a user, I want reminders so that I don't forget.

## 6. Functional Requirements
- P0: [Item] capture, dashboard, account and sync.
- P1: reminders, insights.
- P2: sharing with coaches.

## 7. Non-Functional Requirements
Encryption at rest and in transit, p95 latency under 300 ms, offline capture.

## 8. User Experience
Warm, encouraging tone. Screens: Dashboard, [Item] List, [Item] Form, Insights.

## 9. Technical Architecture
React Native client, Go REST API, PostgreSQL, object storage, managed push notifications.

## 10. Assumptions and Open Questions
- Users prefer mobile-first experiences.
- Open: should each [item] be private by default?

## 11. Risks and Mitigations
- Notification fatigue: daily caps and snooze.
- Sync conflicts: last-writer-wins with audit trail.

## 12. Execution Plan
- Phase 1 (weeks 1-4): [Item] capture, dashboard, accounts.
- Phase 2 (weeks 5-8): reminders and insights.
- Phase 3 (weeks 9-12): sharing, polish and public launch of [Product].`,
}

// CannedResponse returns the raw deterministic response for the stage.
func CannedResponse(stage domain.Stage) (string, bool) {
	resp, ok := cannedResponses[stage]
	return resp, ok
}
