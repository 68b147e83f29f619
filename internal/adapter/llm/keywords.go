package llm

import "strings"

// Placeholder tokens filled in by Substitute.
const (
	TokenProblemDomain = "[problem domain]"
	TokenMainUseCase   = "[main use case]"
	TokenItem          = "[item]"
	TokenItemTitle     = "[Item]"
	TokenProduct       = "[Product]"
	TokenProductName   = "[Product Name]"
)

// Phrases is the set of values that replace the placeholder tokens.
type Phrases struct {
	Name          string
	Keywords      []string
	ProblemDomain string
	MainUseCase   string
	Item          string
	ItemTitle     string
	Product       string
	ProductName   string
}

// keywordDomains is checked in order; the first domain with a keyword in the prompt wins.
var keywordDomains = []Phrases{
	{
		Name:          "fitness",
		Keywords:      []string{"fitness", "workout", "exercise", "gym"},
		ProblemDomain: "fitness tracking",
		MainUseCase:   "workout planning",
		Item:          "workout",
		ItemTitle:     "Workout",
		Product:       "Fitness Tracker",
		ProductName:   "Fitness Tracker",
	},
	{
		Name:          "finance",
		Keywords:      []string{"finance", "budget", "money", "investment", "banking"},
		ProblemDomain: "personal finance management",
		MainUseCase:   "budget tracking",
		Item:          "transaction",
		ItemTitle:     "Transaction",
		Product:       "Finance Manager",
		ProductName:   "Finance Manager",
	},
	{
		Name:          "meditation",
		Keywords:      []string{"meditation", "mindfulness", "relax", "stress", "mental"},
		ProblemDomain: "stress management and mental wellness",
		MainUseCase:   "meditation practice",
		Item:          "meditation session",
		ItemTitle:     "Meditation Session",
		Product:       "Mindfulness App",
		ProductName:   "Mindfulness App",
	},
	{
		Name:          "productivity",
		Keywords:      []string{"productivity", "task", "todo", "schedule", "project", "team"},
		ProblemDomain: "task management and productivity",
		MainUseCase:   "task organization",
		Item:          "task",
		ItemTitle:     "Task",
		Product:       "Productivity Manager",
		ProductName:   "Productivity Manager",
	},
}

var genericPhrases = Phrases{
	Name:          "generic",
	ProblemDomain: "the problem domain",
	MainUseCase:   "the main use case",
	Item:          "item",
	ItemTitle:     "Item",
	Product:       "Product",
	ProductName:   "Product Name",
}

// MatchDomain returns the phrase set selected by the prompt's keywords.
func MatchDomain(prompt string) Phrases {
	lower := strings.ToLower(prompt)
	for _, d := range keywordDomains {
		for _, kw := range d.Keywords {
			if strings.Contains(lower, kw) {
				return d
			}
		}
	}
	return genericPhrases
}

// Substitute replaces the placeholder tokens in response with the phrases of the
// domain detected in prompt. Both backend variants run every canned response through it.
func Substitute(response, prompt string) string {
	p := MatchDomain(prompt)
	r := strings.NewReplacer(
		TokenProblemDomain, p.ProblemDomain,
		TokenMainUseCase, p.MainUseCase,
		TokenItem, p.Item,
		TokenItemTitle, p.ItemTitle,
		TokenProductName, p.ProductName,
		TokenProduct, p.Product,
	)
	return r.Replace(response)
}
