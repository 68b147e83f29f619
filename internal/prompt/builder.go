// Package prompt builds the per-stage prompts of the PRD pipeline.
//
// Every stage has one fixed template. The caller must supply exactly the
// context keys that template uses; anything else is a programming error and
// Build fails immediately. Build performs no I/O.
package prompt

import (
	"fmt"
	"slices"
	"strings"
	"text/template"

	"github.com/Shodexco/aiproductmanager/internal/domain"
)

// Context keys used by the stage templates.
const (
	KeyIdea                = "idea"
	KeyMaxQuestions        = "max_questions"
	KeyStrategistAnalysis  = "strategist_analysis"
	KeyUserAnswers         = "user_answers"
	KeyArchitectAnalysis   = "architect_analysis"
	KeyUXWriterAnalysis    = "ux_writer_analysis"
	KeyConversationHistory = "conversation_history"
	KeyPRDTemplate         = "prd_template"
)

type stageTemplate struct {
	tmpl     *template.Template
	required []string
}

var templates = map[domain.Stage]stageTemplate{
	domain.StageStrategist: mustParse(domain.StageStrategist, strategistTemplate,
		KeyIdea, KeyMaxQuestions),
	domain.StageArchitect: mustParse(domain.StageArchitect, architectTemplate,
		KeyIdea, KeyStrategistAnalysis, KeyUserAnswers),
	domain.StageUXWriter: mustParse(domain.StageUXWriter, uxWriterTemplate,
		KeyIdea, KeyArchitectAnalysis),
	domain.StageMockupDesigner: mustParse(domain.StageMockupDesigner, mockupDesignerTemplate,
		KeyIdea, KeyArchitectAnalysis, KeyUXWriterAnalysis),
	domain.StageSynthesizer: mustParse(domain.StageSynthesizer, synthesizerTemplate,
		KeyConversationHistory, KeyPRDTemplate),
}

func mustParse(stage domain.Stage, text string, required ...string) stageTemplate {
	tmpl := template.Must(template.New(string(stage)).Option("missingkey=error").Parse(text))
	return stageTemplate{tmpl: tmpl, required: required}
}

// Build renders the prompt for the stage from the named context values.
func Build(stage domain.Stage, ctx map[string]string) (string, error) {
	st, ok := templates[stage]
	if !ok {
		return "", fmt.Errorf("%w: %w: %q", domain.ErrContractViolation, domain.ErrUnknownStage, stage)
	}

	for _, key := range st.required {
		if _, ok := ctx[key]; !ok {
			return "", fmt.Errorf("%w: stage %s missing context key %q", domain.ErrContractViolation, stage, key)
		}
	}
	for key := range ctx {
		if !slices.Contains(st.required, key) {
			return "", fmt.Errorf("%w: stage %s got unexpected context key %q", domain.ErrContractViolation, stage, key)
		}
	}

	var b strings.Builder
	if err := st.tmpl.Execute(&b, ctx); err != nil {
		return "", fmt.Errorf("%w: failed to render %s prompt: %w", domain.ErrContractViolation, stage, err)
	}
	return b.String(), nil
}

// RequiredKeys returns the context keys the stage template needs.
func RequiredKeys(stage domain.Stage) []string {
	return slices.Clone(templates[stage].required)
}

// PRDTemplate returns the fixed document template used by the synthesizer.
func PRDTemplate() string {
	return prdTemplate
}

// FormatTranscript renders messages as the linear transcript fed to the synthesizer:
// one "=== ROLE (Step N) ===" block per message, content, then a blank line.
func FormatTranscript(messages []domain.Message) string {
	lines := make([]string, 0, len(messages)*3)
	for _, m := range messages {
		lines = append(lines, fmt.Sprintf("=== %s (Step %d) ===", strings.ToUpper(string(m.Role)), m.Step))
		lines = append(lines, m.Content)
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}
