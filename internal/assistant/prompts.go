package assistant

import (
	"fmt"
	"strings"

	"github.com/hexborne/vulndetective/api/schemas"
)

const (
	explainSystemPrompt   = "You are a friendly security expert. You explain clearly and make complex weaknesses easy to understand."
	questionSystemPrompt  = "You are a helpful security assistant. Answer concretely and practically, grounded in the provided code and findings."
	nextStepsSystemPrompt = "You are a senior security engineer who gives practical, prioritized advice."
	checklistSystemPrompt = "You are a DevSecOps specialist. Every checklist item you write is specific and actionable."
)

// historyTurnLimit caps how many prior turns are replayed as context.
const historyTurnLimit = 10

// renderHistory serializes recent conversation turns so each exchange carries
// the dialogue that preceded it. Returns an empty string for a fresh session.
func renderHistory(history []Turn) string {
	if len(history) == 0 {
		return ""
	}
	start := 0
	if len(history) > historyTurnLimit {
		start = len(history) - historyTurnLimit
	}

	var sb strings.Builder
	sb.WriteString("Conversation so far:\n")
	for _, turn := range history[start:] {
		role := "User"
		if turn.Role == "assistant" {
			role = "Assistant"
		}
		fmt.Fprintf(&sb, "%s: %s\n", role, turn.Content)
	}
	sb.WriteString("\n")
	return sb.String()
}

var levelInstructions = map[ExpertiseLevel]string{
	LevelBeginner:     "Explain it so a beginner can follow. Use an everyday analogy.",
	LevelIntermediate: "Explain it for a developer with programming experience.",
	LevelExpert:       "Give a detailed technical explanation for a security professional.",
}

func buildExplainPrompt(unit *schemas.SourceUnit, f schemas.ScoredFinding, level ExpertiseLevel) string {
	instruction, ok := levelInstructions[level]
	if !ok {
		instruction = levelInstructions[LevelBeginner]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n\nFinding:\n", instruction)
	fmt.Fprintf(&sb, "- Category: %s\n", f.Category)
	if f.CWE != "" {
		fmt.Fprintf(&sb, "- CWE: %s\n", f.CWE)
	}
	fmt.Fprintf(&sb, "- Severity: %s (CVSS %.1f)\n", f.Severity, f.BaseScore)
	fmt.Fprintf(&sb, "- Location: lines %d-%d\n", f.Span.StartLine, f.Span.EndLine)
	fmt.Fprintf(&sb, "\nDescription: %s\n", f.Description)

	if f.Evidence != "" {
		fmt.Fprintf(&sb, "\nCode:\n```\n%s\n```\n", f.Evidence)
	} else if unit != nil {
		fmt.Fprintf(&sb, "\nCode:\n```\n%s\n```\n", unit.LineRange(f.Span.StartLine, f.Span.EndLine))
	}

	sb.WriteString(`
Structure the explanation as:
1. What is this vulnerability?
2. Why is it dangerous?
3. What would a real attack look like?
4. How should it be fixed?
`)
	return sb.String()
}

func buildQuestionPrompt(unit *schemas.SourceUnit, findings []schemas.ScoredFinding, question string) string {
	var sb strings.Builder
	sb.WriteString("Analyzed code and findings:\n\nFindings:\n")

	limit := len(findings)
	if limit > 5 {
		limit = 5
	}
	if limit == 0 {
		sb.WriteString("(none)\n")
	}
	for i := 0; i < limit; i++ {
		f := findings[i]
		fmt.Fprintf(&sb, "%d. %s (line %d): %s\n", i+1, f.Category, f.Span.StartLine, f.Description)
	}

	if unit != nil {
		excerpt := unit.Text
		if len(excerpt) > 500 {
			excerpt = excerpt[:500] + "..."
		}
		fmt.Fprintf(&sb, "\nCode excerpt:\n```\n%s\n```\n", excerpt)
	}

	fmt.Fprintf(&sb, "\nUser question: %s\n\nAnswer the question using the context above. Be specific and practical.\n", question)
	return sb.String()
}

func buildNextStepsPrompt(findings []schemas.ScoredFinding) string {
	critical, high := 0, 0
	for _, f := range findings {
		switch f.Severity {
		case schemas.SeverityCritical:
			critical++
		case schemas.SeverityHigh:
			high++
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "The scan found %d vulnerabilities:\n- Critical: %d\n- High: %d\n\nTop findings:\n",
		len(findings), critical, high)

	limit := len(findings)
	if limit > 3 {
		limit = 3
	}
	for i := 0; i < limit; i++ {
		f := findings[i]
		fmt.Fprintf(&sb, "%d. %s (%s) at line %d\n", i+1, f.Category, f.Severity, f.Span.StartLine)
	}

	sb.WriteString(`
Propose a step-by-step remediation plan for the developer:
1. Immediate actions (within 24 hours)
2. Short-term actions (within a week)
3. Long-term improvements

Give concrete action items for each stage.
`)
	return sb.String()
}

func buildChecklistPrompt(unit *schemas.SourceUnit, findings []schemas.ScoredFinding) string {
	seen := map[string]bool{}
	var categories []string
	for _, f := range findings {
		if !seen[f.Category] {
			seen[f.Category] = true
			categories = append(categories, f.Category)
		}
	}

	language := "this"
	if unit != nil && unit.Language != "" {
		language = unit.Language
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "A %s project was found to contain these weakness categories:\n%s\n",
		language, strings.Join(categories, ", "))
	sb.WriteString(`
Generate a tailored security checklist for this project:
1. Code review checklist
2. Testing checklist
3. Pre-deployment checklist
4. Monitoring checklist

Every item must be actionable and specific.
`)
	return sb.String()
}
