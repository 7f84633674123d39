package grader

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"

	"data_quest/internal/domain/model"
)

const maxOutputChars = 1000

var verdictSchema = `{
  "correct": boolean,
  "correctnessScore": number (0-100),
  "qualityScore": number (0-30),
  "performanceScore": number (0-50),
  "feedback": {
    "correctness": "string",
    "quality": "string",
    "performance": "string"
  },
  "hints": ["string"],
  "encouragement": "string"
}`

var sqlPrompt = template.Must(template.New("sql").Parse(`You are an expert SQL tutor for Data Quest.
Grade the student's SQL solution.

Challenge title: {{.Title}}
Description: {{.Description}}
Expected output (context): {{.ExpectedOutput}}

Student code:
` + "```sql" + `
{{.Code}}
` + "```" + `

Student execution output (JSON, truncated):
` + "```json" + `
{{.Output}}
` + "```" + `

Assess correctness (does it solve the problem), quality (idiomatic SQL, casing,
layout) and performance (needless SELECT *, wasteful joins).

Respond with strictly valid JSON matching this schema:
{{.Schema}}
`))

var pythonPrompt = template.Must(template.New("python").Parse(`You are an expert PySpark and Python tutor for Data Quest.
Grade the student's solution.

Challenge: {{.Title}} - {{.Description}}
Expected output (context): {{.ExpectedOutput}}

Student code:
` + "```python" + `
{{.Code}}
` + "```" + `

Output (JSON, truncated):
{{.Output}}

Respond with strictly valid JSON matching this schema:
{{.Schema}}
`))

var hintPrompt = template.Must(template.New("hint").Parse(`The student is stuck on "{{.Title}}".
{{.Description}}
Hint level: {{.Level}} (1 = small nudge, 2 = specific direction, 3 = code snippet or major clue).

Current code:
{{.Code}}

Respond with JSON: {"hint": "the hint text", "level": {{.Level}}}
`))

var promptsByDomain = map[model.Domain]*template.Template{
	model.DomainSQL:    sqlPrompt,
	model.DomainPython: pythonPrompt,
}

type promptData struct {
	Title          string
	Description    string
	ExpectedOutput string
	Code           string
	Output         string
	Schema         string
	Level          int
}

func renderVerdictPrompt(sub Submission) (string, error) {
	tmpl, ok := promptsByDomain[sub.Challenge.Domain()]
	if !ok {
		return "", fmt.Errorf("no prompt for domain %q", sub.Challenge.Domain())
	}
	expected, err := json.Marshal(sub.Challenge.ExpectedOutput)
	if err != nil {
		return "", fmt.Errorf("encode expected output: %w", err)
	}
	return execute(tmpl, promptData{
		Title:          sub.Challenge.Title,
		Description:    sub.Challenge.Description,
		ExpectedOutput: string(expected),
		Code:           sub.Code,
		Output:         truncateOutput(sub.Output),
		Schema:         verdictSchema,
	})
}

func renderHintPrompt(challenge *model.Challenge, code string, level int) (string, error) {
	return execute(hintPrompt, promptData{
		Title:       challenge.Title,
		Description: challenge.Description,
		Code:        code,
		Level:       level,
	})
}

func execute(tmpl *template.Template, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

// truncateOutput compacts the executed output and keeps the first
// maxOutputChars characters.
func truncateOutput(raw json.RawMessage) string {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "{}"
	}
	var buf bytes.Buffer
	text := string(raw)
	if err := json.Compact(&buf, raw); err == nil {
		text = buf.String()
	}
	runes := []rune(text)
	if len(runes) <= maxOutputChars {
		return text
	}
	return string(runes[:maxOutputChars]) + " ... (truncated)"
}
