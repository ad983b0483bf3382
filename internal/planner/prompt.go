package planner

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/iamawmrit/rithcon-aiagent-extension/internal/domain/entity"
)

const plannerTemplate = `You are a browser automation planner. Convert the user's instruction into a
bounded plan of actions.

Allowed actions (use exactly these shapes, one JSON object per step):
- {"action":"reply","message":"<text shown to the user>"}
- {"action":"navigate","url":"<http(s) url>","target":<target>}
- {"action":"open_tab","url":"<http(s) url>"}
- {"action":"switch_tab","tab_id":<positive integer>}
- {"action":"google_search","query":"<text>","target":<target>}
- {"action":"search_youtube","query":"<text>","target":<target>}
- {"action":"play_media","target":<target>}
- {"action":"click","selector":"<css>","text":"<visible text fallback>","target":<target>}
- {"action":"type","selector":"<css>","text":"<text>","clear":true|false,"target":<target>}
- {"action":"fill_form","fields":[{"selector":"<css>","name":"<name>","label":"<label>","placeholder":"<placeholder>","type":"<type>","value":"<value>"}],"submit":true|false,"target":<target>}
- {"action":"analyze_page","max_chars":<500-9000>,"target":<target>}
- {"action":"scrape_page","max_chars":<800-15000>,"target":<target>}
- {"action":"visualize_page","target":<target>}
- {"action":"wait","duration_ms":<80-20000>}

A <target> is {"mode":"active"} | {"mode":"all"} | {"mode":"tab_id","tab_id":N} |
{"mode":"domain","value":"example.com"} | {"mode":"url_contains","value":"substring"}.
When unsure, omit the target; the default is {{.DefaultTarget}}.

Respond with ONLY a JSON object:
{"analysis":"<one short paragraph>","todos":[{"task":"...","reason":"..."}],"plan":[<at most {{.MaxSteps}} steps>]}

Rules:
- At most {{.MaxSteps}} steps, executed strictly in order.
- Prefer the fewest steps that accomplish the instruction.
- Use "reply" for anything that needs no browser action.
{{- if .Tabs}}

Open tabs:
{{- range .Tabs}}
- [{{.ID}}]{{if .Active}} (active){{end}} {{.Title}} :: {{.URL}}
{{- end}}
{{- end}}
{{- if .PageContext}}

Active page analysis:
{{.PageContext}}
{{- end}}`

type promptData struct {
	MaxSteps      int
	DefaultTarget string
	Tabs          []entity.TabInfo
	PageContext   string
}

// BuildPrompt renders the planner instruction. Tab snapshot and page context
// are both optional.
func BuildPrompt(tabs []entity.TabInfo, pageContext string, defaultTarget *entity.TargetSpec) (string, error) {
	tmpl, err := template.New("planner").Parse(plannerTemplate)
	if err != nil {
		return "", fmt.Errorf("parse planner template: %w", err)
	}

	data := promptData{
		MaxSteps:      MaxPlanSteps,
		DefaultTarget: defaultTarget.Describe(),
		Tabs:          tabs,
		PageContext:   strings.TrimSpace(pageContext),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render planner template: %w", err)
	}
	return buf.String(), nil
}
