package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fieldwork-ai/fieldwork/internal/tool"
)

// decisionFormat is appended to every system prompt so the model answers
// with a machine-readable decision.
const decisionFormat = `Respond with a single JSON object describing your next action. One of:

{"action": "use_tool", "tool": "<tool name>", "parameters": {...}, "reasoning": "<why>"}
{"action": "goal_complete", "summary": "<what was accomplished>", "next_steps": "<recommended follow-up>"}
{"action": "document", "content": "<notes to record>", "reasoning": "<why>"}
{"action": "send_message", "to": "<agent name>", "message": "<the message>"}`

// SystemPrompt synthesizes an agent's system message from its persona
// template, tool schemas and loaded knowledge. An empty template falls back
// to a minimal identity line.
func SystemPrompt(name, role, template string, tools []tool.Tool, knowledge []string) string {
	var b strings.Builder

	if template == "" {
		fmt.Fprintf(&b, "You are %s, a %s on an internal audit engagement.", name, role)
	} else {
		b.WriteString(strings.TrimSpace(template))
	}

	if len(tools) > 0 {
		b.WriteString("\n\n## Available Tools\n")
		for _, t := range tools {
			fmt.Fprintf(&b, "\n### %s\n%s\n", t.Name(), t.Description())
			schema, err := json.MarshalIndent(tool.Schema(t.Parameters()), "", "  ")
			if err == nil {
				fmt.Fprintf(&b, "Parameters:\n```json\n%s\n```\n", schema)
			}
		}
	}

	if len(knowledge) > 0 {
		b.WriteString("\n## Reference Material\n")
		for _, k := range knowledge {
			b.WriteString("\n" + strings.TrimSpace(k) + "\n")
		}
	}

	b.WriteString("\n\n" + decisionFormat)
	return b.String()
}
