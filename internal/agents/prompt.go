package agents

import (
	"fmt"
	"strings"

	"finwiz/internal/crew"
	"finwiz/internal/domain/knowledge"
)

// toolResult is one data tool's contribution to the research context.
type toolResult struct {
	Name   string
	Output string
	Err    error
}

// systemPrompt renders the agent's persona.
func systemPrompt(agent crew.AgentRef) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s.\n", agent.Role)
	fmt.Fprintf(&b, "Your goal: %s\n", agent.Goal)
	if agent.Backstory != "" {
		fmt.Fprintf(&b, "Background: %s\n", agent.Backstory)
	}
	b.WriteString("Ground every claim in the research data and prior findings you are given. State uncertainty explicitly.")
	return b.String()
}

// taskPrompt renders the task, its dependency outputs, the gathered research
// data and the retrieved knowledge into the user message.
func taskPrompt(task crew.TaskDescriptor, input crew.Input, research []toolResult, retrieved []*knowledge.Entry) string {
	var b strings.Builder

	b.WriteString("# Task\n")
	b.WriteString(task.Description + "\n\n")
	if task.ExpectedOutput != "" {
		b.WriteString("# Expected output\n")
		b.WriteString(task.ExpectedOutput + "\n\n")
	}

	if len(input.Outputs) > 0 {
		b.WriteString("# Findings from preceding tasks\n")
		for _, dep := range task.DependsOn {
			out, ok := input.Outputs[dep]
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "## %s\n%s\n\n", dep, out)
		}
	}

	if len(research) > 0 {
		b.WriteString("# Research data\n")
		for _, r := range research {
			if r.Err != nil {
				fmt.Fprintf(&b, "## %s\nunavailable: %v\n\n", r.Name, r.Err)
				continue
			}
			fmt.Fprintf(&b, "## %s\n%s\n\n", r.Name, r.Output)
		}
	}

	if len(retrieved) > 0 {
		b.WriteString("# Knowledge base\n")
		for _, e := range retrieved {
			fmt.Fprintf(&b, "- [%s, %s] %s\n", e.Category, e.Timestamp.Format("2006-01-02"), e.Content)
		}
		b.WriteString("\n")
	}

	b.WriteString("Produce the expected output now.")
	return b.String()
}
