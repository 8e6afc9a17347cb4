// Package prompt assembles the model prompt from a discovered dataset.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"repobrief/internal/content"
	"repobrief/internal/data"
)

const (
	// MaxPromptFileRunes bounds each file's share of the prompt.
	MaxPromptFileRunes = 8000

	// TruncationMarker follows file content cut at MaxPromptFileRunes.
	TruncationMarker = "\n... (truncated)"
)

// SummaryInstruction asks for the repository-wide summary.
const SummaryInstruction = `Analyze this codebase and provide a comprehensive summary including:

1. **Project Overview**: What does this project do? What is its purpose?
2. **Architecture**: How is the code organized? What's the overall structure?
3. **Key Components**: What are the main files/modules and their purposes?
4. **Implementation Details**: What features are implemented?
5. **Code Quality**: Assessment of code organization and best practices
6. **Recommendations**: Suggestions for improvement or extension

Please be specific and reference actual files and code patterns you observe.`

// ExplainInstruction asks for an explanation of a single component.
func ExplainInstruction(component string) string {
	return fmt.Sprintf("Explain the purpose and functionality of %q in detail.", component)
}

// Build renders instruction followed by the dataset's files, directory
// structure and metadata. It is deterministic and has no side effects.
func Build(instruction string, ds *data.Dataset) string {
	var b strings.Builder
	b.WriteString(instruction)
	if ds == nil {
		return b.String()
	}

	if len(ds.Files) > 0 {
		b.WriteString("\n\n## Repository Files:\n")
		for _, f := range ds.Files {
			fmt.Fprintf(&b, "\n### %s\n", f.Path)
			if f.Content == "" {
				continue
			}
			text := f.Content
			if utf8.RuneCountInString(text) > MaxPromptFileRunes {
				text = content.Truncate(text, MaxPromptFileRunes) + TruncationMarker
			}
			fmt.Fprintf(&b, "```%s\n%s\n```\n", f.Language, text)
		}
	}

	if structure := ds.StructureText(); structure != "" {
		b.WriteString("\n\n## Directory Structure:\n```\n")
		b.WriteString(structure)
		b.WriteString("\n```\n")
	}

	if ds.Metadata != nil {
		raw, err := json.MarshalIndent(ds.Metadata, "", "  ")
		if err == nil {
			b.WriteString("\n\n## Repository Metadata:\n")
			b.Write(raw)
		}
	}

	return b.String()
}
