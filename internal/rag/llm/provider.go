package llm

import (
	"context"
	"fmt"
	"strings"
)

type Provider interface {
	Generate(ctx context.Context, query string, matches []string, messageHistory []string) (string, error)
}

// BuildPrompt lays out retrieved context, prior turns and the question for any provider
func BuildPrompt(query string, matches []string, messageHistory []string) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	if len(matches) == 0 {
		b.WriteString("(no uploaded documents matched)\n")
	}
	for i, m := range matches {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, m)
	}

	if len(messageHistory) > 0 {
		b.WriteString("\nMessage history (oldest first). Each entry holds the question, the answer you gave and its sources:\n")
		b.WriteString(strings.Join(messageHistory, "\n"))
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\nUser Question: %s", query)
	return b.String()
}
