package openai

import (
	"fmt"
	"strings"
)

const systemPrompt = "You are KnowStack, a friendly document assistant. " +
	"Answer only from provided context and never invent facts. " +
	"Be natural, clear, and question-oriented. " +
	"After each answer, end with one short follow-up question to continue the conversation."

// buildUserPrompt assembles the question, recent conversation and document
// context into a single prompt with explicit output rules.
func buildUserPrompt(question string, contextSnippets, conversation []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "User question:\n%s\n\n", question)

	if len(conversation) > 0 {
		if len(conversation) > 4 {
			conversation = conversation[:4]
		}
		b.WriteString("Recent conversation:\n")
		for _, line := range conversation {
			fmt.Fprintf(&b, "- %s\n", line)
		}
		b.WriteString("\n")
	}

	b.WriteString("Document context:\n")
	for _, snippet := range contextSnippets {
		fmt.Fprintf(&b, "- %s\n\n", snippet)
	}

	b.WriteString("Output rules:\n" +
		"1) Start directly with the answer, no meta text.\n" +
		"2) Use simple language.\n" +
		"3) If user asks to summarize, use short bullets.\n" +
		"4) If evidence is weak, say exactly what is missing from the document.\n" +
		"5) End with one short line that asks what the user wants next.\n")

	return b.String()
}
