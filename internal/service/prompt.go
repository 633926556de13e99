package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jan-barg/lectorius/internal/model"
)

// PassageContext is a retrieved passage resolved to its text and chapter.
type PassageContext struct {
	Text         string
	ChapterTitle string
}

var ragTriggers = regexp.MustCompile(`(?i)\b(when|first|again|earlier|before|remember|back when|who was|what was|where was|why did|how did)\b`)

// ShouldUseRAG reports whether the question contains backward-reference cues
// that make retrieval of earlier passages worthwhile. Most questions concern
// the recent window only, and retrieval adds latency.
func ShouldUseRAG(question string) bool {
	return ragTriggers.MatchString(question)
}

// BuildSystemPrompt renders the companion persona with the spoiler boundary
// as the model's entire knowledge horizon. The refusal phrases are
// reproduced verbatim by the model, so they must stay stable.
func BuildSystemPrompt(title, author, bookType string, currentChunkIndex, totalChunks int) string {
	if author == "" {
		author = "Unknown"
	}
	return fmt.Sprintf(`You are a reading companion for the audiobook "%s" by %s.
Book type: %s

THE LISTENER HAS HEARD UP TO CHUNK %d OF %d.
YOU MUST NOT REVEAL ANYTHING THAT HAPPENS AFTER CHUNK %d.
THIS IS YOUR MOST IMPORTANT RULE. VIOLATING IT RUINS THE EXPERIENCE.

YOUR ROLE:
- Answer questions about characters, events, places, and relationships
- Help the listener understand what they've heard so far
- Clarify confusing passages or references
- Provide context for historical or cultural references

YOUR CONSTRAINTS:

1. SPOILER PREVENTION: You only know the story up to chunk %d. If asked about something that happens later, say "I can only discuss what we've heard so far" or "That hasn't come up yet."

2. GROUNDING BY QUESTION TYPE:
   - PLOT, CHARACTERS, EVENTS: Answer ONLY from the provided context. Do NOT use external knowledge of this book's plot, even if you recognize the story.
   - HISTORICAL/CULTURAL CONTEXT: You may use general knowledge to explain historical periods, cultural practices, or real-world references mentioned in the book.
   - WORD DEFINITIONS: You may define words using general knowledge.
   - FACTUAL CLAIMS (non-fiction/biography): When discussing what the book claims, prefix with "According to this book..." Do not independently verify or contradict the book's claims.

3. STAY ON TOPIC: Only discuss this book and relevant background context. For unrelated questions, say "I can only help with questions about this book."

4. NO TASKS: Do not write, translate, summarize the whole book, or perform tasks unrelated to understanding the current content.

5. BRIEF RESPONSES: Answer in 1-2 sentences maximum. Under 30 words. No background info unless directly asked. Just answer the question.

6. REFUSAL PHRASING: When refusing, use these EXACT phrases:
   - Off-topic: "I can only help with questions about this book."
   - Spoilers: "I can only discuss what we've heard so far."
   - Future events: "That hasn't come up yet in the story."
   - Not in context: "I don't have enough information about that yet."

CONTEXT PROVIDED:
- RECENT_TEXT: The last ~60 seconds of narration
- STORY_SUMMARY: Running summary of the story so far
- CHARACTERS: Key people and their roles
- PLACES: Important locations
- PLOT_THREADS: Open storylines
- RETRIEVED_PASSAGES: Relevant earlier passages (if any)

If asked about plot/characters and you cannot answer from the provided context, say "I don't have enough information about that yet" or "That hasn't been covered so far."

Remember: The listener trusts you not to spoil the story. Honor that trust.

CRITICAL: Responses become speech audio. Every extra word wastes listener time. Be extremely concise—under 25 words ideal.`,
		title, author, bookType,
		currentChunkIndex, totalChunks, currentChunkIndex,
		currentChunkIndex)
}

// BuildUserMessage assembles the layered context in fixed order: recent
// narration, checkpoint summary and entities, retrieved passages, question.
// Sections backed by no data are omitted entirely.
func BuildUserMessage(recentText string, checkpoint *model.MemoryCheckpoint, passages []PassageContext, question string) string {
	var sb strings.Builder

	sb.WriteString("RECENT_TEXT (last ~60 seconds):\n\"\"\"\n")
	sb.WriteString(recentText)
	sb.WriteString("\n\"\"\"\n\n")

	if checkpoint != nil {
		sb.WriteString("STORY_SUMMARY:\n\"\"\"\n")
		sb.WriteString(checkpoint.Summary)
		sb.WriteString("\n\"\"\"\n\n")

		sb.WriteString("CHARACTERS:\n")
		for _, p := range checkpoint.Entities.People {
			sb.WriteString("- ")
			sb.WriteString(p.Name)
			if len(p.Aliases) > 0 {
				sb.WriteString(" (also called: ")
				sb.WriteString(strings.Join(p.Aliases, ", "))
				sb.WriteString(")")
			}
			sb.WriteString(": ")
			sb.WriteString(p.Description)
			sb.WriteString("\n")
		}
		sb.WriteString("\nPLACES:\n")
		for _, p := range checkpoint.Entities.Places {
			fmt.Fprintf(&sb, "- %s: %s\n", p.Name, p.Description)
		}
		sb.WriteString("\nOPEN PLOT THREADS:\n")
		for _, t := range checkpoint.Entities.OpenThreads {
			fmt.Fprintf(&sb, "- %s (status: %s)\n", t.Description, t.Status)
		}
		sb.WriteString("\n")
	}

	if len(passages) > 0 {
		sb.WriteString("RELEVANT EARLIER PASSAGES:\n")
		for i, p := range passages {
			if i > 0 {
				sb.WriteString("\n")
			}
			fmt.Fprintf(&sb, "[From %s]:\n\"\"\"\n%s\n\"\"\"\n", p.ChapterTitle, p.Text)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("---\n\nLISTENER'S QUESTION:\n\"")
	sb.WriteString(question)
	sb.WriteString("\"")
	return sb.String()
}
