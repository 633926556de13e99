package service

import (
	"strings"
	"testing"

	"github.com/jan-barg/lectorius/internal/model"
)

func TestShouldUseRAG(t *testing.T) {
	tests := []struct {
		question string
		want     bool
	}{
		{"Who was the man at the station?", true},
		{"What was the name of the ship?", true},
		{"Did she mention this before?", true},
		{"WHEN did they first meet?", true},
		{"Remember the letter from chapter two?", true},
		{"What is happening right now?", false},
		{"Is the captain trustworthy?", false},
		{"Tell me about the whenever machine", false},
	}

	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			if got := ShouldUseRAG(tt.question); got != tt.want {
				t.Errorf("ShouldUseRAG(%q) = %v, want %v", tt.question, got, tt.want)
			}
		})
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	prompt := BuildSystemPrompt("Middlemarch", "George Eliot", "fiction", 42, 100)

	for _, want := range []string{
		`"Middlemarch" by George Eliot`,
		"Book type: fiction",
		"HEARD UP TO CHUNK 42 OF 100",
		"NOT REVEAL ANYTHING THAT HAPPENS AFTER CHUNK 42",
		"I can only help with questions about this book.",
		"I can only discuss what we've heard so far.",
		"That hasn't come up yet in the story.",
		"I don't have enough information about that yet.",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
}

func TestBuildSystemPromptUnknownAuthor(t *testing.T) {
	prompt := BuildSystemPrompt("Beowulf", "", "fiction", 10, 50)
	if !strings.Contains(prompt, "by Unknown") {
		t.Errorf("expected unknown author placeholder, got: %s", prompt[:120])
	}
}

func TestBuildUserMessageMinimal(t *testing.T) {
	msg := BuildUserMessage("the recent narration", nil, nil, "who is she?")

	if !strings.Contains(msg, "RECENT_TEXT") {
		t.Error("missing RECENT_TEXT section")
	}
	if !strings.Contains(msg, `LISTENER'S QUESTION:
"who is she?"`) {
		t.Error("missing quoted question")
	}
	for _, absent := range []string{"STORY_SUMMARY", "CHARACTERS", "PLACES", "OPEN PLOT THREADS", "RELEVANT EARLIER PASSAGES"} {
		if strings.Contains(msg, absent) {
			t.Errorf("section %q must be omitted without data", absent)
		}
	}
}

func TestBuildUserMessageFull(t *testing.T) {
	checkpoint := &model.MemoryCheckpoint{
		Summary: "A stranger arrived in town.",
		Entities: model.Entities{
			People: []model.Person{
				{Name: "Elena", Aliases: []string{"the widow"}, Description: "runs the inn"},
			},
			Places: []model.Place{
				{Name: "The Mill", Description: "abandoned grain mill"},
			},
			OpenThreads: []model.PlotThread{
				{Description: "who sent the letter", Status: "open"},
			},
		},
	}
	passages := []PassageContext{
		{Text: "The letter bore no signature.", ChapterTitle: "Chapter Three"},
	}

	msg := BuildUserMessage("recent words", checkpoint, passages, "who sent the letter?")

	order := []string{
		"RECENT_TEXT",
		"STORY_SUMMARY",
		"CHARACTERS",
		"Elena (also called: the widow): runs the inn",
		"PLACES",
		"The Mill: abandoned grain mill",
		"OPEN PLOT THREADS",
		"who sent the letter (status: open)",
		"RELEVANT EARLIER PASSAGES",
		"[From Chapter Three]:",
		"LISTENER'S QUESTION",
	}
	last := -1
	for _, marker := range order {
		idx := strings.Index(msg, marker)
		if idx < 0 {
			t.Fatalf("missing marker %q in message:\n%s", marker, msg)
		}
		if idx <= last {
			t.Fatalf("marker %q out of order", marker)
		}
		last = idx
	}
}
