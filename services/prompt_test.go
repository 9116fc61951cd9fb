package services

import (
	"strings"
	"testing"
)

func TestBuildCinematicPromptSections(t *testing.T) {
	prompt := BuildCinematicPrompt(CinematicPromptOptions{
		StylePreset:     "anime",
		StyleStrength:   80,
		MatchPrevious:   true,
		HoldThenMove:    true,
		Cutaway:         true,
		UserBrief:       "A fox runs through a snowy forest",
		RemoveAudio:     true,
		AspectRatio:     "16:9",
		Resolution:      "1080p",
		DurationSeconds: 8,
		NegativePrompt:  "blurry, low quality",
	})

	for _, want := range []string{
		"STYLE PRESET:",
		"Target style: anime (blend strength 80/100)",
		"Match previous segment's pose/framing",
		"Hold ~0.3s at start",
		"cutaway relevant to the scene",
		"A fox runs through a snowy forest",
		"Render WITHOUT audio.",
		"Aspect: 16:9 | Resolution: 1080p",
		"Duration: 8 seconds",
		"NEGATIVE PROMPT (avoid): blurry, low quality",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildCinematicPromptDefaults(t *testing.T) {
	prompt := BuildCinematicPrompt(CinematicPromptOptions{UserBrief: "test"})

	if !strings.Contains(prompt, "Target style: realistic (blend strength 50/100)") {
		t.Errorf("expected default style and strength, got:\n%s", prompt)
	}
	if strings.Contains(prompt, "Match previous") {
		t.Error("continuity line present without flag")
	}
	if !strings.Contains(prompt, "Indonesian voiceover") {
		t.Error("expected audio-on line when RemoveAudio is false")
	}
}

func TestBuildCinematicPromptEmptyInputsNeverPanic(t *testing.T) {
	prompt := BuildCinematicPrompt(CinematicPromptOptions{})
	if prompt == "" {
		t.Error("expected a non-empty template even for empty options")
	}
	if !strings.Contains(prompt, "SCENE BRIEF:") {
		t.Error("scene section missing")
	}
}
