package services

import (
	"fmt"
	"strings"
)

// CinematicPromptOptions are the inputs to the cinematic instruction
// template. Every field is optional; empty values degrade to empty lines.
type CinematicPromptOptions struct {
	StylePreset     string
	StyleStrength   int
	MatchPrevious   bool
	HoldThenMove    bool
	Cutaway         bool
	UserBrief       string
	RemoveAudio     bool
	AspectRatio     string
	Resolution      string
	DurationSeconds float64
	NegativePrompt  string
}

// BuildCinematicPrompt renders the fixed instruction template used for every
// Veo request. Pure; never fails. Generation options (duration, aspect,
// resolution, style, negative prompt) travel only inside this text, never as
// request-level fields.
func BuildCinematicPrompt(opts CinematicPromptOptions) string {
	style := opts.StylePreset
	if style == "" {
		style = "realistic"
	}
	strength := opts.StyleStrength
	if strength <= 0 {
		strength = 50
	}

	var continuity []string
	if opts.MatchPrevious {
		continuity = append(continuity, "- Match previous segment's pose/framing, lighting (~5200K), lens look (~35mm).")
	}
	if opts.HoldThenMove {
		continuity = append(continuity, "- Hold ~0.3s at start, then a subtle camera move (push-in 2-3% or micro-pan).")
	}
	if opts.Cutaway {
		continuity = append(continuity, "- Insert a brief (0.7-0.9s) cutaway relevant to the scene, then return to main subject.")
	}

	audio := "- Render WITHOUT audio."
	if !opts.RemoveAudio {
		audio = "- Use Indonesian voiceover; friendly, clear, natural pace. No music."
	}

	var b strings.Builder
	b.WriteString("You are a cinematic director. Build a short sequence for social video.\n\n")

	b.WriteString("STYLE PRESET:\n")
	fmt.Fprintf(&b, "- Target style: %s (blend strength %d/100).\n", style, strength)
	b.WriteString("- For \"anime\"/\"cartoon\", emulate generic styles; do not mimic any copyrighted IP/characters.\n")
	b.WriteString("- Keep frames clean; avoid watermarks, brands, logos.\n\n")

	b.WriteString("CONTINUITY:\n")
	b.WriteString(strings.Join(continuity, "\n"))
	b.WriteString("\n\n")

	b.WriteString("SCENE BRIEF:\n")
	b.WriteString(opts.UserBrief)
	b.WriteString("\n\n")

	b.WriteString("AUDIO:\n")
	b.WriteString(audio)
	b.WriteString("\n\n")

	b.WriteString("DELIVERABLE:\n")
	fmt.Fprintf(&b, "- Aspect: %s | Resolution: %s | Codec: H.264\n", opts.AspectRatio, opts.Resolution)
	fmt.Fprintf(&b, "- Duration: %g seconds\n", opts.DurationSeconds)
	b.WriteString("- No on-screen text. Avoid brands/logos. Safety first.\n\n")

	b.WriteString("NEGATIVE PROMPT (avoid): ")
	b.WriteString(opts.NegativePrompt)

	return b.String()
}
