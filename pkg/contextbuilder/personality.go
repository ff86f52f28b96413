package contextbuilder

import (
	"strings"

	"github.com/harunnryd/voxa/pkg/store"
)

// Instructions renders the system instruction for a persona: its own
// instructions, speaking style, and knowledge domains, followed by the
// base instruction.
func Instructions(p store.Personality, base string) string {
	var sb strings.Builder
	if p.Instructions != "" {
		sb.WriteString(p.Instructions)
		sb.WriteString("\n\n")
	}

	var style []string
	if p.SpeakingStyle.Tone != "" {
		style = append(style, "Tone: "+p.SpeakingStyle.Tone)
	}
	if p.SpeakingStyle.Pace != "" {
		style = append(style, "Pace: "+p.SpeakingStyle.Pace)
	}
	if p.SpeakingStyle.Formality != "" {
		style = append(style, "Formality: "+p.SpeakingStyle.Formality)
	}
	if len(style) > 0 {
		sb.WriteString("Speaking Style:\n- ")
		sb.WriteString(strings.Join(style, "\n- "))
		sb.WriteString("\n\n")
	}

	if len(p.KnowledgeDomains) > 0 {
		sb.WriteString("Areas of Expertise: ")
		sb.WriteString(strings.Join(p.KnowledgeDomains, ", "))
		sb.WriteString("\n\n")
	}

	sb.WriteString(base)
	return sb.String()
}
