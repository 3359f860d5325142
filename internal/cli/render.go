package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"docqa/internal/domain"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	answerStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	hitStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

const previewLen = 500

func renderHit(rank int, h domain.ScoredChunk) string {
	text := h.Chunk.Text
	if r := []rune(text); len(r) > previewLen {
		text = string(r[:previewLen]) + "..."
	}
	header := hitStyle.Render(fmt.Sprintf("[%d] chunk %d", rank, h.Chunk.SequenceIndex)) +
		mutedStyle.Render(fmt.Sprintf("  distance %.4f", h.Distance))
	return header + "\n" + strings.TrimRight(text, "\n")
}

func renderAnswer(a *domain.Answer, showSources bool) string {
	var sb strings.Builder
	if a.Err != nil {
		sb.WriteString(errorStyle.Render(a.Text))
	} else {
		sb.WriteString(answerStyle.Render(a.Text))
	}
	if showSources && len(a.Sources) > 0 {
		ids := make([]string, len(a.Sources))
		for i, s := range a.Sources {
			ids[i] = fmt.Sprintf("%d", s.Chunk.SequenceIndex)
		}
		sb.WriteString("\n")
		sb.WriteString(mutedStyle.Render("sources: chunks " + strings.Join(ids, ", ")))
	}
	return sb.String()
}
