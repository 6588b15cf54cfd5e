package ai

import (
	"fmt"
	"strings"
)

// Prompt builders for the authoring pipeline. The offline provider parses
// the uppercase field labels back out of these prompts, so the label text
// is part of the contract between builders and that provider.

func buildDraftPrompt(req DraftRequest, wordTarget int) string {
	return fmt.Sprintf(`You are an expert academic writer drafting the "%s" section of a research paper.
Write scholarly prose that covers every objective and key point below.
- Cite sources inline as [CITE:author_year], using only the citation keys listed in the source material.
- Target approximately %d words.
- Use clear paragraphs with topic sentences. No headings.
- Output ONLY the section text in markdown.

SECTION: %s
WORD TARGET: %d
OBJECTIVES:
%s
KEY POINTS:
%s
GUIDANCE: %s
SOURCE MATERIAL:
%s`, req.SectionTitle, wordTarget, req.SectionTitle, wordTarget,
		bulletList(req.Objectives), bulletList(req.KeyPoints), req.Guidance, req.Material)
}

func buildRevisePrompt(req ReviseRequest) string {
	return fmt.Sprintf(`You are an expert academic writer revising the "%s" section of a research paper (revision %d).
Address every feedback point while keeping what already works.
- Preserve existing [CITE:...] markers.
- Maintain academic tone and logical flow.
- Output ONLY the revised section text in markdown.

SECTION: %s
FEEDBACK:
%s
CURRENT DRAFT:
%s`, req.SectionTitle, req.Iteration, req.SectionTitle, req.Feedback, req.CurrentDraft)
}

func buildOrganizePrompt(topic string, focus string, material string) string {
	if strings.TrimSpace(topic) == "" {
		topic = "the collected material"
	}
	focusLine := ""
	if strings.TrimSpace(focus) != "" {
		focusLine = "\nFOCUS AREAS: " + strings.TrimSpace(focus)
	}
	return fmt.Sprintf(`You are an expert research assistant organizing academic sources.
Summarize the material below into structured research notes.
- Use markdown with exactly these headings: Overview, Key Themes, Methodologies, Key Findings, Research Gaps, Relevant Citations.
- Refer to sources by the citation keys given in the material.
- Output ONLY the notes.

RESEARCH TOPIC: %s%s
SOURCES:
%s`, topic, focusLine, material)
}

func buildOutlinePrompt(topic string, sectionCount int, notes string) string {
	return fmt.Sprintf(`You are an expert academic writer designing the outline of a research paper.
Produce a section plan an author can draft from.
- Give each section 2-4 objectives and 4-8 key points.
- Return a JSON object only. No extra text.

PAPER TOPIC: %s
TARGET SECTIONS: %d
RESEARCH NOTES:
%s

Output JSON matching this structure:
{"sections":[{"id":"introduction","title":"Introduction","level":1,"order":1,"objectives":["..."],"key_points":["..."],"word_target":800,"guidance":"notes for the writer"}]}`,
		topic, sectionCount, notes)
}

func bulletList(items []string) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		lines = append(lines, "- "+item)
	}
	return strings.Join(lines, "\n")
}
