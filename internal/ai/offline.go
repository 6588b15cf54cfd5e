package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// offlineProvider answers pipeline prompts without calling any remote
// service. Output is deterministic for a given prompt, which makes it
// usable both as the last entry of a failover chain and for air-gapped
// runs. It reads the uppercase field labels emitted by the prompt
// builders in prompts.go.
type offlineProvider struct{}

var citeMarkerPattern = regexp.MustCompile(`\[CITE:([^\]\s]+)\]`)

func (p *offlineProvider) Name() string {
	return "offline"
}

func (p *offlineProvider) Generate(ctx context.Context, model string, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", classify(err)
	}
	_ = model
	switch {
	case strings.Contains(prompt, "\nCURRENT DRAFT:"):
		return p.revise(prompt), nil
	case strings.Contains(prompt, "\nPAPER TOPIC:"):
		return p.outline(prompt), nil
	case strings.Contains(prompt, "\nRESEARCH TOPIC:"):
		return p.organize(prompt), nil
	case strings.Contains(prompt, "\nSECTION:"):
		return p.draft(prompt), nil
	default:
		return "", fmt.Errorf("offline provider cannot answer this prompt")
	}
}

func (p *offlineProvider) draft(prompt string) string {
	title := labelValue(prompt, "SECTION:")
	if title == "" {
		title = "This section"
	}
	objectives := bulletItems(labelBlock(prompt, "OBJECTIVES:"))
	points := bulletItems(labelBlock(prompt, "KEY POINTS:"))
	keys := citeKeys(labelBlock(prompt, "SOURCE MATERIAL:"))

	var b strings.Builder
	fmt.Fprintf(&b, "%s opens by situating the discussion within the assembled source material.", title)
	if len(objectives) == 0 {
		b.WriteString(" The treatment follows the outline guidance for this part of the paper.")
	}
	for i, obj := range objectives {
		b.WriteString(" ")
		b.WriteString(capitalizeFirst(strings.TrimRight(obj, ".")))
		if len(keys) > 0 {
			fmt.Fprintf(&b, " [CITE:%s]", keys[i%len(keys)])
		}
		b.WriteString(".")
	}
	b.WriteString("\n\n")
	if len(points) > 0 {
		b.WriteString("The collected material supports several concrete points.")
		for i, pt := range points {
			b.WriteString(" ")
			b.WriteString(capitalizeFirst(strings.TrimRight(pt, ".")))
			if len(keys) > 0 {
				fmt.Fprintf(&b, " [CITE:%s]", keys[(i+1)%len(keys)])
			}
			b.WriteString(".")
		}
	} else {
		b.WriteString("The collected material is summarized here in the order it was gathered.")
	}
	b.WriteString("\n\n")
	b.WriteString("Taken together, the observations above establish what this section contributes to the paper as a whole.")
	return b.String()
}

func (p *offlineProvider) revise(prompt string) string {
	draft := labelBlock(prompt, "CURRENT DRAFT:")
	feedback := strings.Join(strings.Fields(labelBlock(prompt, "FEEDBACK:")), " ")
	if feedback == "" {
		feedback = "tighten wording and transitions"
	}
	var b strings.Builder
	b.WriteString(draft)
	if draft != "" {
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "This revision addresses the review notes: %s", feedback)
	return b.String()
}

func (p *offlineProvider) organize(prompt string) string {
	topic := labelValue(prompt, "RESEARCH TOPIC:")
	if topic == "" {
		topic = "the collected material"
	}
	keys := citeKeys(labelBlock(prompt, "SOURCES:"))

	var b strings.Builder
	b.WriteString("## Overview\n")
	fmt.Fprintf(&b, "Working notes on %s drawn from %d cited sources.\n\n", topic, len(keys))
	b.WriteString("## Key Themes\n- Shared terminology and recurring concerns across the collected sources.\n\n")
	b.WriteString("## Methodologies\n- Methods as reported by the individual sources.\n\n")
	b.WriteString("## Key Findings\n- Findings with direct bearing on the paper topic.\n\n")
	b.WriteString("## Research Gaps\n- Questions the collected sources leave open.\n\n")
	b.WriteString("## Relevant Citations\n")
	if len(keys) == 0 {
		b.WriteString("- none recorded")
	}
	for i, k := range keys {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- [CITE:%s]", k)
	}
	return b.String()
}

func (p *offlineProvider) outline(prompt string) string {
	topic := labelValue(prompt, "PAPER TOPIC:")
	if topic == "" {
		topic = "the paper topic"
	}
	count, _ := strconv.Atoi(labelValue(prompt, "TARGET SECTIONS:"))
	if count <= 0 {
		count = 5
	}
	base := []string{"Introduction", "Background", "Approach", "Evaluation", "Discussion", "Related Work", "Limitations", "Future Work"}
	if count > len(base)+1 {
		count = len(base) + 1
	}
	var titles []string
	if count == 1 {
		titles = []string{"Introduction"}
	} else {
		titles = append(append(titles, base[:count-1]...), "Conclusion")
	}

	sections := make([]OutlineSection, 0, len(titles))
	for i, title := range titles {
		sections = append(sections, OutlineSection{
			ID:    SectionSlug(title),
			Title: title,
			Level: 1,
			Order: i + 1,
			Objectives: []string{
				fmt.Sprintf("Explain how %s relates to %s", strings.ToLower(title), topic),
				"Ground every claim in the collected sources",
			},
			KeyPoints: []string{
				"Summarize the relevant source material",
				"Connect the discussion to the paper topic",
				"Flag open questions for later sections",
			},
			WordTarget: 800,
		})
	}
	data, _ := json.Marshal(struct {
		Sections []OutlineSection `json:"sections"`
	}{Sections: sections})
	return string(data)
}

// labelValue returns the remainder of the first line starting with label.
func labelValue(prompt, label string) string {
	for _, line := range strings.Split(prompt, "\n") {
		if strings.HasPrefix(line, label) {
			return strings.TrimSpace(strings.TrimPrefix(line, label))
		}
	}
	return ""
}

var promptBlockLabels = []string{
	"SECTION:", "WORD TARGET:", "OBJECTIVES:", "KEY POINTS:", "GUIDANCE:",
	"SOURCE MATERIAL:", "FEEDBACK:", "CURRENT DRAFT:",
	"RESEARCH TOPIC:", "FOCUS AREAS:", "SOURCES:",
	"PAPER TOPIC:", "TARGET SECTIONS:", "RESEARCH NOTES:",
}

// labelBlock returns everything after label up to the next known label at
// the start of a line, or the end of the prompt.
func labelBlock(prompt, label string) string {
	idx := strings.Index(prompt, label)
	if idx < 0 {
		return ""
	}
	rest := prompt[idx+len(label):]
	end := len(rest)
	for _, other := range promptBlockLabels {
		if other == label {
			continue
		}
		if j := strings.Index(rest, "\n"+other); j >= 0 && j < end {
			end = j
		}
	}
	return strings.TrimSpace(rest[:end])
}

func bulletItems(block string) []string {
	var items []string
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "- "))
		if line == "" || line == "-" {
			continue
		}
		items = append(items, line)
	}
	return items
}

// citeKeys collects the distinct citation keys referenced in text, in
// first-appearance order.
func citeKeys(text string) []string {
	matches := citeMarkerPattern.FindAllStringSubmatch(text, -1)
	seen := make(map[string]bool)
	keys := make([]string, 0, len(matches))
	for _, m := range matches {
		key := strings.ToLower(strings.TrimSpace(m[1]))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	return keys
}

func capitalizeFirst(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func createOfflineFactory(args interface{}) (IProvider, error) {
	_ = args
	return &offlineProvider{}, nil
}

func init() {
	Register("offline", createOfflineFactory)
}
