package rag

import (
	"regexp"
	"strings"
)

// Sections is a generated answer split by its three headers.
type Sections struct {
	Introduction     string   `json:"introduction"`
	LearningPathways []string `json:"learningPathways"`
	MCQQuestion      string   `json:"mcqQuestion"`
}

var (
	sectionHeader = regexp.MustCompile(`(?i)\*\*\s*(INTRODUCTION|LEARNING PATHWAYS|MCQ QUESTION)[^*\n]*\*\*:?`)
	numberedLine  = regexp.MustCompile(`^\s*\d+\.`)
)

// ParseSections extracts the sections of an answer. Missing headers leave
// their field empty.
func ParseSections(answer string) Sections {
	var out Sections
	locs := sectionHeader.FindAllStringSubmatchIndex(answer, -1)
	for i, loc := range locs {
		end := len(answer)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		body := strings.TrimSpace(answer[loc[1]:end])
		switch strings.ToUpper(answer[loc[2]:loc[3]]) {
		case "INTRODUCTION":
			if out.Introduction == "" {
				out.Introduction = body
			}
		case "LEARNING PATHWAYS":
			if out.LearningPathways == nil {
				out.LearningPathways = pathwayLines(body)
			}
		case "MCQ QUESTION":
			if out.MCQQuestion == "" {
				out.MCQQuestion = body
			}
		}
	}
	if out.LearningPathways == nil {
		out.LearningPathways = []string{}
	}
	return out
}

func pathwayLines(body string) []string {
	lines := []string{}
	for _, line := range strings.Split(body, "\n") {
		if numberedLine.MatchString(line) {
			lines = append(lines, strings.TrimSpace(line))
		}
	}
	return lines
}
