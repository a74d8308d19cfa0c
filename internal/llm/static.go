package llm

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/rag"
)

type wordEntry struct {
	explanation  string
	context      string
	etymology    string
	alternatives string
}

var demoWords = map[string]wordEntry{
	"photosynthesis": {
		explanation:  "Photosynthesis is the process by which green plants and some other organisms use sunlight to synthesize foods with the help of chlorophyll.",
		context:      "In biology, photosynthesis is fundamental to understanding how plants produce energy and release oxygen that supports life on Earth.",
		etymology:    "From Greek 'photos' (light) and 'synthesis' (putting together), literally meaning 'putting together with light'.",
		alternatives: "light synthesis, chlorophyll process, plant energy production, carbon fixation",
	},
	"dna": {
		explanation:  "DNA (deoxyribonucleic acid) is the hereditary material that contains genetic instructions for the development of all living organisms.",
		context:      "In genetics, DNA is the molecule that stores genetic information and passes traits from parents to offspring.",
		etymology:    "Named for its chemical structure: 'deoxy' (lacking oxygen), 'ribose' (a sugar), and 'nucleic acid'.",
		alternatives: "genetic material, hereditary molecule, genetic code, genome",
	},
	"cell": {
		explanation:  "Cells are the smallest structural and functional units of life, containing all the necessary components for an organism to survive.",
		context:      "In cell biology, understanding cell structure and function is essential for comprehending how all living organisms operate.",
		etymology:    "From Latin 'cella' meaning 'small room', named by Robert Hooke who observed cork cells under a microscope.",
		alternatives: "cellular unit, biological unit, life unit, organism building block",
	},
}

// StaticGenerator answers offline from built-in templates. It is used when
// no hosted model is configured.
type StaticGenerator struct{}

func NewStaticGenerator() *StaticGenerator { return &StaticGenerator{} }

func (StaticGenerator) Generate(_ context.Context, req rag.GenerationRequest) (string, error) {
	subject := req.Subject
	if subject == "" {
		subject = rag.DefaultSubject
	}
	if req.Task == rag.TaskDefineWord {
		return staticWord(req.Query, subject), nil
	}
	return staticTopic(req.Query, subject, req.Chunks), nil
}

func staticTopic(topic, subject string, chunks []rag.RetrievedChunk) string {
	content := "General " + subject + " information"
	if len(chunks) > 0 {
		content = strings.TrimSpace(chunks[0].Text)
	}

	var b strings.Builder
	b.WriteString("**INTRODUCTION**\n\n")
	fmt.Fprintf(&b, "%s is an important concept in %s. %s This topic is fundamental to understanding how living organisms function and interact with their environment. Students studying this topic should focus on the key mechanisms and processes involved.\n\n", titleCase(topic), subject, content)
	b.WriteString("**LEARNING PATHWAYS**\n\n")
	b.WriteString("1. Cell Structure: Understanding cellular components will help you grasp how biological processes occur at the molecular level\n")
	b.WriteString("2. Biochemical Processes: Learning about enzymes and metabolic pathways builds upon the basic concepts introduced here\n")
	b.WriteString("3. Ecological Relationships: Exploring how organisms interact in ecosystems provides real-world context for these biological principles\n\n")
	b.WriteString("**MCQ QUESTION**\n\n")
	fmt.Fprintf(&b, "Question: What is a key characteristic of the biological process described in %s?\n", topic)
	b.WriteString("A) It only occurs in plant cells\n")
	b.WriteString("B) It requires specific molecular components and conditions\n")
	b.WriteString("C) It happens without any energy input\n")
	b.WriteString("D) It is the same in all living organisms\n")
	b.WriteString("Correct Answer: B - Biological processes typically require specific molecular components and optimal conditions to function properly.")
	return b.String()
}

func staticWord(word, usage string) string {
	if e, ok := demoWords[strings.ToLower(strings.TrimSpace(word))]; ok {
		return fmt.Sprintf("Explanation: %s\nContext: %s\nEtymology: %s\nAlternative Words: %s",
			e.explanation, e.context, e.etymology, e.alternatives)
	}
	return fmt.Sprintf("Explanation: %s is an important term in %s.\n"+
		"Context: This term is commonly used in %s to describe key concepts and processes.\n"+
		"Etymology: The word has roots in scientific terminology developed over centuries of study.\n"+
		"Alternative Words: concept, term, element, component",
		titleCase(word), usage, usage)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

var _ rag.Generator = StaticGenerator{}
