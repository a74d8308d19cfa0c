package rag

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const DefaultSubject = "biology"

// PromptBuilder renders the topic-explanation prompt. The three section
// headers are parsed back by ParseSections and must not change.
type PromptBuilder struct {
	Subject string
	// Language, when set to anything but English, adds a line asking the
	// model to answer in that language.
	Language string
}

func (p PromptBuilder) subject() string {
	s := strings.TrimSpace(p.Subject)
	if s == "" {
		return DefaultSubject
	}
	return strings.ToLower(s)
}

func (p PromptBuilder) SystemInstruction() string {
	s := p.subject()
	return fmt.Sprintf("You are a %s expert and educational guide. Using the provided textbook context, write comprehensive and educational content for %s students.", s, s)
}

func (p PromptBuilder) Build(query, context string) string {
	s := p.subject()
	var b strings.Builder
	fmt.Fprintf(&b, "Using the following %s textbook context, provide a comprehensive response about: %s\n\n", s, query)
	fmt.Fprintf(&b, "Context from %s Textbook:\n%s\n\n", titleWord(s), context)
	b.WriteString("Provide a response with THREE sections:\n\n")
	b.WriteString("**INTRODUCTION (approximately 200-250 words):**\n")
	b.WriteString("- Introduce the topic clearly with scientific accuracy\n")
	b.WriteString("- Explain key concepts using examples from the context\n")
	fmt.Fprintf(&b, "- Make it engaging and educational for %s students\n\n", s)
	b.WriteString("**LEARNING PATHWAYS (3 recommendations):**\n")
	b.WriteString("Suggest 3 specific next topics or areas the student should explore to deepen their understanding:\n")
	b.WriteString("1. [Topic]: Brief explanation of why this is valuable to learn next\n")
	b.WriteString("2. [Topic]: Brief explanation of how this builds on the current topic\n")
	b.WriteString("3. [Topic]: Brief explanation of real-world applications or advanced concepts\n\n")
	b.WriteString("**MCQ QUESTION:**\n")
	b.WriteString("Create 1 multiple-choice question to test understanding of the topic just explained:\n")
	b.WriteString("Question: [Clear, specific question about the topic]\n")
	b.WriteString("A) [Option]\n")
	b.WriteString("B) [Option]\n")
	b.WriteString("C) [Option]\n")
	b.WriteString("D) [Option]\n")
	b.WriteString("Correct Answer: [Letter] - [Brief explanation why this is correct]")
	if lang := strings.TrimSpace(p.Language); lang != "" && !isEnglish(lang) {
		fmt.Fprintf(&b, "\n\nWrite the entire response in %s, keeping the section headers exactly as written above.", lang)
	}
	return b.String()
}

const wordSystemInstruction = "You are an educational assistant specializing in providing clear, accurate word definitions and etymologies. Always format your responses exactly as requested."

// BuildWordPrompt renders the four-line word explanation prompt.
func BuildWordPrompt(word, usage string) string {
	return fmt.Sprintf(`Provide a comprehensive explanation for the word "%s" in the context of %s.

Format your response exactly as follows:

Explanation: [Provide a clear, concise definition in 1-2 sentences]
Context: [Explain how this word is used in %s context, with a specific example]
Etymology: [Provide the origin and historical development of the word]
Alternative Words: [List 3-4 synonyms or related terms, separated by commas]

Make sure the explanation is educational and appropriate for students. Focus on accuracy and clarity.`, word, usage, usage)
}

func titleWord(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
