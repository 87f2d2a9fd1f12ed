package types

import "strings"

// EssaySection is one titled body section of an essay.
type EssaySection struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	WordCount int    `json:"word_count,omitempty"`
}

// EssayOutput is the structured essay produced by the drafting, humanizing,
// refining and structuring stages. It is the shape every structured
// generation call is validated against.
type EssayOutput struct {
	Title           string         `json:"title"`
	ThesisStatement string         `json:"thesis_statement"`
	Introduction    string         `json:"introduction"`
	BodySections    []EssaySection `json:"body_sections"`
	Conclusion      string         `json:"conclusion"`
	References      []string       `json:"references,omitempty"`
	TotalWordCount  int            `json:"total_word_count,omitempty"`
	AcademicLevel   string         `json:"academic_level,omitempty"`
	AIFeedback      string         `json:"ai_feedback,omitempty"`
}

// WordCount returns the word count of the essay body (introduction, body
// sections and conclusion), excluding references.
func (e *EssayOutput) WordCount() int {
	total := countWords(e.Introduction) + countWords(e.Conclusion)
	for _, s := range e.BodySections {
		total += countWords(s.Content)
	}
	return total
}

func countWords(text string) int {
	return len(strings.Fields(text))
}
