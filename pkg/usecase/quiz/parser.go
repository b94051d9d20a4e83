package quiz

import (
	"regexp"
	"strings"

	"github.com/memento-care/memento/pkg/model"
)

var (
	questionMarker = regexp.MustCompile(`^Q\d+:\s*(.*)$`)
	optionMarker   = regexp.MustCompile(`^([A-D])[.)]\s*(.*)$`)
)

const (
	correctMarker     = "CORRECT:"
	explanationMarker = "EXPLANATION:"
	categoryMarker    = "CATEGORY:"
)

// ParseQuestions parses generated quiz text in the line-oriented format
// (Q<n>:, A.-D., CORRECT:, EXPLANATION:, CATEGORY:). A question marker
// flushes the previous question only if it already has question text.
// Lines that match no marker are ignored. A question keeps whatever
// fields its markers provided; a missing CORRECT line stays absent.
func ParseQuestions(text string) []*model.QuizQuestion {
	var questions []*model.QuizQuestion
	var current *model.QuizQuestion

	flush := func() {
		if current != nil && current.Text != "" {
			questions = append(questions, current)
		}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := questionMarker.FindStringSubmatch(line); m != nil {
			flush()
			current = &model.QuizQuestion{
				ID:   model.NewQuestionID(),
				Text: strings.TrimSpace(m[1]),
			}
			continue
		}
		if current == nil {
			continue
		}

		if m := optionMarker.FindStringSubmatch(line); m != nil {
			current.Options = append(current.Options, model.QuizOption{
				ID:   m[1],
				Text: strings.TrimSpace(m[2]),
			})
			continue
		}

		switch {
		case strings.HasPrefix(line, correctMarker):
			value := strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(line, correctMarker)))
			if len(value) > 0 {
				letter := value[:1]
				if model.ValidOption(letter) {
					current.CorrectAnswer = letter
				}
			}
		case strings.HasPrefix(line, explanationMarker):
			current.Explanation = strings.TrimSpace(strings.TrimPrefix(line, explanationMarker))
		case strings.HasPrefix(line, categoryMarker):
			current.Category = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(line, categoryMarker)))
		}
	}
	flush()

	return questions
}
