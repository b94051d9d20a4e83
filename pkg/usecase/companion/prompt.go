package companion

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"github.com/memento-care/memento/pkg/model"
)

//go:embed prompt/companion.md
var companionPromptRaw string

var companionPromptTmpl = template.Must(template.New("companion").Parse(companionPromptRaw))

// buildPrompt renders the companion prompt for one patient message.
// Retrieved memories are enumerated with their type and relevance so the
// generator can weigh them.
func buildPrompt(patient *model.Patient, memories []*model.ScoredChunk, message string) (string, error) {
	lines := make([]string, 0, len(memories))
	for i, m := range memories {
		lines = append(lines, fmt.Sprintf("%d. %s (Type: %s, Relevance: %.2f)",
			i+1, m.Chunk.Summary, m.Chunk.Metadata.Type, m.Similarity))
	}

	name := patient.FirstName()
	if name == "" {
		name = "my friend"
	}

	var buf bytes.Buffer
	if err := companionPromptTmpl.Execute(&buf, map[string]any{
		"Name":       name,
		"Hometown":   patient.PersonalInfo.Hometown,
		"Occupation": patient.PersonalInfo.Occupation,
		"Hobbies":    strings.Join(patient.PersonalInfo.Hobbies, ", "),
		"Memories":   lines,
		"Message":    message,
	}); err != nil {
		return "", goerr.Wrap(err, "failed to execute companion prompt template")
	}

	return buf.String(), nil
}
