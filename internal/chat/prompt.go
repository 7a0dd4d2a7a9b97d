package chat

import (
	"fmt"

	"github.com/suPer8Hu/ai-assistant/internal/ai"
)

// NoFileContext stands in for uploaded-data context until uploads are stored.
const NoFileContext = "No file data currently available. Uploaded CSV data will be included here once file storage is supported."

const systemPromptTemplate = `You are an AI assistant that helps with data analysis and general tasks.

Available data context:
%s

Please provide helpful and accurate responses based on the user's questions and available data.`

// BuildPrompt assembles the provider input: the system instruction, the given
// history (expected oldest first) and the current user message.
func BuildPrompt(fileContext string, history []ChatLog, current string) []ai.Message {
	out := make([]ai.Message, 0, len(history)+2)
	out = append(out, ai.Message{
		Role:    ai.RoleSystem,
		Content: fmt.Sprintf(systemPromptTemplate, fileContext),
	})
	for _, l := range history {
		role := ai.RoleUser
		if l.Speaker == SpeakerAssistant {
			role = ai.RoleAssistant
		}
		out = append(out, ai.Message{Role: role, Content: l.Message})
	}
	out = append(out, ai.Message{Role: ai.RoleUser, Content: current})
	return out
}

// chronological reverses a newest-first slice in place.
func chronological(desc []ChatLog) []ChatLog {
	for i, j := 0, len(desc)-1; i < j; i, j = i+1, j-1 {
		desc[i], desc[j] = desc[j], desc[i]
	}
	return desc
}
