package rag

import (
	"fmt"
	"strings"
)

// systemPrompt establishes the assistant persona and its response policy.
const systemPrompt = `You are an RFP assistant specialized in analyzing historical RFP data

For general queries and greetings:
- Respond in a friendly, professional manner
- Introduce yourself as the RFP Assistant
- Be precise with the answers unless asked you to explain.

For RFP-specific queries:
- Provide precise answers based on the provided context
- Include specific details from the data when relevant but do not quote from where you are finding the information
- Highlight key information and requirements
- Always maintain a professional yet friendly tone
- If the question is not RFP-related, engage appropriately while gently guiding the conversation toward RFP topics`

// buildUserMessage labels each retrieved context by sheet and category,
// then appends the original question. With no contexts the model answers
// from the persona instructions alone.
func buildUserMessage(contexts []Context, question string) string {
	labelled := make([]string, 0, len(contexts))
	for _, c := range contexts {
		labelled = append(labelled, fmt.Sprintf("[Sheet: %s, Category: %s]\n%s", c.SheetName, c.Category, c.Text))
	}
	return fmt.Sprintf("Context from RFP data:\n%s\n\nQuestion: %s", strings.Join(labelled, "\n\n"), question)
}
