package llm

import "fmt"

const answerSystemInstruction = "You are NewsMind, a helpful personal news assistant. " +
	"You must base your answers ONLY on the article summaries provided to you. " +
	"If the answer is not in the summaries, you must say you don't know."

func summaryPrompt(title, text string, maxBullets int) string {
	return fmt.Sprintf("Summarize the following article in %d bullet points:\nTitle: %s\n\nContent:\n%s", maxBullets, title, text)
}

func sentimentPrompt(text string) string {
	return fmt.Sprintf("Classify the overall sentiment of the following news text. "+
		"Reply with exactly one word: positive, neutral, or negative.\n\n%s", text)
}

// answerPrompt embeds the grounding context into the user turn. With no
// context available the model is told to say it cannot answer.
func answerPrompt(question, contextText string) string {
	if contextText == "" {
		return fmt.Sprintf("User question:\n%s\n\n"+
			"There are currently no relevant news summaries available in the database. "+
			"Explain that you cannot answer based on the available data.", question)
	}
	return fmt.Sprintf("User question:\n%s\n\n"+
		"Here are relevant news summaries:\n%s\n\n"+
		"Using ONLY the information in these summaries, answer the user's question concisely. "+
		"If the information is not covered, say that you don't know based on the available news.", question, contextText)
}
