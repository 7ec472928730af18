package summarizer

import "strings"

const instructionTemplate = `You are the lead analyst of a financial news desk. Analyze the article text and prepare a professional, structured post for a Telegram channel.
Reply only in {language} and follow the Markdown layout below exactly, translating the headings into {language}. Do not add comments or introductory phrases. Start the reply directly with the headline.

{emoji} **{title}**

*Summarize the core of the news in 2-3 sentences. Use professional but clear language. Explain why it matters.*

**Details:**
- A key fact or figure from the article.
- The context or cause of what happened.
- Possible consequences for the market or the industry.

*(Generate 3 relevant hashtags in {language}, for example: #mining #regulation #bitcoin)*`

// Instruction renders the post layout for one article.
func Instruction(emoji, title, language string) string {
	return strings.NewReplacer(
		"{emoji}", emoji,
		"{title}", title,
		"{language}", language,
	).Replace(instructionTemplate)
}
