package models

const (
	ThinkTag           = `(?s)<think>.*?</think>`
	WordRegex          = `\b\w+\b`
	CandidateSeparator = "\n---\n"
	SuggestionsMarker  = "Suggestions:"
	AnalysisMarker     = "Analysis:"
)

// operation kinds stored on history records
const (
	OperationSummarize  = "summarize"
	OperationParaphrase = "paraphrase"
)

// length selectors
const (
	LengthShort  = "short"
	LengthMedium = "medium"
	LengthLong   = "long"
)

var (
	SummarizePromptTemplate = `Summarize the following text. The summary must be between %d and %d words long.
Answer only with the summary and nothing else.

<text>
%s
</text>
`

	ParaphrasePromptTemplate = `Paraphrase the following text. Keep its meaning, change its wording.
The paraphrase must be between %d and %d words long. Answer only with the paraphrased text and nothing else.

<text>
%s
</text>
`

	InsightPromptTemplate = `Analyze the following text for readability and tone. Provide two sections in your response:
1. **Analysis:** A brief, one-paragraph analysis of the text's complexity, style, and overall tone.
2. **Suggestions:** A bulleted list of 3-4 specific, actionable suggestions to improve the text's clarity and readability.

Here is the text:
---
%s
`

	SentimentPromptTemplate = `Classify the sentiment of the following text as positive, neutral or negative.
Answer only with a JSON object of the form {"label": "<positive|neutral|negative>", "score": <confidence between 0 and 1>}.

<text>
%s
</text>
`
)
