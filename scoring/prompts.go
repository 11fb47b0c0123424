package scoring

import (
	"fmt"
	"strings"
)

// EvaluationRequest carries one transcript plus the question metadata the
// examiner prompt needs for context.
type EvaluationRequest struct {
	PartNumber   int
	QuestionText string
	Topic        string
	Transcript   string
}

const evaluationPromptTemplate = `You are a certified IELTS speaking examiner. Evaluate the candidate's spoken answer below using the official IELTS speaking band descriptors.

INSTRUCTIONS:
1. Score each criterion from 0.0 to 9.0 in 0.5 increments
2. Judge only what is in the transcript; do not invent content
3. A very short or off-topic answer must be penalized in fluency_coherence
4. feedback must be 2-4 sentences of specific, actionable advice
5. Return ONLY valid JSON, no markdown and no comments

CRITERIA:
- fluency_coherence: flow, hesitation, linking of ideas
- lexical_resource: vocabulary range and precision
- grammatical_range_accuracy: structure variety and correctness
- pronunciation: judged from transcription artifacts only, be lenient

TEST CONTEXT:
%s

QUESTION:
%s

CANDIDATE TRANSCRIPT:
%s

ANSWER (only JSON):
{"fluency_coherence": 0.0, "lexical_resource": 0.0, "grammatical_range_accuracy": 0.0, "pronunciation": 0.0, "feedback": ""}`

// BuildEvaluationPrompt renders the strict-JSON examiner prompt for one answer.
func BuildEvaluationPrompt(req EvaluationRequest) string {
	return fmt.Sprintf(
		evaluationPromptTemplate,
		partContext(req.PartNumber, req.Topic),
		strings.TrimSpace(req.QuestionText),
		strings.TrimSpace(req.Transcript),
	)
}

func partContext(partNumber int, topic string) string {
	var desc string
	switch partNumber {
	case 1:
		desc = "Part 1: introduction and interview, short direct answers expected"
	case 2:
		desc = "Part 2: extended monologue, the candidate speaks for up to two minutes after one minute of preparation"
	case 3:
		desc = "Part 3: two-way discussion, abstract and extended answers expected"
	default:
		desc = "General speaking practice"
	}
	if topic != "" {
		desc += "\nTopic: " + topic
	}
	return desc
}
