package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"

	"ecoquest-service/internal/domain"
)

// Analysis is the post-quiz feedback report.
type Analysis struct {
	Analysis   string   `json:"analysis"`
	Feedback   string   `json:"feedback"`
	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
}

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// Analyze summarizes a completed quiz. Provider failures (or rules-only mode)
// fall back to a scored mock analysis so the completion screen always has
// content.
func (a *Assistant) Analyze(ctx context.Context, topicTitle string, results []domain.AnswerRecord) Analysis {
	if a.provider == nil {
		return mockAnalysis(topicTitle, results)
	}

	var sb strings.Builder
	correct := 0
	for _, r := range results {
		if r.Correct {
			correct++
		}
		fmt.Fprintf(&sb, "Question: %s\nStudent answered: %s\nCorrect answer: %s\nWas correct: %v\n\n",
			r.Prompt, orNone(r.GivenOption), r.CorrectOption, r.Correct)
	}
	prompt := fmt.Sprintf(
		`A student completed a quiz on %q and scored %d of %d.

%s
Respond with a JSON object: {"analysis": "...", "feedback": "...", "strengths": ["..."], "weaknesses": ["..."]}`,
		topicTitle, correct, len(results), sb.String())

	text, err := a.provider.Generate(ctx, prompt, systemInstruction)
	if err != nil {
		log.Printf("quiz analysis provider failed, using mock analysis: %v", err)
		return mockAnalysis(topicTitle, results)
	}
	if match := jsonObjectPattern.FindString(text); match != "" {
		var analysis Analysis
		if err := json.Unmarshal([]byte(match), &analysis); err == nil && analysis.Analysis != "" {
			return analysis
		}
	}
	return mockAnalysis(topicTitle, results)
}

func mockAnalysis(topicTitle string, results []domain.AnswerRecord) Analysis {
	correct := 0
	for _, r := range results {
		if r.Correct {
			correct++
		}
	}
	score := 0
	if len(results) > 0 {
		score = correct * 100 / len(results)
	}

	switch {
	case score >= 80:
		return Analysis{
			Analysis:   "Excellent performance! You have a strong understanding of " + topicTitle + ".",
			Feedback:   "While your overall performance is strong, reviewing the few concepts you missed will get you to mastery.",
			Strengths:  []string{"Strong conceptual understanding", "Good application of knowledge"},
			Weaknesses: []string{"A few minor misconceptions"},
		}
	case score >= 60:
		return Analysis{
			Analysis:   "Good performance. You have a solid foundation in " + topicTitle + " with room to grow.",
			Feedback:   "Focus on the questions you missed and revisit their explanations.",
			Strengths:  []string{"Good basic knowledge", "Understanding of core concepts"},
			Weaknesses: []string{"Some gaps in knowledge"},
		}
	default:
		return Analysis{
			Analysis:   "You're making progress with " + topicTitle + ", but the fundamentals need more work.",
			Feedback:   "Don't be discouraged! Retake the quiz after reading the explanations and the score will follow.",
			Strengths:  []string{"Willingness to learn"},
			Weaknesses: []string{"Fundamental knowledge gaps"},
		}
	}
}

func orNone(option string) string {
	if option == "" {
		return "(no answer)"
	}
	return option
}
