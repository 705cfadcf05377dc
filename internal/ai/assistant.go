package ai

import (
	"context"
	"log"
	"strings"
)

// Apology is the canned reply surfaced when the generative provider fails
// and no keyword rule applies any better. The assistant never errors out to
// the user.
const Apology = "Sorry, I'm having trouble thinking right now. Ask me about recycling, energy, water, or climate and I'll do my best!"

const systemInstruction = "You are EcoBuddy, a friendly environmental education assistant for students. Keep answers short, encouraging, and factual."

// rule maps a keyword list to a scripted reply. Rules are matched in order;
// the first rule with any keyword contained in the message wins.
type rule struct {
	keywords []string
	reply    string
}

func defaultRules() []rule {
	return []rule{
		{[]string{"tip", "advice", "help"},
			"Here's a tip: small habits add up! Try carrying a reusable bottle, switching off unused lights, and taking a quiz here to learn more."},
		{[]string{"quiz", "test", "question"},
			"Head to the quiz section and pick a topic — every correct answer earns you 10 eco points and experience!"},
		{[]string{"progress", "level", "achievement", "badge"},
			"Your dashboard shows your level, eco points, and badges. Finish quizzes to level up and unlock new badges."},
		{[]string{"climate", "global warming"},
			"Climate change is driven mostly by greenhouse gases from burning fossil fuels. Using clean energy and wasting less are the biggest levers we have."},
		{[]string{"pollution", "air quality"},
			"Air pollution comes largely from traffic and industry. Walking, cycling, and public transport all help keep the air cleaner."},
		{[]string{"water", "conservation"},
			"Only about 3% of Earth's water is fresh. Shorter showers and fixing leaks save a surprising amount."},
		{[]string{"recycle", "waste", "trash"},
			"Remember the three Rs in order: reduce first, then reuse, then recycle. Rinse containers before they go in the bin!"},
		{[]string{"energy", "electricity", "power"},
			"Renewables like wind and solar keep growing cheaper. At home, unplugging idle chargers and using LED bulbs makes a real dent."},
		{[]string{"hello", "hi", "hey"},
			"Hi there! I'm EcoBuddy 🌱 Ask me anything about the environment, or try a quiz to earn eco points."},
	}
}

const fallbackReply = "That's a great question! I know most about climate, recycling, energy, water, and wildlife — try asking about one of those."

// Assistant answers chat messages: a generative provider when configured,
// scripted keyword rules otherwise (and whenever the provider fails).
type Assistant struct {
	provider Provider
	rules    []rule
}

// NewAssistant wires an assistant; provider may be nil for rules-only mode.
func NewAssistant(provider Provider) *Assistant {
	return &Assistant{provider: provider, rules: defaultRules()}
}

// Reply produces the assistant's answer as a channel of text chunks. The
// channel is always closed after the full reply; errors never escape to the
// caller, they degrade to the scripted reply or the canned apology.
func (a *Assistant) Reply(ctx context.Context, message string) <-chan string {
	text := a.replyText(ctx, message)
	return chunk(text)
}

func (a *Assistant) replyText(ctx context.Context, message string) string {
	if a.provider != nil {
		text, err := a.provider.Generate(ctx, message, systemInstruction)
		if err == nil && strings.TrimSpace(text) != "" {
			return text
		}
		if err != nil {
			log.Printf("assistant provider failed, using scripted reply: %v", err)
		}
	}
	return a.scripted(message)
}

func (a *Assistant) scripted(message string) string {
	lower := strings.ToLower(message)
	for _, r := range a.rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.reply
			}
		}
	}
	if strings.TrimSpace(lower) == "" {
		return Apology
	}
	return fallbackReply
}

// chunkSize is in runes; chunks land on word boundaries where possible.
const chunkSize = 48

func chunk(text string) <-chan string {
	ch := make(chan string, 4)
	go func() {
		defer close(ch)
		words := strings.Fields(text)
		if len(words) == 0 {
			ch <- text
			return
		}
		var b strings.Builder
		for _, w := range words {
			if b.Len() > 0 && b.Len()+1+len(w) > chunkSize {
				ch <- b.String()
				b.Reset()
			}
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(w)
		}
		if b.Len() > 0 {
			ch <- b.String()
		}
	}()
	return ch
}
