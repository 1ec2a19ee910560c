// Package chat bridges the banking app to an external generative-AI service.
// The bridge assembles a prompt from the policy catalog, the caller's account
// context, and the retained conversation history, then asks the injected
// Completer for a reply. Provider failures degrade to an apologetic reply
// string; they are never surfaced as hard errors to the caller.
package chat

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/marcusleow/bankline-be/internal/models"
)

const systemInstruction = "You are the in-app investment assistant for a retail banking demo. " +
	"Answer questions about the listed investment policies and general saving habits. " +
	"Users may hold at most two policies at a time. Be concise and never invent " +
	"products outside the catalog. Do not give regulated financial advice; frame " +
	"suggestions as educational."

const fallbackReply = "Sorry, the investment assistant is unavailable right now. Please try again in a moment."

// UserContext is the caller-specific data serialized into the prompt.
type UserContext struct {
	Username string
	Balance  string
	Enrolled []models.Policy
}

// Bridge owns prompt assembly and conversation state for the advisor chat.
type Bridge struct {
	completer Completer
	history   *History
	catalog   []models.Policy
}

// NewBridge wires a bridge from its dependencies.
func NewBridge(completer Completer, history *History, catalog []models.Policy) *Bridge {
	return &Bridge{completer: completer, history: history, catalog: catalog}
}

// Ask forwards one user message and returns the assistant's reply. The
// exchange is appended to the user's history only when the provider answered,
// so failed calls leave the conversation unchanged.
func (b *Bridge) Ask(ctx context.Context, userID int64, user UserContext, message string) string {
	prompt := make([]Message, 0, len(b.history.Messages(userID))+2)
	prompt = append(prompt, Message{Role: RoleSystem, Content: b.systemPrompt(user)})
	prompt = append(prompt, b.history.Messages(userID)...)
	prompt = append(prompt, Message{Role: RoleUser, Content: message})

	reply, err := b.completer.Complete(ctx, prompt)
	if err != nil {
		log.Printf("chat: completion failed for user %d: %v", userID, err)
		return fallbackReply
	}

	b.history.Append(userID, Message{Role: RoleUser, Content: message})
	b.history.Append(userID, Message{Role: RoleAssistant, Content: reply})
	return reply
}

// EndSession clears retained conversation state for a user.
func (b *Bridge) EndSession(userID int64) {
	b.history.Clear(userID)
}

func (b *Bridge) systemPrompt(user UserContext) string {
	var sb strings.Builder
	sb.WriteString(systemInstruction)
	sb.WriteString("\n\nInvestment policy catalog:\n")
	for _, p := range b.catalog {
		fmt.Fprintf(&sb, "- [%d] %s | risk: %s | expected return: %s | minimum: %s | lock-in: %d years | liquidity: %s | %s\n",
			p.ID, p.Name, p.RiskLevel, p.ExpectedReturn, p.MinInvestment.StringFixed(2), p.LockInYears, p.Liquidity, p.Description)
	}
	fmt.Fprintf(&sb, "\nCustomer context: username=%s balance=%s", user.Username, user.Balance)
	if len(user.Enrolled) == 0 {
		sb.WriteString(" enrolled_policies=none")
	} else {
		names := make([]string, 0, len(user.Enrolled))
		for _, p := range user.Enrolled {
			names = append(names, p.Name)
		}
		fmt.Fprintf(&sb, " enrolled_policies=%s", strings.Join(names, ", "))
	}
	return sb.String()
}
