package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/marcusleow/bankline-be/internal/models"
)

type fakeCompleter struct {
	reply    string
	err      error
	lastSent []Message
}

func (f *fakeCompleter) Complete(_ context.Context, messages []Message) (string, error) {
	f.lastSent = messages
	return f.reply, f.err
}

func testUserContext() UserContext {
	catalog := models.PolicyCatalog()
	return UserContext{Username: "alice", Balance: "800.00", Enrolled: catalog[:1]}
}

func TestAskBuildsPromptWithContext(t *testing.T) {
	fake := &fakeCompleter{reply: "consider the bond ladder"}
	b := NewBridge(fake, NewHistory(10), models.PolicyCatalog())

	reply := b.Ask(context.Background(), 1, testUserContext(), "what should I invest in?")
	if reply != "consider the bond ladder" {
		t.Fatalf("reply = %q", reply)
	}

	if len(fake.lastSent) != 2 {
		t.Fatalf("prompt turns = %d, want system + user", len(fake.lastSent))
	}
	system := fake.lastSent[0]
	if system.Role != RoleSystem {
		t.Fatalf("first turn role = %q", system.Role)
	}
	for _, want := range []string{"Government Bond Ladder", "username=alice", "balance=800.00", "Secure Growth Fixed Deposit"} {
		if !strings.Contains(system.Content, want) {
			t.Fatalf("system prompt missing %q", want)
		}
	}
	if last := fake.lastSent[1]; last.Role != RoleUser || last.Content != "what should I invest in?" {
		t.Fatalf("final turn = %+v", last)
	}
}

func TestAskRecordsHistoryOnSuccess(t *testing.T) {
	fake := &fakeCompleter{reply: "hello alice"}
	history := NewHistory(10)
	b := NewBridge(fake, history, models.PolicyCatalog())

	b.Ask(context.Background(), 1, testUserContext(), "hi")

	turns := history.Messages(1)
	if len(turns) != 2 {
		t.Fatalf("retained turns = %d, want 2", len(turns))
	}
	if turns[0].Role != RoleUser || turns[0].Content != "hi" {
		t.Fatalf("first retained turn = %+v", turns[0])
	}
	if turns[1].Role != RoleAssistant || turns[1].Content != "hello alice" {
		t.Fatalf("second retained turn = %+v", turns[1])
	}

	// A later ask carries the prior turns between system prompt and new message.
	b.Ask(context.Background(), 1, testUserContext(), "and now?")
	if len(fake.lastSent) != 4 {
		t.Fatalf("second prompt turns = %d, want 4", len(fake.lastSent))
	}
}

func TestAskDegradesOnProviderFailure(t *testing.T) {
	fake := &fakeCompleter{err: errors.New("upstream 500")}
	history := NewHistory(10)
	b := NewBridge(fake, history, models.PolicyCatalog())

	reply := b.Ask(context.Background(), 1, testUserContext(), "hi")
	if reply != fallbackReply {
		t.Fatalf("reply = %q, want fallback", reply)
	}
	if turns := history.Messages(1); len(turns) != 0 {
		t.Fatalf("failed exchange retained %d turns, want 0", len(turns))
	}
}

func TestEndSessionClearsHistory(t *testing.T) {
	fake := &fakeCompleter{reply: "ok"}
	history := NewHistory(10)
	b := NewBridge(fake, history, models.PolicyCatalog())

	b.Ask(context.Background(), 1, testUserContext(), "hi")
	b.EndSession(1)
	if turns := history.Messages(1); len(turns) != 0 {
		t.Fatalf("history after EndSession = %d turns, want 0", len(turns))
	}
}
