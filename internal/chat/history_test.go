package chat

import "testing"

func TestHistoryEvictsOldestBeyondLimit(t *testing.T) {
	h := NewHistory(4)
	for i := 0; i < 6; i++ {
		h.Append(1, Message{Role: RoleUser, Content: string(rune('a' + i))})
	}

	turns := h.Messages(1)
	if len(turns) != 4 {
		t.Fatalf("retained turns = %d, want 4", len(turns))
	}
	if turns[0].Content != "c" || turns[3].Content != "f" {
		t.Fatalf("retained window = %v, want c..f", turns)
	}
}

func TestHistoryIsolatesUsers(t *testing.T) {
	h := NewHistory(10)
	h.Append(1, Message{Role: RoleUser, Content: "mine"})
	h.Append(2, Message{Role: RoleUser, Content: "theirs"})

	if got := h.Messages(1); len(got) != 1 || got[0].Content != "mine" {
		t.Fatalf("user 1 history = %v", got)
	}
	if got := h.Messages(2); len(got) != 1 || got[0].Content != "theirs" {
		t.Fatalf("user 2 history = %v", got)
	}
}

func TestHistoryClear(t *testing.T) {
	h := NewHistory(10)
	h.Append(1, Message{Role: RoleUser, Content: "hello"})
	h.Clear(1)
	if got := h.Messages(1); len(got) != 0 {
		t.Fatalf("history after clear = %v, want empty", got)
	}
}

func TestHistoryMessagesReturnsCopy(t *testing.T) {
	h := NewHistory(10)
	h.Append(1, Message{Role: RoleUser, Content: "original"})
	got := h.Messages(1)
	got[0].Content = "mutated"
	if h.Messages(1)[0].Content != "original" {
		t.Fatal("caller mutation leaked into retained history")
	}
}
