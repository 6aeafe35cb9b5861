package enums

import "testing"

func TestFeedEventTypeIsValid(t *testing.T) {
	for _, candidate := range validFeedEventTypes {
		if !candidate.IsValid() {
			t.Fatalf("expected %q to be valid", candidate)
		}
	}
	if FeedEventType("order_shipped").IsValid() {
		t.Fatal("unknown type should not be valid")
	}
	if FeedEventType("").IsValid() {
		t.Fatal("empty type should not be valid")
	}
}

func TestParseFeedEventType(t *testing.T) {
	parsed, err := ParseFeedEventType("order_created")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed != EventOrderCreated {
		t.Fatalf("unexpected type %q", parsed)
	}

	if _, err := ParseFeedEventType("ORDER_CREATED"); err == nil {
		t.Fatal("parse should be case sensitive")
	}
}
