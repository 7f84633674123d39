package events

import (
	"encoding/json"
	"testing"
	"time"
)

func TestEncodeWrapsPayload(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	raw, err := Encode(SubjectMatchCompleted, map[string]string{"match_id": "m1"}, at)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var env struct {
		Subject    string            `json:"subject"`
		OccurredAt time.Time         `json:"occurred_at"`
		Data       map[string]string `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Subject != SubjectMatchCompleted || !env.OccurredAt.Equal(at) || env.Data["match_id"] != "m1" {
		t.Errorf("envelope = %+v", env)
	}
}

func TestEncodeRejectsUnencodablePayload(t *testing.T) {
	if _, err := Encode("x", make(chan int), time.Now()); err == nil {
		t.Fatal("expected error for channel payload")
	}
}
