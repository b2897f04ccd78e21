package domain

import (
	"encoding/json"
	"strings"
	"testing"
)

// TestDeliveryStateCodes pins the numeric wire values. These round-trip
// through storage and the reporting surface and must never be renumbered.
func TestDeliveryStateCodes(t *testing.T) {
	if DeliveryStatePending != 0 || DeliveryStateProgress != 1 ||
		DeliveryStateSuccess != 2 || DeliveryStateFail != 3 {
		t.Fatalf("delivery state codes changed: %d %d %d %d",
			DeliveryStatePending, DeliveryStateProgress, DeliveryStateSuccess, DeliveryStateFail)
	}
}

func TestDeliveryStateJSONIsNumeric(t *testing.T) {
	b, err := json.Marshal(Delivery{ID: 1, State: DeliveryStateSuccess})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"State":2`) {
		t.Fatalf("expected numeric state in %s", b)
	}

	var d Delivery
	if err := json.Unmarshal(b, &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if d.State != DeliveryStateSuccess {
		t.Fatalf("expected success, got %v", d.State)
	}
}

func TestParseDeliveryState(t *testing.T) {
	for _, s := range []DeliveryState{
		DeliveryStatePending, DeliveryStateProgress, DeliveryStateSuccess, DeliveryStateFail,
	} {
		got, err := ParseDeliveryState(s.String())
		if err != nil {
			t.Fatalf("parse %q: %v", s.String(), err)
		}
		if got != s {
			t.Fatalf("round trip of %v gave %v", s, got)
		}
	}
	if _, err := ParseDeliveryState("unknown"); err == nil {
		t.Fatal("expected error for unknown state")
	}
}

func TestTerminal(t *testing.T) {
	if DeliveryStatePending.Terminal() || DeliveryStateProgress.Terminal() {
		t.Fatal("pending and progress must not be terminal")
	}
	if !DeliveryStateSuccess.Terminal() || !DeliveryStateFail.Terminal() {
		t.Fatal("success and fail must be terminal")
	}
}
