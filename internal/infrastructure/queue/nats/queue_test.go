package nats

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/claim-assistant/internal/core/domain"
)

func TestEventRoundTripCarriesHeader(t *testing.T) {
	event := domain.ClaimDecidedEvent{
		ClaimID:       "claim-1",
		Status:        domain.DecisionApproved,
		Reason:        "complete",
		DocumentCount: 2,
		DecidedAt:     time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC),
	}
	msg, err := encodeEvent("claims.decided", event)
	if err != nil {
		t.Fatalf("encodeEvent() error = %v", err)
	}
	if msg.Header.Get(claimIDHeader) != "claim-1" {
		t.Fatalf("missing claim id header: %v", msg.Header)
	}

	got, err := decodeEvent(msg)
	if err != nil {
		t.Fatalf("decodeEvent() error = %v", err)
	}
	if got.ClaimID != event.ClaimID || got.Status != event.Status || got.DocumentCount != 2 || !got.DecidedAt.Equal(event.DecidedAt) {
		t.Fatalf("got %+v, want %+v", got, event)
	}
}

func TestDecodeEventFallsBackToHeaderID(t *testing.T) {
	msg := nats.NewMsg("claims.decided")
	msg.Data = []byte(`{"status":"rejected"}`)
	msg.Header.Set(claimIDHeader, "from-header")

	got, err := decodeEvent(msg)
	if err != nil {
		t.Fatalf("decodeEvent() error = %v", err)
	}
	if got.ClaimID != "from-header" {
		t.Fatalf("unexpected claim id %q", got.ClaimID)
	}
}

func TestDecodeEventRejectsGarbage(t *testing.T) {
	msg := nats.NewMsg("claims.decided")
	msg.Data = []byte("not json")
	if _, err := decodeEvent(msg); err == nil {
		t.Fatalf("expected error")
	}

	msg.Data = []byte(`{"status":"approved"}`)
	if _, err := decodeEvent(msg); err == nil {
		t.Fatalf("expected error for event without id")
	}
}

func TestPublishErrorsMarkedTemporary(t *testing.T) {
	err := asTemporary(fmt.Errorf("nats publish: %w", nats.ErrNoServers))
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}

	plain := errors.New("bad subject")
	if got := asTemporary(plain); got != plain {
		t.Fatalf("permanent error must pass through, got %v", got)
	}

	if class := classifyPublishError(context.Canceled); class.RecordFailure {
		t.Fatalf("canceled must not count as breaker failure")
	}
}
