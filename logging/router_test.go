package logging_test

import (
	"context"
	"testing"
	"time"

	"combo-snake/server/logging"
	loggingSinks "combo-snake/server/logging/sinks"
)

func newMemoryRouter(t *testing.T, cfg logging.Config) (*logging.Router, *loggingSinks.MemorySink) {
	t.Helper()
	sink := loggingSinks.NewMemorySink()
	router, err := logging.NewRouter(logging.SystemClock{}, cfg, []logging.NamedSink{
		{Name: "memory", Sink: sink},
	})
	if err != nil {
		t.Fatalf("expected router to construct, got %v", err)
	}
	return router, sink
}

func closeRouter(t *testing.T, router *logging.Router) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := router.Close(ctx); err != nil {
		t.Fatalf("expected clean router close, got %v", err)
	}
}

func TestRouterDeliversEventsToSinks(t *testing.T) {
	router, sink := newMemoryRouter(t, logging.DefaultConfig())

	router.Publish(context.Background(), logging.Event{
		Type:     "gameplay.food_consumed",
		Tick:     12,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryGameplay,
		Actor:    logging.EntityRef{ID: "food-1", Kind: logging.EntityKindFood},
	})
	closeRouter(t, router)

	events := sink.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 delivered event, got %d", len(events))
	}
	if events[0].Type != "gameplay.food_consumed" || events[0].Tick != 12 {
		t.Fatalf("expected event fields preserved, got %+v", events[0])
	}
	if events[0].Time.IsZero() {
		t.Fatalf("expected router to stamp event time")
	}

	stats := router.Stats()
	if stats.EventsTotal != 1 || stats.DroppedTotal != 0 {
		t.Fatalf("expected stats {1,0}, got {%d,%d}", stats.EventsTotal, stats.DroppedTotal)
	}
}

func TestRouterFiltersBelowMinimumSeverity(t *testing.T) {
	cfg := logging.DefaultConfig()
	cfg.MinimumSeverity = logging.SeverityWarn
	router, sink := newMemoryRouter(t, cfg)

	router.Publish(context.Background(), logging.Event{Type: "a", Severity: logging.SeverityInfo})
	router.Publish(context.Background(), logging.Event{Type: "b", Severity: logging.SeverityWarn})
	closeRouter(t, router)

	events := sink.Events()
	if len(events) != 1 {
		t.Fatalf("expected only the warn event, got %d events", len(events))
	}
	if events[0].Type != "b" {
		t.Fatalf("expected event b, got %s", events[0].Type)
	}
}

func TestRouterIgnoresUntypedAndPostCloseEvents(t *testing.T) {
	router, sink := newMemoryRouter(t, logging.DefaultConfig())

	router.Publish(context.Background(), logging.Event{Severity: logging.SeverityError})
	closeRouter(t, router)
	router.Publish(context.Background(), logging.Event{Type: "late", Severity: logging.SeverityError})

	if events := sink.Events(); len(events) != 0 {
		t.Fatalf("expected no delivered events, got %d", len(events))
	}
}

func TestRouterAppliesDefaultFields(t *testing.T) {
	cfg := logging.DefaultConfig()
	cfg.Fields = map[string]any{"service": "combo-snake"}
	router, sink := newMemoryRouter(t, cfg)

	router.Publish(context.Background(), logging.Event{Type: "x", Severity: logging.SeverityInfo})
	closeRouter(t, router)

	events := sink.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Extra["service"] != "combo-snake" {
		t.Fatalf("expected default field merged, got %v", events[0].Extra)
	}
}

func TestWithFieldsWrapsPublisher(t *testing.T) {
	var got logging.Event
	base := logging.PublisherFunc(func(_ context.Context, event logging.Event) {
		got = event
	})

	wrapped := logging.WithFields(base, map[string]any{"session": "abc"})
	wrapped.Publish(context.Background(), logging.Event{Type: "x"}.WithExtra("tickRate", 15))

	if got.Extra["session"] != "abc" || got.Extra["tickRate"] != 15 {
		t.Fatalf("expected merged extras, got %v", got.Extra)
	}

	// Existing keys win over wrapper fields.
	wrapped.Publish(context.Background(), logging.Event{Type: "y"}.WithExtra("session", "original"))
	if got.Extra["session"] != "original" {
		t.Fatalf("expected event extras to take precedence, got %v", got.Extra)
	}
}
