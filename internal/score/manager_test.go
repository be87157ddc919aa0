package score

import (
	"testing"
	"time"

	"combo-snake/server/logging"
)

func fixedClock() logging.Clock {
	return logging.ClockFunc(func() time.Time {
		return time.Unix(1700000000, 0)
	})
}

func TestAddScoreWithComboBonus(t *testing.T) {
	m := NewManager(fixedClock())

	entry := m.AddScore(10, 5)
	if entry.BasePoints != 10 || entry.ComboBonus != 5 || entry.TotalPoints != 15 {
		t.Fatalf("expected breakdown {10,5,15}, got {%d,%d,%d}",
			entry.BasePoints, entry.ComboBonus, entry.TotalPoints)
	}
	if entry.ID == "" {
		t.Fatalf("expected breakdown id")
	}

	totals := m.Totals()
	if totals.Score != 15 {
		t.Fatalf("expected score 15, got %d", totals.Score)
	}
	if totals.TotalCombos != 1 {
		t.Fatalf("expected 1 combo, got %d", totals.TotalCombos)
	}
	if totals.ComboBonusTotal != 5 {
		t.Fatalf("expected combo bonus total 5, got %d", totals.ComboBonusTotal)
	}
}

func TestAddScoreWithoutBonusLeavesComboTotalsUntouched(t *testing.T) {
	m := NewManager(fixedClock())
	m.AddScore(10, 0)

	totals := m.Totals()
	if totals.Score != 10 {
		t.Fatalf("expected score 10, got %d", totals.Score)
	}
	if totals.TotalCombos != 0 || totals.ComboBonusTotal != 0 {
		t.Fatalf("expected no combo accounting, got combos=%d bonus=%d",
			totals.TotalCombos, totals.ComboBonusTotal)
	}
	if totals.AverageComboLength != 0 {
		t.Fatalf("expected zero average with no combos, got %f", totals.AverageComboLength)
	}
}

func TestAverageComboLengthFormula(t *testing.T) {
	m := NewManager(fixedClock())

	// Two completed combos worth 25 and 50 bonus points. The documented
	// average is comboBonusTotal / 5 / totalCombos = 75/5/2 = 7.5.
	m.AddScore(100, 25)
	m.AddScore(100, 50)

	totals := m.Totals()
	if totals.AverageComboLength != 7.5 {
		t.Fatalf("expected average combo length 7.5, got %f", totals.AverageComboLength)
	}
}

func TestLedgerCapDropsOldestHalf(t *testing.T) {
	m := NewManagerWithLedgerCap(10, fixedClock())

	for i := 0; i < 11; i++ {
		m.AddScore(i, 0)
	}
	breakdowns := m.Breakdowns()
	if len(breakdowns) != 5 {
		t.Fatalf("expected ledger trimmed to 5 entries, got %d", len(breakdowns))
	}
	if breakdowns[0].BasePoints != 6 {
		t.Fatalf("expected oldest surviving entry 6, got %d", breakdowns[0].BasePoints)
	}
	if breakdowns[len(breakdowns)-1].BasePoints != 10 {
		t.Fatalf("expected newest entry 10, got %d", breakdowns[len(breakdowns)-1].BasePoints)
	}

	// Score keeps the full total even after the ledger trims.
	if m.Score() != 55 {
		t.Fatalf("expected score 55, got %d", m.Score())
	}
}

func TestComboSequenceCompletion(t *testing.T) {
	m := NewManager(fixedClock())

	for number := 1; number <= 4; number++ {
		outcome := m.RecordConsumption(number)
		if outcome.Kind != ComboAdvanced {
			t.Fatalf("expected number %d to advance, got %s", number, outcome.Kind)
		}
		if outcome.RunLength != number {
			t.Fatalf("expected run length %d, got %d", number, outcome.RunLength)
		}
	}

	outcome := m.RecordConsumption(5)
	if outcome.Kind != ComboCompleted {
		t.Fatalf("expected number 5 to complete, got %s", outcome.Kind)
	}
	if outcome.RunLength != 5 {
		t.Fatalf("expected run length 5, got %d", outcome.RunLength)
	}
	if bonus := CompletionBonus(outcome.RunLength); bonus != 25 {
		t.Fatalf("expected completion bonus 25, got %d", bonus)
	}
	if m.ExpectedNext() != 1 {
		t.Fatalf("expected tracker reset after completion, got %d", m.ExpectedNext())
	}
}

func TestComboContinuesAcrossReplacementNumbers(t *testing.T) {
	m := NewManager(fixedClock())

	// Replacement numbers occupy the same sequence slot as the numbers
	// they replaced, so 6..10 completes a run exactly like 1..5.
	for _, number := range []int{6, 7, 8, 9} {
		if outcome := m.RecordConsumption(number); outcome.Kind != ComboAdvanced {
			t.Fatalf("expected number %d to advance, got %s", number, outcome.Kind)
		}
	}
	if outcome := m.RecordConsumption(10); outcome.Kind != ComboCompleted {
		t.Fatalf("expected number 10 to complete, got %s", outcome.Kind)
	}
}

func TestOutOfOrderBreaksCombo(t *testing.T) {
	m := NewManager(fixedClock())
	m.RecordConsumption(1)
	m.RecordConsumption(2)

	outcome := m.RecordConsumption(4)
	if outcome.Kind != ComboBroken {
		t.Fatalf("expected out-of-order consumption to break, got %s", outcome.Kind)
	}
	if outcome.Expected != 3 {
		t.Fatalf("expected slot 3 to be expected, got %d", outcome.Expected)
	}
	if outcome.RunLength != 2 {
		t.Fatalf("expected broken run length 2, got %d", outcome.RunLength)
	}
	if m.ExpectedNext() != 1 || m.RunLength() != 0 {
		t.Fatalf("expected tracker reset after break, got expected=%d run=%d",
			m.ExpectedNext(), m.RunLength())
	}
}

func TestScoreSubscribersReceiveTotals(t *testing.T) {
	m := NewManager(fixedClock())

	var gotTotals Totals
	var gotEntry Breakdown
	calls := 0
	sub := m.Subscribe(func(totals Totals, entry Breakdown) {
		calls++
		gotTotals = totals
		gotEntry = entry
	})

	m.AddScore(10, 5)
	if calls != 1 {
		t.Fatalf("expected one notification, got %d", calls)
	}
	if gotTotals.Score != 15 || gotEntry.TotalPoints != 15 {
		t.Fatalf("expected totals and entry to reflect the change")
	}

	m.Unsubscribe(sub)
	m.AddScore(10, 0)
	if calls != 1 {
		t.Fatalf("expected no notification after unsubscribe, got %d", calls)
	}
}

func TestPanickingSubscriberIsIsolated(t *testing.T) {
	m := NewManager(fixedClock())

	m.Subscribe(func(Totals, Breakdown) {
		panic("listener exploded")
	})
	survived := 0
	m.Subscribe(func(Totals, Breakdown) {
		survived++
	})

	m.AddScore(10, 0)
	if survived != 1 {
		t.Fatalf("expected surviving subscriber to run, got %d calls", survived)
	}
	if m.Score() != 10 {
		t.Fatalf("expected score change to commit despite panic, got %d", m.Score())
	}
}

func TestComboSubscribers(t *testing.T) {
	m := NewManager(fixedClock())

	var outcomes []ComboOutcome
	m.SubscribeCombo(func(outcome ComboOutcome) {
		outcomes = append(outcomes, outcome)
	})

	m.RecordConsumption(1)
	m.RecordConsumption(3)
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 combo notifications, got %d", len(outcomes))
	}
	if outcomes[0].Kind != ComboAdvanced || outcomes[1].Kind != ComboBroken {
		t.Fatalf("expected advanced then broken, got %s then %s",
			outcomes[0].Kind, outcomes[1].Kind)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	m := NewManager(fixedClock())
	m.AddScore(10, 0)
	m.AddScore(150, 25)
	m.RecordConsumption(1)
	m.RecordConsumption(2)

	state := m.Export()
	restored := NewManager(fixedClock())
	restored.Import(state)

	if restored.Score() != m.Score() {
		t.Fatalf("expected restored score %d, got %d", m.Score(), restored.Score())
	}
	if restored.ExpectedNext() != 3 {
		t.Fatalf("expected restored tracker slot 3, got %d", restored.ExpectedNext())
	}
	if len(restored.Breakdowns()) != 2 {
		t.Fatalf("expected 2 restored breakdowns, got %d", len(restored.Breakdowns()))
	}

	totals := restored.Totals()
	if totals.TotalCombos != 1 || totals.ComboBonusTotal != 25 {
		t.Fatalf("expected restored combo totals, got combos=%d bonus=%d",
			totals.TotalCombos, totals.ComboBonusTotal)
	}
}

func TestResetClearsState(t *testing.T) {
	m := NewManager(fixedClock())
	m.AddScore(10, 5)
	m.RecordConsumption(1)

	m.Reset()
	if m.Score() != 0 || len(m.Breakdowns()) != 0 {
		t.Fatalf("expected empty manager after reset")
	}
	if m.ExpectedNext() != 1 || m.RunLength() != 0 {
		t.Fatalf("expected tracker reset")
	}
	totals := m.Totals()
	if totals.TotalCombos != 0 || totals.ComboBonusTotal != 0 {
		t.Fatalf("expected zero totals after reset")
	}
}
