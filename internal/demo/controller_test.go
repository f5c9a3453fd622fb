package demo

import (
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// fixedRand always rolls n, so the failure budget is n+1.
type fixedRand int

func (f fixedRand) IntN(int) int { return int(f) }

type transition struct {
	Enabled  bool
	Scenario Scenario
}

func TestParseScenario(t *testing.T) {
	tests := []struct {
		in      string
		want    Scenario
		wantErr bool
	}{
		{"network-slow", ScenarioSlow, false},
		{"slow", ScenarioSlow, false},
		{" FAIL ", ScenarioFail, false},
		{"normal", ScenarioNormal, false},
		{"network-chaos", ScenarioNone, true},
		{"", ScenarioNone, true},
	}
	for _, tt := range tests {
		got, err := ParseScenario(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseScenario(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseScenario(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestScenarioMode(t *testing.T) {
	if ScenarioFail.Mode() != ModeFail || ScenarioSlow.Mode() != ModeSlow || ScenarioNone.Mode() != ModeNormal {
		t.Error("unexpected scenario to mode mapping")
	}
	if ModeSlow.Scenario() != ScenarioSlow {
		t.Errorf("ModeSlow.Scenario() = %q", ModeSlow.Scenario())
	}
}

func TestController_EnableDisable(t *testing.T) {
	c := NewController(WithRand(fixedRand(1)))

	if c.Active() || c.NetworkMode() != ModeNormal || !c.IsNormalMode() {
		t.Fatal("new controller should be inactive and normal")
	}

	if err := c.Enable(ScenarioSlow); err != nil {
		t.Fatal(err)
	}
	if !c.ShouldSimulateDelay() || c.ShouldSimulateFailure() {
		t.Error("slow scenario should delay and not fail")
	}
	if c.NetworkMode() != ModeSlow || c.IsNormalMode() {
		t.Errorf("NetworkMode() = %q, want slow", c.NetworkMode())
	}

	if err := c.Enable(ScenarioFail); err != nil {
		t.Fatal(err)
	}
	want := State{Active: true, Scenario: ScenarioFail, FailRetryCount: 0, MaxRetries: 2}
	if diff := cmp.Diff(want, c.Snapshot()); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}

	c.Disable()
	if diff := cmp.Diff(State{}, c.Snapshot()); diff != "" {
		t.Errorf("disabled state mismatch (-want +got):\n%s", diff)
	}
}

func TestController_EnableUnknownScenario(t *testing.T) {
	c := NewController()
	if err := c.Enable(Scenario("network-chaos")); err == nil {
		t.Fatal("expected error")
	}
	if err := c.Enable(ScenarioNone); err == nil {
		t.Fatal("expected error for empty scenario")
	}
	if c.Active() {
		t.Error("failed Enable must not activate demo mode")
	}
}

func TestController_FailBudget(t *testing.T) {
	for k := 1; k <= 3; k++ {
		c := NewController(WithRand(fixedRand(k - 1)))
		if err := c.Enable(ScenarioFail); err != nil {
			t.Fatal(err)
		}
		for i := 1; i <= k; i++ {
			fail, count := c.TryFail()
			if !fail || count != i {
				t.Fatalf("k=%d call %d: TryFail() = (%v, %d), want (true, %d)", k, i, fail, count, i)
			}
		}
		if fail, count := c.TryFail(); fail || count != k {
			t.Fatalf("k=%d: call %d should recover, got (%v, %d)", k, k+1, fail, count)
		}
		if c.ShouldSimulateFailure() {
			t.Errorf("k=%d: budget exhausted but still failing", k)
		}
	}
}

func TestController_BudgetRollStaysInRange(t *testing.T) {
	c := NewController(WithRand(rand.New(rand.NewPCG(7, 7))))
	seen := map[int]bool{}
	for i := 0; i < 200; i++ {
		if err := c.Enable(ScenarioFail); err != nil {
			t.Fatal(err)
		}
		n := c.Snapshot().MaxRetries
		if n < 1 || n > 3 {
			t.Fatalf("MaxRetries = %d, want 1..3", n)
		}
		seen[n] = true
	}
	if len(seen) != 3 {
		t.Errorf("expected every budget 1..3 to occur, saw %v", seen)
	}
}

func TestController_RearmResetsCount(t *testing.T) {
	c := NewController(WithRand(fixedRand(0)))
	_ = c.Enable(ScenarioFail)
	c.TryFail()
	if c.ShouldSimulateFailure() {
		t.Fatal("budget of 1 should be spent")
	}

	c.ResetRetryCount()
	if !c.ShouldSimulateFailure() {
		t.Error("ResetRetryCount should re-arm the failure budget")
	}

	c.IncrementRetryCount()
	if c.ShouldSimulateFailure() {
		t.Error("IncrementRetryCount should consume the budget")
	}

	_ = c.Enable(ScenarioFail)
	if got := c.Snapshot().FailRetryCount; got != 0 {
		t.Errorf("re-enabling fail mode left FailRetryCount = %d", got)
	}
}

func TestController_TryFailOutsideFailMode(t *testing.T) {
	c := NewController(WithRand(fixedRand(2)))
	if fail, _ := c.TryFail(); fail {
		t.Error("inactive controller must not fail")
	}
	_ = c.Enable(ScenarioNormal)
	if fail, _ := c.TryFail(); fail {
		t.Error("normal scenario must not fail")
	}
}

func TestController_Toggle(t *testing.T) {
	c := NewController()
	if err := c.Toggle(ScenarioSlow); err != nil {
		t.Fatal(err)
	}
	if c.Scenario() != ScenarioSlow {
		t.Fatalf("Toggle should enable slow, got %q", c.Scenario())
	}
	if err := c.Toggle(ScenarioFail); err != nil {
		t.Fatal(err)
	}
	if c.Scenario() != ScenarioFail {
		t.Fatalf("Toggle to another scenario should switch, got %q", c.Scenario())
	}
	if err := c.Toggle(ScenarioFail); err != nil {
		t.Fatal(err)
	}
	if c.Active() {
		t.Error("Toggle of the active scenario should disable demo mode")
	}
}

func TestController_SubscribeReplaysCurrentState(t *testing.T) {
	c := NewController()
	_ = c.Enable(ScenarioSlow)

	var got []transition
	unsubscribe := c.Subscribe(func(enabled bool, s Scenario) {
		got = append(got, transition{enabled, s})
	})

	want := []transition{{true, ScenarioSlow}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("replay mismatch (-want +got):\n%s", diff)
	}

	_ = c.Enable(ScenarioFail)
	c.Disable()
	unsubscribe()
	unsubscribe()
	_ = c.Enable(ScenarioNormal)

	want = []transition{{true, ScenarioSlow}, {true, ScenarioFail}, {false, ScenarioNone}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("transitions mismatch (-want +got):\n%s", diff)
	}
}

func TestController_PanickingListenerIsIsolated(t *testing.T) {
	c := NewController()

	var order []string
	c.Subscribe(func(bool, Scenario) { order = append(order, "first") })
	c.Subscribe(func(enabled bool, _ Scenario) {
		order = append(order, "bad")
		panic("listener exploded")
	})
	c.Subscribe(func(bool, Scenario) { order = append(order, "last") })

	order = nil
	if err := c.Enable(ScenarioFail); err != nil {
		t.Fatalf("Enable returned %v, listener panic must not propagate", err)
	}

	want := []string{"first", "bad", "last"}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("notification order mismatch (-want +got):\n%s", diff)
	}
	if !c.Active() {
		t.Error("state change must survive a panicking listener")
	}
}

func TestController_DisableWhenOffIsSilent(t *testing.T) {
	c := NewController()
	calls := 0
	c.Subscribe(func(bool, Scenario) { calls++ })

	c.Disable()
	c.Disable()
	if calls != 1 {
		t.Fatalf("listener called %d times, want only the replay", calls)
	}

	_ = c.Enable(ScenarioSlow)
	c.Disable()
	c.Disable()
	if calls != 3 {
		t.Errorf("listener called %d times, want replay, enable and one disable", calls)
	}
}
