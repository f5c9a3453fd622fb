package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dohr-michael/fakegpt/internal/content"
	"github.com/dohr-michael/fakegpt/internal/demo"
	"github.com/dohr-michael/fakegpt/internal/events"
	wsprotocol "github.com/dohr-michael/fakegpt/internal/gateway/ws"
	"github.com/dohr-michael/fakegpt/internal/netsim"
)

func TestWriteCatalog(t *testing.T) {
	c := content.MustDefault()

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		if err := writeCatalog(&buf, c, "text"); err != nil {
			t.Fatal(err)
		}
		out := buf.String()
		for _, want := range []string{"architecture", "My Overengineered Architecture", "network-demo", "core"} {
			if !strings.Contains(out, want) {
				t.Errorf("text output missing %q", want)
			}
		}
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := writeCatalog(&buf, c, "json"); err != nil {
			t.Fatal(err)
		}
		var got content.Catalog
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatal(err)
		}
		if len(got.Topics) != len(c.Topics) || got.Greeting != c.Greeting {
			t.Errorf("json catalog: %d topics, greeting %q", len(got.Topics), got.Greeting)
		}
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		if err := writeCatalog(&buf, c, "yaml"); err != nil {
			t.Fatal(err)
		}
		var got content.Catalog
		if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatal(err)
		}
		if len(got.Topics) != len(c.Topics) {
			t.Errorf("yaml catalog: %d topics", len(got.Topics))
		}
	})

	t.Run("unknown", func(t *testing.T) {
		if err := writeCatalog(&bytes.Buffer{}, c, "xml"); err == nil {
			t.Error("expected an error for an unknown format")
		}
	})
}

func seededSimulator(t *testing.T, scenario demo.Scenario, cfg netsim.Config) (*netsim.Simulator, *demo.Controller) {
	t.Helper()
	rng := rand.New(rand.NewPCG(7, 7))
	ctrl := demo.NewController(demo.WithRand(rng))
	if scenario != "" {
		if err := ctrl.Enable(scenario); err != nil {
			t.Fatal(err)
		}
	}
	return netsim.New(ctrl, cfg, netsim.WithRand(rng)), ctrl
}

func TestSimulate_AmbientRatios(t *testing.T) {
	sim, _ := seededSimulator(t, "", netsim.DefaultConfig())
	st := simulate(sim, 10000)

	if st.Requests != 10000 {
		t.Fatalf("requests = %d", st.Requests)
	}
	if r := st.ratio(st.Slow); r < 0.37 || r > 0.43 {
		t.Errorf("slow ratio %.3f, want about 0.4", r)
	}
	if r := st.ratio(st.Failed); r < 0.17 || r > 0.23 {
		t.Errorf("fail ratio %.3f, want about 0.2", r)
	}
	if d := st.MeanDelay(); d < 500*time.Millisecond || d > 1500*time.Millisecond {
		t.Errorf("mean delay %s out of range", d)
	}
}

func TestSimulate_SlowScenario(t *testing.T) {
	sim, _ := seededSimulator(t, demo.ScenarioSlow, netsim.DefaultConfig())
	st := simulate(sim, 200)

	if st.Slow != 200 || st.Failed != 0 {
		t.Errorf("slow=%d failed=%d", st.Slow, st.Failed)
	}
	if st.Quality[netsim.QualityGood] != 0 {
		t.Errorf("slow scenario produced %d good connections", st.Quality[netsim.QualityGood])
	}
}

func TestSimulate_FailScenarioRecovers(t *testing.T) {
	sim, ctrl := seededSimulator(t, demo.ScenarioFail, netsim.DefaultConfig())
	budget := ctrl.Snapshot().MaxRetries
	st := simulate(sim, 10)

	if st.Failed != budget {
		t.Errorf("failed %d, want the armed budget %d", st.Failed, budget)
	}
}

func TestWriteStats(t *testing.T) {
	var buf bytes.Buffer
	st := simStats{Requests: 4, Slow: 1, Failed: 1, TotalWait: 3 * time.Second, Quality: map[netsim.Quality]int{netsim.QualityGood: 2, netsim.QualityPoor: 1}}
	writeStats(&buf, demo.State{Active: true, Scenario: demo.ScenarioSlow}, 42, st)

	out := buf.String()
	for _, want := range []string{"network-slow", "42", "1 (25.0%)", "1s"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats output missing %q:\n%s", want, out)
		}
	}
}

func eventFrame(t *testing.T, p events.EventPayload) wsprotocol.Frame {
	t.Helper()
	e := events.NewTypedEvent(events.SourceBot, p)
	f, err := wsprotocol.NewEventFrame(string(e.Type), e)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestAskPrinter(t *testing.T) {
	var out, status bytes.Buffer
	p := &askPrinter{out: &out, status: &status, width: 80, streamed: map[string]bool{}}

	frames := []wsprotocol.Frame{
		eventFrame(t, events.NetworkRequestPayload{Operation: "probe", Attempt: 1, DelayMS: 0, Failed: true}),
		eventFrame(t, events.AssistantStreamPayload{MessageID: "m1", Phase: events.StreamPhaseStart}),
		eventFrame(t, events.AssistantStreamPayload{MessageID: "m1", Phase: events.StreamPhaseDelta, Content: "Testing"}),
		eventFrame(t, events.AssistantStreamPayload{MessageID: "m1", Phase: events.StreamPhaseDelta, Content: " now"}),
		eventFrame(t, events.AssistantStreamPayload{MessageID: "m1", Phase: events.StreamPhaseEnd}),
		eventFrame(t, events.AssistantMessagePayload{MessageID: "m1", Content: "Testing now"}),
	}
	for _, f := range frames {
		if p.handle(f) {
			t.Fatal("a message without replies does not end the exchange")
		}
	}

	done := p.handle(eventFrame(t, events.AssistantMessagePayload{
		MessageID:    "m2",
		Content:      "Recovered.",
		QuickReplies: []events.Reply{{ID: "back-main", Label: "Back to main topics"}},
	}))
	if !done {
		t.Fatal("a message with replies ends the exchange")
	}

	got := out.String()
	if !strings.HasPrefix(got, "Testing now\n") {
		t.Errorf("streamed text printed as %q", got)
	}
	if !strings.Contains(got, "Recovered.") || !strings.Contains(got, "back-main") {
		t.Errorf("output = %q", got)
	}
	if !strings.Contains(status.String(), "probe attempt 1") {
		t.Errorf("status = %q", status.String())
	}
}

func TestRootCommand_TopicsJSON(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.jsonc")
	overlay := filepath.Join(dir, "extra.yaml")
	if err := os.WriteFile(overlay, []byte("topics:\n  - id: extra\n    label: Extra Topic\n    main_content: more\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := `{
		// overlays are doublestar globs
		"content": {"overlays": ["` + filepath.ToSlash(filepath.Join(dir, "*.yaml")) + `"]},
	}`
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	stdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	read := make(chan []byte)
	go func() {
		data, _ := io.ReadAll(r)
		read <- data
	}()
	os.Stdout = w
	runErr := NewRootCommand().Run(context.Background(), []string{"fakegpt", "--config", cfgPath, "topics", "--format", "json"})
	w.Close()
	os.Stdout = stdout
	data := <-read
	if runErr != nil {
		t.Fatal(runErr)
	}

	var got content.Catalog
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	last := got.Topics[len(got.Topics)-1]
	if last.ID != "extra" || last.Label != "Extra Topic" {
		t.Errorf("last topic = %+v", last)
	}
}
