package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/dohr-michael/fakegpt/internal/config"
	"github.com/dohr-michael/fakegpt/internal/conversation"
	"github.com/dohr-michael/fakegpt/internal/netsim"
	"github.com/dohr-michael/fakegpt/internal/retry"
	"github.com/dohr-michael/fakegpt/internal/stream"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestDerivedConfigsMatchPackageDefaults(t *testing.T) {
	cfg := config.Default()

	if diff := cmp.Diff(stream.DefaultConfig(), StreamConfig(cfg)); diff != "" {
		t.Errorf("stream config (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(netsim.DefaultConfig(), SimulatorConfig(cfg)); diff != "" {
		t.Errorf("simulator config (-want +got):\n%s", diff)
	}
	want := conversation.DefaultConfig()
	want.Retry = retry.DefaultPolicy()
	if diff := cmp.Diff(want, ConversationConfig(cfg)); diff != "" {
		t.Errorf("conversation config (-want +got):\n%s", diff)
	}
}

func TestNewStartGreetsAndCloses(t *testing.T) {
	cfg := config.Default()
	cfg.Conversation.GreetingDelay = 0
	cfg.Streaming.Slow, cfg.Streaming.Normal, cfg.Streaming.Fast, cfg.Streaming.Jitter = 0, 0, 0, 0

	a, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	a.Start()

	deadline := time.Now().Add(3 * time.Second)
	for {
		st := a.Conversation.Snapshot()
		if len(st.Messages) == 1 && !st.Messages[0].Streaming {
			if st.Messages[0].Content != a.Catalog.Greeting {
				t.Fatalf("greeting = %q", st.Messages[0].Content)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("no greeting: %+v", st)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNew_ContentOverlay(t *testing.T) {
	dir := t.TempDir()
	overlay := "topics:\n  - id: extra\n    label: Extra\n    main_content: more\n"
	if err := os.WriteFile(filepath.Join(dir, "extra.yaml"), []byte(overlay), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.Content.Overlays = []string{filepath.Join(dir, "*.yaml")}

	a, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	if _, ok := a.Catalog.Topic("extra"); !ok {
		t.Error("overlay topic missing")
	}
}

func TestApplyConfig(t *testing.T) {
	a, err := New(config.Default())
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	cfg := config.Default()
	cfg.Network.FailChance = 0.9
	cfg.Streaming.Normal = config.Duration(time.Second)
	cfg.Network.RetryAttempts = 1
	a.ApplyConfig(cfg)

	if a.Simulator.Config().FailChance != 0.9 {
		t.Error("simulator config not applied")
	}
	if a.Engine.Config().Normal != time.Second {
		t.Error("stream config not applied")
	}
	if a.Conversation.Config().Retry.MaxRetries != 1 {
		t.Error("retry policy not applied")
	}
}
