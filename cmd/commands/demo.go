package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	wsclient "github.com/dohr-michael/fakegpt/clients/ws"
	"github.com/dohr-michael/fakegpt/internal/demo"
	"github.com/dohr-michael/fakegpt/internal/events"
	wsprotocol "github.com/dohr-michael/fakegpt/internal/gateway/ws"
)

// NewDemoCommand returns the demo subcommand.
func NewDemoCommand() *cli.Command {
	return &cli.Command{
		Name:      "demo",
		Usage:     "Force a network scenario on a running gateway",
		ArgsUsage: "<normal|slow|fail|off>",
		Flags: []cli.Flag{
			gatewayFlag(),
			&cli.BoolFlag{
				Name:  "toggle",
				Usage: "Turn the scenario off if it is already active",
			},
		},
		Action: runDemo,
	}
}

func runDemo(ctx context.Context, cmd *cli.Command) error {
	stderrLogging(cmd)

	scenario := strings.ToLower(cmd.Args().First())
	if scenario == "" {
		return errors.New("usage: fakegpt demo <normal|slow|fail|off>")
	}
	if scenario != "off" {
		if _, err := demo.ParseScenario(scenario); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := wsclient.Dial(ctx, cmd.String("gateway"))
	if err != nil {
		return fmt.Errorf("connect to gateway: %w", err)
	}
	defer client.Close()

	id, err := client.SetDemo(scenario, cmd.Bool("toggle"))
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}

	var state *events.DemoModePayload
	capture := func(f wsprotocol.Frame) {
		if st, ok := demoModeFrame(f); ok {
			state = &st
		}
	}
	if _, err := client.Await(id, capture); err != nil {
		return fmt.Errorf("gateway: %w", err)
	}
	// Disabling an idle controller publishes nothing.
	if scenario == "off" && state == nil {
		state = &events.DemoModePayload{}
	}
	for state == nil {
		f, err := client.ReadFrame()
		if err != nil {
			return fmt.Errorf("waiting for demo mode: %w", err)
		}
		capture(f)
	}

	if state.Enabled {
		fmt.Printf("demo mode on: %s\n", state.Scenario)
	} else {
		fmt.Println("demo mode off")
	}
	return nil
}

func demoModeFrame(f wsprotocol.Frame) (events.DemoModePayload, bool) {
	if f.Type != wsprotocol.FrameTypeEvent || f.Event != string(events.EventDemoMode) {
		return events.DemoModePayload{}, false
	}
	var e events.Event
	if err := json.Unmarshal(f.Payload, &e); err != nil {
		return events.DemoModePayload{}, false
	}
	return events.GetDemoModePayload(e)
}
