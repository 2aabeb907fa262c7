package cli

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oceanbase/powerpersona-go/pkg/board"
	"github.com/oceanbase/powerpersona-go/pkg/client"
	"github.com/oceanbase/powerpersona-go/pkg/core"
	"github.com/oceanbase/powerpersona-go/pkg/persona"
)

func init() {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run several personas on a local board",
		Long:  "Start every selected persona on an in-process board, post an opening message and print the conversation.",
		Run:   runSimulate,
	}

	cmd.Flags().DurationP("duration", "t", 10*time.Minute, "How long to run (0 = until interrupted)")
	cmd.Flags().StringSliceP("personas", "p", nil, "Archetype keys to run (default: all)")
	cmd.Flags().StringP("message", "m", "Hi! What's up gamers", "Opening message")
	cmd.Flags().StringSlice("channels", []string{"General"}, "Channel names to create")

	RootCmd.AddCommand(cmd)
}

func runSimulate(cmd *cobra.Command, args []string) {
	duration, _ := cmd.Flags().GetDuration("duration")
	keys, _ := cmd.Flags().GetStringSlice("personas")
	opening, _ := cmd.Flags().GetString("message")
	channels, _ := cmd.Flags().GetStringSlice("channels")

	cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}
	cat, err := loadCatalogue()
	if err != nil {
		exitErr("load archetypes", err)
	}
	if len(keys) == 0 {
		keys = cat.Keys()
	}
	logger, closeLog := newLogger(cfg)
	defer func() { _ = closeLog() }()

	b := board.New(cfg.Board.MessageWindow)
	for i, name := range channels {
		b.AddChannel(int64(i+1), strings.TrimSpace(name))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		personas []*client.Persona
		runtimes []*persona.Runtime
	)
	defer func() {
		for _, p := range personas {
			_ = p.Close()
		}
	}()
	for i, key := range keys {
		a, err := cat.Get(key)
		if err != nil {
			exitErr("archetype", err)
		}
		p, err := client.BuildPersona(ctx, cfg, a, int64(1000+i), b, logger)
		if err != nil {
			exitErr("build persona "+key, err)
		}
		personas = append(personas, p)
		runtimes = append(runtimes, p.Runtime)
	}

	sim := client.NewSimulation(b, runtimes, client.SimulationOptions{
		Duration:       duration,
		OpeningMessage: opening,
		ChannelID:      1,
		Throttle:       core.Seconds(cfg.Persona.MessageThrottle),
		OnMessage: func(ev core.Event) {
			fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", ev.DisplayName, ev.Content)
		},
	}, logger)

	if err := sim.Run(ctx); err != nil {
		exitErr("simulate", err)
	}
}
