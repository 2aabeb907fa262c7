package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oceanbase/powerpersona-go/pkg/board"
	"github.com/oceanbase/powerpersona-go/pkg/client"
)

const promptChannelID = 1

func init() {
	cmd := &cobra.Command{
		Use:   "prompt [message]",
		Short: "Talk to one persona",
		Long:  "Send a message to a persona running in sequential mode and print its reply. Without arguments, every stdin line is a message.",
		Run:   runPrompt,
	}

	cmd.Flags().StringP("persona", "p", "", "Archetype key (required)")
	cmd.Flags().Int64("user-id", 1, "Your user id")
	cmd.Flags().StringP("username", "u", "user", "Your display name")
	_ = cmd.MarkFlagRequired("persona")

	RootCmd.AddCommand(cmd)
}

func runPrompt(cmd *cobra.Command, args []string) {
	key, _ := cmd.Flags().GetString("persona")
	userID, _ := cmd.Flags().GetInt64("user-id")
	username, _ := cmd.Flags().GetString("username")

	cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}
	cfg.Persona.SequentialMode = true
	cfg.Persona.ChannelID = promptChannelID

	cat, err := loadCatalogue()
	if err != nil {
		exitErr("load archetypes", err)
	}
	a, err := cat.Get(key)
	if err != nil {
		exitErr("archetype", err)
	}
	logger, closeLog := newLogger(cfg)
	defer func() { _ = closeLog() }()

	b := board.New(cfg.Board.MessageWindow)
	b.AddChannel(promptChannelID, "General")

	ctx := cmd.Context()
	p, err := client.BuildPersona(ctx, cfg, a, userID+1000, b, logger)
	if err != nil {
		exitErr("build persona", err)
	}
	defer func() { _ = p.Close() }()

	pc := client.NewPromptClient(p.Runtime, b, logger)
	if err := pc.Start(ctx); err != nil {
		exitErr("start", err)
	}
	defer func() { _ = pc.Stop() }()

	ask := func(text string) {
		reply, err := pc.Prompt(ctx, text, userID, username, promptChannelID)
		if err != nil {
			exitErr("prompt", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", a.Name, reply)
	}

	if len(args) > 0 {
		ask(strings.Join(args, " "))
		return
	}
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			ask(line)
		}
	}
}
