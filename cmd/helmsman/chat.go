package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"helmsman/internal/adapter/llm"
	"helmsman/internal/config"
	"helmsman/internal/domain"
)

var chatMockFlag bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session against an in-process pipeline",
	Long: `Chat runs the full pipeline in-process and reads queries from stdin.
With --mock (the default) no external model provider is needed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat()
	},
}

func init() {
	chatCmd.Flags().BoolVar(&chatMockFlag, "mock", true, "use the deterministic mock provider")
	rootCmd.AddCommand(chatCmd)
}

func runChat() error {
	if chatMockFlag {
		os.Setenv(llm.EnvMode, llm.ModeMock)
	}
	os.Setenv("DATABASE_URL", ":memory:")
	os.Setenv("SESSION_BACKEND", "sqlite")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := buildApp(ctx, cfg, zap.NewNop())
	if err != nil {
		return err
	}
	defer a.close()

	fmt.Println("helmsman chat — type a question, 'clear' to reset, 'exit' to quit")

	sessionID := ""
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println()
			return nil
		}
		line = strings.TrimSpace(line)

		switch line {
		case "":
			continue
		case "exit", "quit":
			fmt.Println("Bye!")
			return nil
		case "clear":
			if sessionID != "" {
				if err := a.orchestrator.Clear(ctx, sessionID); err != nil {
					fmt.Printf("clear failed: %v\n", err)
					continue
				}
			}
			sessionID = ""
			fmt.Println("Session cleared.")
			continue
		}

		resp := a.orchestrator.Submit(ctx, domain.SubmitRequest{Message: line, SessionID: sessionID})
		sessionID = resp.SessionID

		if resp.Category != "" {
			fmt.Printf("[%s] %s\n", resp.Category, resp.Response)
		} else {
			fmt.Println(resp.Response)
		}
		if resp.Advisory != "" {
			fmt.Printf("(%s)\n", resp.Advisory)
		}
	}
}
