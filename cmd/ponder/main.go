package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"

	goslack "github.com/slack-go/slack"
	"github.com/spf13/cobra"

	"github.com/lhoral/ponder/internal/config"
	"github.com/lhoral/ponder/internal/llm"
	"github.com/lhoral/ponder/internal/orchestrator"
	slackbot "github.com/lhoral/ponder/internal/slack"
)

func init() {
	cobra.EnablePrefixMatching = true
	version = resolveVersion(version)
}

// resolveVersion uses debug.ReadBuildInfo to replace "dev" with the actual
// module version when installed via `go install`.
var resolveVersion = func(v string) string {
	if v != "dev" {
		return v
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return v
}

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var osExit = os.Exit

func main() {
	if err := newRootCmd().Execute(); err != nil {
		osExit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ponder",
		Short: "Slack bot powered by Claude",
	}
	root.AddCommand(newServeCmd())
	root.AddCommand(newQueryCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Aliases: []string{"v"},
		Short:   "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("ponder %s\n", version)
			if commit != "none" {
				fmt.Printf("  commit: %s\n", commit)
			}
			if date != "unknown" {
				fmt.Printf("  built:  %s\n", date)
			}
		},
	}
}

// --- Shared testable vars ---

var (
	configLoad = config.Load

	newSlackTransport = func(botToken string, logger *slog.Logger) *slackbot.Transport {
		return slackbot.NewTransport(goslack.New(botToken), logger)
	}

	newClaudeClient = func(cfg *config.Config, logger *slog.Logger) orchestrator.Completer {
		opts := []llm.ClaudeOption{llm.WithLogger(logger)}
		if cfg.ClaudeModel != "" {
			opts = append(opts, llm.WithModel(llm.Model(cfg.ClaudeModel)))
		}
		if cfg.SystemPrompt != "" {
			opts = append(opts, llm.WithSystemPrompt(cfg.SystemPrompt))
		}
		return llm.NewClaudeClient(cfg.AnthropicAPIKey, opts...)
	}
)
