package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/hexborne/vulndetective/api/schemas"
	"github.com/hexborne/vulndetective/internal/assistant"
	"github.com/hexborne/vulndetective/internal/config"
	"github.com/hexborne/vulndetective/internal/engine"
	"github.com/hexborne/vulndetective/internal/observability"
	"github.com/hexborne/vulndetective/internal/provider"
)

const chatHelp = `Commands:
  explain <n> [beginner|intermediate|expert]   Explain finding number n
  next                                         Suggest prioritized next steps
  checklist                                    Generate a security checklist
  findings                                     List the findings again
  help                                         Show this help
  quit                                         End the session

Anything else is sent to the assistant as a free-form question.`

// newChatCmd creates the interactive assistant command. It scans a single
// target first, then opens a conversational session over the results.
func newChatCmd() *cobra.Command {
	chatCmd := &cobra.Command{
		Use:   "chat [target]",
		Short: "Scans a target and opens an interactive session about the findings",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			out := cmd.OutOrStdout()

			cfg, err := config.NewFromViper(viper.GetViper())
			if err != nil {
				return err
			}

			units, err := acquireTargets(ctx, cfg, args)
			if err != nil {
				return err
			}
			unit := units[0]
			if len(units) > 1 {
				logger.Warn("Target resolved to multiple files, the session covers the first one",
					zap.String("unit", unit.Name))
			}

			modelProvider, err := provider.New(cfg.LLM)
			if err != nil {
				return fmt.Errorf("failed to initialize model provider: %w", err)
			}

			fmt.Fprintf(out, "Analyzing %s...\n", unit.Name)
			result, err := engine.New(cfg, modelProvider).AnalyzeUnit(ctx, unit)
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}

			printFindings(out, result)

			session := assistant.NewSession(modelProvider, unit, result.Findings)
			defer session.Close()

			fmt.Fprintln(out, "\nInteractive session started. Type 'help' for commands.")
			return runChatLoop(cmd, session, result)
		},
	}
	return chatCmd
}

func runChatLoop(cmd *cobra.Command, session *assistant.Session, result *schemas.UnitResult) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(cmd.InOrStdin())

	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		var answer string
		var err error

		switch strings.ToLower(fields[0]) {
		case "quit", "exit":
			return nil
		case "help":
			fmt.Fprintln(out, chatHelp)
			continue
		case "findings":
			printFindings(out, result)
			continue
		case "explain":
			if len(fields) < 2 {
				fmt.Fprintln(out, "Usage: explain <n> [beginner|intermediate|expert]")
				continue
			}
			n, convErr := strconv.Atoi(fields[1])
			if convErr != nil || n < 1 || n > len(result.Findings) {
				fmt.Fprintf(out, "Finding number must be between 1 and %d.\n", len(result.Findings))
				continue
			}
			level := assistant.LevelIntermediate
			if len(fields) > 2 {
				level = assistant.ExpertiseLevel(strings.ToLower(fields[2]))
			}
			answer, err = session.ExplainFinding(ctx, result.Findings[n-1], level)
		case "next":
			answer, err = session.SuggestNextSteps(ctx)
		case "checklist":
			answer, err = session.SecurityChecklist(ctx)
		default:
			answer, err = session.Ask(ctx, line)
		}

		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(out, "The assistant could not answer: %v\n", err)
			continue
		}
		fmt.Fprintf(out, "\n%s\n", answer)
	}
}

func printFindings(out io.Writer, result *schemas.UnitResult) {
	if len(result.Findings) == 0 {
		fmt.Fprintln(out, "No findings.")
		return
	}
	fmt.Fprintf(out, "%d finding(s):\n", len(result.Findings))
	for i, f := range result.Findings {
		fmt.Fprintf(out, "  %d. [%s] %s (lines %d-%d, risk %.1f)\n",
			i+1, strings.ToUpper(string(f.Severity)), f.Category,
			f.Span.StartLine, f.Span.EndLine, f.RiskScore)
	}
	if result.Degraded {
		fmt.Fprintln(out, "  Note: semantic analysis was unavailable, results are pattern-based only.")
	}
}
