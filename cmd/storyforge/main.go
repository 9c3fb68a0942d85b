// Package main provides the storyforge CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"storyforge/config"
	"storyforge/llm"
	"storyforge/orchestrator"
	"storyforge/storage"
)

var (
	// Global flags
	configPath string
	provider   string
	modelName  string
	verbose    bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "storyforge",
		Short: "AI-assisted fiction writing from the command line",
		Long: `storyforge orchestrates LLM providers for long-form fiction work:
generating characters, plots, synopses, and chapters, and running the
critique-then-revise refinement loop on existing drafts.`,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to settings file (default storyforge.yaml if present)")
	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "", "LLM provider (openai, claude, gemini, grok, local)")
	rootCmd.PersistentFlags().StringVarP(&modelName, "model", "m", "", "Model override")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show verbose output")

	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(refineCmd())
	rootCmd.AddCommand(providersCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(keyCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app bundles everything a command needs.
type app struct {
	settings config.Settings
	keystore *config.Keystore
	log      *zap.Logger
	store    *storage.SqliteStore
	orch     *orchestrator.Orchestrator
}

func newApp() (*app, error) {
	path := configPath
	if path == "" {
		if _, err := os.Stat("storyforge.yaml"); err == nil {
			path = "storyforge.yaml"
		}
	}
	settings, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if provider != "" {
		settings.Provider = provider
		if modelName == "" {
			if id, perr := llm.ParseProviderID(provider); perr == nil {
				settings.Model = id.DefaultModel()
			}
		}
	}
	if modelName != "" {
		settings.Model = modelName
	}

	log := zap.NewNop()
	if verbose {
		if log, err = zap.NewDevelopment(); err != nil {
			return nil, err
		}
	}

	keystore, err := config.OpenKeystore(settings.DataDir)
	if err != nil {
		return nil, err
	}

	store, err := storage.OpenSqlite(filepath.Join(settings.DataDir, "storyforge.db"))
	if err != nil {
		return nil, err
	}

	orch, err := orchestrator.New(orchestrator.Config{
		Settings:     settings,
		Keystore:     keystore,
		Logger:       log,
		History:      storage.NewHistoryStore(store),
		Improvements: storage.NewImprovementLog(store),
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	return &app{
		settings: settings,
		keystore: keystore,
		log:      log,
		store:    store,
		orch:     orch,
	}, nil
}

func (a *app) close() {
	_ = a.store.Close()
	_ = a.log.Sync()
}

func generateCmd() *cobra.Command {
	var reqType string
	var stream bool

	cmd := &cobra.Command{
		Use:   "generate [prompt]",
		Short: "Generate content from a prompt",
		Long: `Generate content with the configured provider. The type controls
timeouts and output handling: "draft" and "chapter" return prose verbatim,
other types attempt to extract clean JSON from the response.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			req := llm.Request{
				Prompt: args[0],
				Type:   llm.RequestType(reqType),
			}
			if stream {
				req.OnChunk = func(chunk string) { fmt.Print(chunk) }
			}

			res := a.orch.GenerateContent(context.Background(), req)
			if res.Failed() {
				return fmt.Errorf("%s", res.ErrorMessage())
			}
			if stream {
				fmt.Println()
			} else {
				fmt.Println(res.Content)
			}
			if verbose && res.Usage != nil {
				fmt.Fprintf(os.Stderr, "tokens: %d prompt, %d completion\n",
					res.Usage.PromptTokens, res.Usage.CompletionTokens)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&reqType, "type", "t", string(llm.TypeDraft), "Request type (character, plot, synopsis, chapter, draft)")
	cmd.Flags().BoolVarP(&stream, "stream", "s", false, "Stream output as it arrives")
	return cmd
}

func refineCmd() *cobra.Command {
	var chapterID string
	var write bool

	cmd := &cobra.Command{
		Use:   "refine [draft-file]",
		Short: "Run the critique-then-revise loop on a draft",
		Long: `Refine a draft in two phases: the model first critiques the text,
then revises it according to its own critique. The revised text is printed
(or written back with --write), and an improvement log entry is recorded.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			draft, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if chapterID == "" {
				chapterID = filepath.Base(args[0])
			}

			out := a.orch.SelfRefine(context.Background(), orchestrator.RefineInput{
				ChapterID: chapterID,
				Draft:     string(draft),
			})
			switch out.Phase {
			case orchestrator.PhaseCancelled:
				fmt.Fprintln(os.Stderr, "refinement cancelled")
				return nil
			case orchestrator.PhaseFailed:
				return fmt.Errorf("refinement failed: %s", out.Err.Message+" "+out.Err.Category.Hint())
			}

			if out.Revision.ImprovementSummary != "" {
				fmt.Fprintf(os.Stderr, "summary: %s\n", out.Revision.ImprovementSummary)
			}
			for _, change := range out.Revision.Changes {
				fmt.Fprintf(os.Stderr, "  - %s\n", change)
			}

			if write {
				return os.WriteFile(args[0], []byte(out.Revision.RevisedText), 0644)
			}
			fmt.Println(out.Revision.RevisedText)
			return nil
		},
	}

	cmd.Flags().StringVar(&chapterID, "chapter", "", "Chapter ID for the improvement log (default: file name)")
	cmd.Flags().BoolVarP(&write, "write", "w", false, "Write the revision back to the draft file")
	return cmd
}

func providersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List available providers and their configuration state",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			for _, id := range a.orch.AvailableProviders() {
				state := "no key needed"
				if id.NeedsAPIKey() {
					if key, kerr := config.APIKeyFor(id, a.keystore); kerr == nil {
						state = "key " + config.MaskKey(key)
					} else {
						state = "no key configured"
					}
				}
				marker := " "
				if id.String() == a.settings.Provider {
					marker = "*"
				}
				fmt.Printf("%s %-8s default model %-28s %s\n", marker, id, id.DefaultModel(), state)
			}
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "export [project-id]",
		Short: "Export a project as plain text or JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			projects := storage.NewProjectStore(a.store)
			switch format {
			case "txt":
				text, err := projects.ExportText(context.Background(), args[0])
				if err != nil {
					return err
				}
				fmt.Print(text)
			case "json":
				raw, err := projects.ExportJSON(context.Background(), args[0])
				if err != nil {
					return err
				}
				fmt.Println(string(raw))
			default:
				return fmt.Errorf("unknown format %q (want txt or json)", format)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "txt", "Export format (txt, json)")
	return cmd
}

func keyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage stored API keys",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set [provider] [api-key]",
		Short: "Store an API key (encrypted at rest)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := llm.ParseProviderID(args[0])
			if err != nil {
				return err
			}
			if !id.NeedsAPIKey() {
				return fmt.Errorf("provider %s does not use an API key", id)
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.keystore.Set(id.String(), args[1]); err != nil {
				return err
			}
			fmt.Printf("stored key %s for %s\n", config.MaskKey(args[1]), id)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete [provider]",
		Short: "Delete a stored API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := llm.ParseProviderID(args[0])
			if err != nil {
				return err
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			return a.keystore.Delete(id.String())
		},
	})

	return cmd
}
