package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"sales-support/internal/assistant"
	"sales-support/internal/chunker"
	"sales-support/internal/config"
	"sales-support/internal/helper"
	"sales-support/internal/models"
	"sales-support/internal/parser"
	"sales-support/internal/prompts"
	"sales-support/internal/rag"
)

type configLoader func() (*config.Config, error)

// withAssistant builds the assistant for one command run and closes it afterwards
func withAssistant(ctx context.Context, load configLoader, fn func(a *assistant.Assistant) error) error {
	cfg, err := load()
	if err != nil {
		return err
	}
	a, err := assistant.NewFromConfig(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func templatesCmd() *cobra.Command {
	var concept string

	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List the prompt templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			lib := prompts.NewLibrary()
			out := cmd.OutOrStdout()
			for _, name := range lib.Names() {
				t, _ := lib.Get(name)
				if concept == "" {
					fmt.Fprintf(out, "%s\n%s\n\n", name, t.Text())
					continue
				}
				rendered, err := t.Format(concept)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\n%s\n\n", name, rendered)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&concept, "concept", "", "Render every template with this concept")
	return cmd
}

func splitCmd() *cobra.Command {
	var (
		size, overlap int
		kind, file    string
	)

	cmd := &cobra.Command{
		Use:   "split [text]",
		Short: "Split text into chunks",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := inputText(args, file)
			if err != nil {
				return err
			}
			s, err := chunker.New(kind, size, overlap)
			if err != nil {
				return err
			}
			chunks, err := s.Split(text)
			if err != nil {
				return err
			}
			helper.PrettyPrint(cmd.OutOrStdout(), chunks)
			return nil
		},
	}
	cmd.Flags().IntVar(&size, "size", models.DefaultChunkSize, "Maximum chunk size in characters")
	cmd.Flags().IntVar(&overlap, "overlap", models.DefaultChunkOverlap, "Characters shared by consecutive chunks")
	cmd.Flags().StringVar(&kind, "splitter", config.SplitterCharacter, "Splitter kind: character or recursive")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the text from a document")
	return cmd
}

func embedCmd(load configLoader) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "embed [text]",
		Short: "Split text and upsert its chunks into the index",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := inputText(args, file)
			if err != nil {
				return err
			}
			return withAssistant(cmd.Context(), load, func(a *assistant.Assistant) error {
				if err := a.Embed(cmd.Context(), text); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "indexed %d chunks into %s\n", len(a.LastSplitResult()), a.IndexName())
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the text from a document (txt, md, pdf, docx, pptx, xlsx)")
	return cmd
}

func searchCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Find the indexed chunks closest to a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAssistant(cmd.Context(), load, func(a *assistant.Assistant) error {
				chunks, err := a.EmbeddedPrompt(cmd.Context(), args[0])
				if err != nil {
					if errors.Is(err, models.ErrIndexNotPopulated) {
						return fmt.Errorf("%w, run embed first", err)
					}
					return err
				}
				helper.PrettyPrint(cmd.OutOrStdout(), chunks)
				return nil
			})
		},
	}
}

func promptCmd(load configLoader) *cobra.Command {
	var name, concept, model string

	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Render a template and send it to the completion model",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAssistant(cmd.Context(), load, func(a *assistant.Assistant) error {
				tmpl, err := a.Template(name)
				if err != nil {
					return err
				}
				out, err := a.PromptWithTemplate(cmd.Context(), tmpl, concept, model)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&name, "template", "t", prompts.TrainingServices, "Template name")
	cmd.Flags().StringVarP(&concept, "concept", "c", "", "Value for the template placeholder")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Completion model (default from config)")
	_ = cmd.MarkFlagRequired("concept")
	return cmd
}

func chatCmd(load configLoader) *cobra.Command {
	var system, human string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Send one system and human message pair to the chat model",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAssistant(cmd.Context(), load, func(a *assistant.Assistant) error {
				reply, err := a.CachedChatRequest(cmd.Context(), system, human)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), reply)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&system, "system", "s", models.SalesRole, "System message")
	cmd.Flags().StringVarP(&human, "human", "u", "", "Human message")
	_ = cmd.MarkFlagRequired("human")
	return cmd
}

func askCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the indexed material with the chat model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAssistant(cmd.Context(), load, func(a *assistant.Assistant) error {
				answer, err := rag.NewRAG(a, a).Query(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), answer)
				return nil
			})
		},
	}
}

// inputText takes the text argument, the file flag, or stdin when the argument is "-"
func inputText(args []string, file string) (string, error) {
	switch {
	case file != "" && len(args) > 0:
		return "", errors.New("pass either a text argument or --file, not both")
	case file != "":
		return parser.ExtractText(file)
	case len(args) == 1 && args[0] == "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	case len(args) == 1:
		return args[0], nil
	default:
		return "", errors.New("no text given, pass it as an argument, - for stdin, or --file")
	}
}
