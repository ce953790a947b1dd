package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/ruffie/backend/internal/analysis/grade"
	"github.com/zhouzirui/ruffie/backend/internal/config"
	"github.com/zhouzirui/ruffie/backend/internal/model/persona"
	"github.com/zhouzirui/ruffie/backend/internal/model/rubric"
	"github.com/zhouzirui/ruffie/backend/internal/service/ai"
	"github.com/zhouzirui/ruffie/backend/internal/service/coach"
	"github.com/zhouzirui/ruffie/backend/internal/service/session"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
	}

	root := newRootCmd(loadGateway)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// gatewayFactory builds the model gateway from the environment.
type gatewayFactory func(ctx context.Context, cfg *config.Config) (ai.Gateway, error)

func loadGateway(ctx context.Context, cfg *config.Config) (ai.Gateway, error) {
	return ai.NewGateway(ctx, cfg.AI)
}

func newRootCmd(newGateway gatewayFactory) *cobra.Command {
	root := &cobra.Command{
		Use:           "riskcoach",
		Short:         "Operator tools for the RUFfie risk coach",
		SilenceUsage:  true,
	}
	root.AddCommand(newGradeCmd(), newPersonasCmd(), newCoachCmd(newGateway))
	return root
}

func newGradeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "grade [file]",
		Short: "Extract the rubric grade from a coach reply",
		Long: `Read a coach reply from a file, or from stdin when no file is given,
and print the first rubric grade it contains together with its band and
whether it would be recorded in the risk ledger.`,
		Example: `  riskcoach grade reply.txt
  pbpaste | riskcoach grade`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("opening reply: %w", err)
				}
				defer f.Close()
				in = f
			}

			data, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("reading reply: %w", err)
			}

			g, ok := grade.Extract(string(data))
			if !ok {
				return fmt.Errorf("no rubric grade found")
			}
			printGrade(cmd.OutOrStdout(), g)
			return nil
		},
	}
}

func printGrade(out io.Writer, g rubric.Grade) {
	qualifies := "no"
	if g.Qualifies() {
		qualifies = "yes"
	}
	fmt.Fprintf(out, "Grade: %s  band: %s  ledger: %s\n", bandColor(g.Band()).Sprint(g), g.Band(), qualifies)
}

func bandColor(b rubric.Band) *color.Color {
	switch b {
	case rubric.BandHigh:
		return color.New(color.FgGreen, color.Bold)
	case rubric.BandMid:
		return color.New(color.FgYellow, color.Bold)
	case rubric.BandLow:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}

func loadPersonas() (persona.Store, error) {
	personas := persona.Seed()
	if file := strings.TrimSpace(os.Getenv("PERSONAS_FILE")); file != "" {
		merged, err := persona.LoadFile(file, personas)
		if err != nil {
			return nil, err
		}
		personas = merged
	}
	return persona.NewMemoryStore(personas), nil
}

func newPersonasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "personas",
		Short: "List the coaching personas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := loadPersonas()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			bold := color.New(color.Bold).SprintFunc()
			fmt.Fprintf(out, "%-16s  %-16s  %s\n", "ID", "NAME", "TONE")
			for _, p := range store.List() {
				fmt.Fprintf(out, "%-16s  %-16s  %s\n", bold(string(p.ID)), p.Name, p.Tone)
			}
			return nil
		},
	}
}

func newCoachCmd(newGateway gatewayFactory) *cobra.Command {
	var (
		personaID  string
		exportPath string
		user       string
	)

	cmd := &cobra.Command{
		Use:   "coach <statement>",
		Short: "Coach a single risk statement against the configured model",
		Example: `  riskcoach coach "We might miss the deadline"
  riskcoach coach --persona executive --export risks.csv "Because vendor X ..."`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}

			store, err := loadPersonas()
			if err != nil {
				return err
			}

			gateway, err := newGateway(ctx, cfg)
			if err != nil {
				return fmt.Errorf("creating model gateway: %w", err)
			}

			sess, err := session.NewRegistry().Login(ctx, user, "cli")
			if err != nil {
				return err
			}
			if err := sess.SetPersona(persona.Key(personaID)); err != nil {
				return fmt.Errorf("persona %q: %w", personaID, err)
			}

			svc := coach.NewService(ai.NewComposer(store), gateway, nil)
			result := svc.Submit(ctx, sess, strings.Join(args, " "))

			out := cmd.OutOrStdout()
			switch result.Outcome {
			case coach.OutcomeIgnored:
				return fmt.Errorf("statement is empty")
			case coach.OutcomeFailed:
				fmt.Fprintln(out, color.RedString(result.Reply.Content))
				return fmt.Errorf("coaching failed")
			}

			fmt.Fprintln(out, result.Reply.Content)
			fmt.Fprintln(out)
			if result.Reply.Grade != nil {
				printGrade(out, *result.Reply.Grade)
			} else {
				fmt.Fprintln(out, color.YellowString("The reply carried no grade."))
			}

			if exportPath != "" {
				data, err := sess.Ledger.Export()
				if err != nil {
					return err
				}
				if err := os.WriteFile(exportPath, data, 0o644); err != nil {
					return fmt.Errorf("writing export: %w", err)
				}
				fmt.Fprintf(out, "%s %s (%d risk(s))\n", color.GreenString("exported"), exportPath, sess.Ledger.Len())
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&personaID, "persona", "p", string(persona.Default), "coaching persona")
	cmd.Flags().StringVarP(&exportPath, "export", "e", "", "write the risk ledger CSV to this file")
	cmd.Flags().StringVarP(&user, "user", "u", defaultUser(), "name recorded as the submitter")
	return cmd
}

func defaultUser() string {
	if u := strings.TrimSpace(os.Getenv("USER")); u != "" {
		return u
	}
	return "operator"
}
