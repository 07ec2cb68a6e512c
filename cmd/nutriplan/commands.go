package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/fdg312/nutriplan/internal/auth"
	"github.com/fdg312/nutriplan/internal/config"
	"github.com/fdg312/nutriplan/internal/logging"
	"github.com/fdg312/nutriplan/internal/nutrition"
	"github.com/fdg312/nutriplan/internal/planvalidator"
	"github.com/fdg312/nutriplan/internal/profiles"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "nutriplan",
		Short:         "Nutrition targets, condition detection and meal plan checks from the command line",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(targetsCmd())
	root.AddCommand(detectCmd())
	root.AddCommand(interactionsCmd())
	root.AddCommand(validateCmd())
	root.AddCommand(tokenCmd())
	return root
}

// cliLogger пишет в stderr, чтобы stdout оставался чистым JSON
func cliLogger(cmd *cobra.Command) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.Kitchen}).
		Level(zerolog.WarnLevel).With().Timestamp().Logger()
}

func newNutrition(cmd *cobra.Command) (*nutrition.Service, error) {
	return nutrition.NewDefaultService(cliLogger(cmd))
}

// readInput reads a file argument, or stdin when the argument is "-" or missing.
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(args[0])
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func targetsCmd() *cobra.Command {
	var targetsOnly bool
	cmd := &cobra.Command{
		Use:   "targets [profile.json|-]",
		Short: "Compute daily targets and per-slot distribution for a patient profile",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args)
			if err != nil {
				return fmt.Errorf("read profile: %w", err)
			}
			var p profiles.PatientProfile
			if err := json.Unmarshal(data, &p); err != nil {
				return fmt.Errorf("decode profile: %w", err)
			}

			svc, err := newNutrition(cmd)
			if err != nil {
				return err
			}
			report, err := svc.Requirements(cmd.Context(), p)
			if err != nil {
				return err
			}
			if targetsOnly {
				return printJSON(cmd, report.Targets)
			}
			return printJSON(cmd, report)
		},
	}
	cmd.Flags().BoolVar(&targetsOnly, "targets-only", false, "print only the daily targets")
	return cmd
}

func detectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect <text...>",
		Short: "Detect condition ids in free-text pathologies",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newNutrition(cmd)
			if err != nil {
				return err
			}
			ids := svc.Detect(strings.Join(args, " "))
			if ids == nil {
				ids = []string{}
			}
			return printJSON(cmd, map[string][]string{"condition_ids": ids})
		},
	}
}

// parseSupplement accepts "id" or "id:dose", e.g. "vitamina_d3:2000 UI".
func parseSupplement(s string) profiles.SupplementDose {
	id, dose, _ := strings.Cut(s, ":")
	return profiles.SupplementDose{ID: strings.TrimSpace(id), Dose: strings.TrimSpace(dose)}
}

func interactionsCmd() *cobra.Command {
	var meds, supps []string
	cmd := &cobra.Command{
		Use:   "interactions",
		Short: "Check supplement/medication interactions and supplement macros",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(meds) == 0 && len(supps) == 0 {
				return fmt.Errorf("at least one --med or --supplement is required")
			}
			req := nutrition.InteractionsRequest{Medications: meds}
			for _, s := range supps {
				req.Supplements = append(req.Supplements, parseSupplement(s))
			}

			svc, err := newNutrition(cmd)
			if err != nil {
				return err
			}
			return printJSON(cmd, svc.CheckInteractions(req))
		},
	}
	cmd.Flags().StringSliceVar(&meds, "med", nil, "medication name (repeatable)")
	cmd.Flags().StringArrayVar(&supps, "supplement", nil, "supplement as id or id:dose (repeatable)")
	return cmd
}

func validateCmd() *cobra.Command {
	var (
		strategy  string
		tolerance float64
		minCarbs  float64
		perSlot   int
		slots     []string
	)
	cmd := &cobra.Command{
		Use:   "validate [plan.json|-]",
		Short: "Validate a candidate meal plan; exits non-zero when it has violations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if tolerance <= 0 || tolerance >= 1 {
				return fmt.Errorf("--tolerance must be in (0,1), got %v", tolerance)
			}
			if perSlot < 0 {
				return fmt.Errorf("--options-per-slot must be >= 0, got %d", perSlot)
			}
			data, err := readInput(cmd, args)
			if err != nil {
				return fmt.Errorf("read plan: %w", err)
			}
			cand, err := planvalidator.ParseCandidateBytes(data)
			if err != nil {
				return err
			}

			res := planvalidator.Validate(cand, planvalidator.Options{
				Strategy:       profiles.Strategy(strings.ToLower(strategy)),
				Tolerance:      tolerance,
				MinDailyCarbsG: minCarbs,
				Slots:          slots,
				OptionsPerSlot: perSlot,
			})
			if err := printJSON(cmd, res); err != nil {
				return err
			}
			if !res.Valid {
				return fmt.Errorf("plan has %d violation(s)", len(res.Violations))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&strategy, "strategy", string(profiles.StrategyTraditional), "traditional | equitable | custom")
	cmd.Flags().Float64Var(&tolerance, "tolerance", planvalidator.DefaultTolerance, "relative tolerance for option comparisons")
	cmd.Flags().Float64Var(&minCarbs, "min-carbs", 0, "minimum daily carbohydrates in grams (0 disables)")
	cmd.Flags().IntVar(&perSlot, "options-per-slot", 0, "exact option count per slot (0 disables)")
	cmd.Flags().StringSliceVar(&slots, "slots", nil, "slots the plan must cover, comma separated")
	return cmd
}

func tokenCmd() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <subject>",
		Short: "Issue a JWT for local testing (uses JWT_SECRET / JWT_ISSUER)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !cfg.IsLocal() {
				logger := logging.New(cfg)
				logger.Warn().Str("env", cfg.Env).Msg("issuing a token outside local env")
			}
			resp, err := auth.NewService(cfg).IssueToken(args[0], ttl)
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default JWT_TTL_MINUTES)")
	return cmd
}
