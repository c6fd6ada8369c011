package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/Louistrash/kaartmodellen/internal/entity"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func dealerCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dealer",
		Short: "Manage dealers",
	}
	cmd.AddCommand(dealerListCmd(opts))
	cmd.AddCommand(dealerShowCmd(opts))
	cmd.AddCommand(dealerCreateCmd(opts))
	cmd.AddCommand(dealerUpdateCmd(opts))
	cmd.AddCommand(dealerDeleteCmd(opts))
	cmd.AddCommand(dealerGenerateCmd(opts))
	cmd.AddCommand(dealerGenerateMissingCmd(opts))
	cmd.AddCommand(dealerApproveCmd(opts))
	cmd.AddCommand(dealerFlagCmd(opts, "activate", "Mark a dealer active", true, false))
	cmd.AddCommand(dealerFlagCmd(opts, "deactivate", "Mark a dealer inactive", false, false))
	cmd.AddCommand(dealerPremiumCmd(opts))
	return cmd
}

func (o *rootOptions) printDealer(cmd *cobra.Command, d *entity.DbDealer) error {
	if o.jsonOutput {
		return printJSON(cmd.OutOrStdout(), d)
	}
	renderDealer(cmd.OutOrStdout(), d)
	return nil
}

func dealerListCmd(opts *rootOptions) *cobra.Command {
	var (
		query           entity.DealerQuery
		active, premium bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List dealers",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("active") {
				query.IsActive = &active
			}
			if cmd.Flags().Changed("premium") {
				query.IsPremium = &premium
			}
			return withApp(cmd.Context(), opts, func(ctx context.Context, a *app) error {
				dealers, meta, err := a.service.ListDealers(ctx, &query)
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return printJSON(cmd.OutOrStdout(), entity.DealerListResponse{Dealers: dealers, Meta: meta})
				}
				renderDealers(cmd.OutOrStdout(), dealers, meta)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&active, "active", true, "filter by active flag")
	cmd.Flags().BoolVar(&premium, "premium", true, "filter by premium flag")
	cmd.Flags().StringVar(&query.Keyword, "keyword", "", "match name or personality")
	cmd.Flags().Int64Var(&query.Page, "page", 1, "page number")
	cmd.Flags().Int64Var(&query.PageSize, "page-size", 20, "page size")
	return cmd
}

func dealerShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <dealer-id>",
		Short: "Show a dealer and its outfits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(ctx context.Context, a *app) error {
				dealer, err := a.service.GetDealer(ctx, args[0])
				if err != nil {
					return err
				}
				return opts.printDealer(cmd, dealer)
			})
		},
	}
}

func dealerCreateCmd(opts *rootOptions) *cobra.Command {
	var (
		req               entity.DealerCreateRequest
		inactive, premium bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a dealer",
		RunE: func(cmd *cobra.Command, args []string) error {
			isActive := !inactive
			req.IsActive = &isActive
			req.IsPremium = &premium
			return withApp(cmd.Context(), opts, func(ctx context.Context, a *app) error {
				dealer, err := a.service.CreateDealer(ctx, req)
				if err != nil {
					return err
				}
				return opts.printDealer(cmd, dealer)
			})
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "dealer name")
	cmd.Flags().StringVar(&req.Personality, "personality", "", "personality label")
	cmd.Flags().StringVar(&req.Model, "model", entity.ModelDallE3, "model label or slug")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "create the dealer inactive")
	cmd.Flags().BoolVar(&premium, "premium", false, "mark the dealer premium")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("personality")
	return cmd
}

func dealerUpdateCmd(opts *rootOptions) *cobra.Command {
	var name, personality, modelLabel string
	cmd := &cobra.Command{
		Use:   "update <dealer-id>",
		Short: "Update dealer attributes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var updates entity.DealerUpdates
			if cmd.Flags().Changed("name") {
				updates.Name = &name
			}
			if cmd.Flags().Changed("personality") {
				updates.Personality = &personality
			}
			if cmd.Flags().Changed("model") {
				updates.Model = &modelLabel
			}
			if updates.IsEmpty() {
				return fmt.Errorf("nothing to update: pass --name, --personality or --model")
			}
			return withApp(cmd.Context(), opts, func(ctx context.Context, a *app) error {
				dealer, err := a.service.UpdateDealer(ctx, args[0], updates)
				if err != nil {
					return err
				}
				return opts.printDealer(cmd, dealer)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&personality, "personality", "", "new personality")
	cmd.Flags().StringVar(&modelLabel, "model", "", "new model label or slug")
	return cmd
}

func dealerDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <dealer-id>",
		Short: "Delete a dealer and its outfits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(ctx context.Context, a *app) error {
				deleted, err := a.service.DeleteDealer(ctx, args[0])
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return printJSON(cmd.OutOrStdout(), map[string]bool{"deleted": deleted})
				}
				if !deleted {
					fmt.Fprintf(cmd.OutOrStdout(), "dealer %s not found\n", args[0])
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted dealer %s\n", args[0])
				return nil
			})
		},
	}
}

func bindGenerateFlags(cmd *cobra.Command, req *entity.GenerateStageRequest) {
	cmd.Flags().StringVar(&req.Model, "model", "", "override the dealer's model")
	cmd.Flags().StringVar(&req.ExtraPrompt, "extra-prompt", "", "text appended to the generated prompt")
	cmd.Flags().StringVar(&req.APIKey, "api-key", "", "provider API key override")
}

func dealerGenerateCmd(opts *rootOptions) *cobra.Command {
	var req entity.GenerateStageRequest
	cmd := &cobra.Command{
		Use:   "generate <dealer-id> <stage>",
		Short: "Generate the image of one stage (number or name)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			stage, err := parseStageArg(args[1])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), opts, func(ctx context.Context, a *app) error {
				ctx, cancel := context.WithTimeout(ctx, a.cfg.GenerationTimeout())
				defer cancel()
				dealer, outfit, err := a.service.GenerateStage(ctx, args[0], stage, req)
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return printJSON(cmd.OutOrStdout(), entity.GenerateStageResponse{Dealer: dealer, Outfit: outfit})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "stage %d (%s): %s\n", outfit.Stage, outfit.Name, outfit.ImageURL)
				return nil
			})
		},
	}
	bindGenerateFlags(cmd, &req)
	return cmd
}

func dealerGenerateMissingCmd(opts *rootOptions) *cobra.Command {
	var req entity.GenerateStageRequest
	cmd := &cobra.Command{
		Use:   "generate-missing <dealer-id>",
		Short: "Generate every stage that has no outfit yet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(ctx context.Context, a *app) error {
				ctx, cancel := context.WithTimeout(ctx, a.cfg.GenerationTimeout())
				defer cancel()
				result, err := a.service.GenerateMissingStages(ctx, args[0], req)
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return printJSON(cmd.OutOrStdout(), result)
				}
				renderBatch(cmd, result)
				return nil
			})
		},
	}
	bindGenerateFlags(cmd, &req)
	return cmd
}

func renderBatch(cmd *cobra.Command, result *entity.BatchGenerationResult) {
	tw := table.NewWriter()
	tw.SetOutputMirror(cmd.OutOrStdout())
	tw.AppendHeader(table.Row{"Stage", "Result"})
	for _, stage := range result.Generated {
		tw.AppendRow(table.Row{stage.String(), "generated"})
	}
	failed := make([]entity.Stage, 0, len(result.Failures))
	for stage := range result.Failures {
		failed = append(failed, stage)
	}
	sort.Slice(failed, func(i, j int) bool { return failed[i] < failed[j] })
	for _, stage := range failed {
		tw.AppendRow(table.Row{stage.String(), "failed: " + result.Failures[stage]})
	}
	tw.Render()
}

func dealerApproveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "approve <dealer-id> <outfit-id>",
		Short: "Approve a generated outfit",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(ctx context.Context, a *app) error {
				dealer, err := a.service.ApproveOutfit(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return opts.printDealer(cmd, dealer)
			})
		},
	}
}

func dealerFlagCmd(opts *rootOptions, use, short string, value, premium bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <dealer-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlagChange(cmd, opts, args[0], value, premium)
		},
	}
}

func dealerPremiumCmd(opts *rootOptions) *cobra.Command {
	var off bool
	cmd := &cobra.Command{
		Use:   "premium <dealer-id>",
		Short: "Mark a dealer premium (use --off to clear)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlagChange(cmd, opts, args[0], !off, true)
		},
	}
	cmd.Flags().BoolVar(&off, "off", false, "clear the premium flag")
	return cmd
}

func runFlagChange(cmd *cobra.Command, opts *rootOptions, dealerID string, value, premium bool) error {
	return withApp(cmd.Context(), opts, func(ctx context.Context, a *app) error {
		set := a.service.SetActive
		if premium {
			set = a.service.SetPremium
		}
		dealer, change, err := set(ctx, dealerID, value)
		if err != nil {
			return fmt.Errorf("%w (%s stays %t)", err, change.Flag, change.Revert())
		}
		return opts.printDealer(cmd, dealer)
	})
}
