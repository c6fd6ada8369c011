package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Louistrash/kaartmodellen/internal/config"
	"github.com/Louistrash/kaartmodellen/internal/entity"
	"github.com/Louistrash/kaartmodellen/internal/llm"
	"github.com/Louistrash/kaartmodellen/internal/model"
	"github.com/Louistrash/kaartmodellen/internal/service"
	"github.com/Louistrash/kaartmodellen/internal/storage"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	jsonOutput bool
	envFile    string
}

// app 是单次命令执行期间共享的依赖
type app struct {
	cfg        config.Config
	dispatcher *llm.Dispatcher
	service    *service.DealerService
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "dealerctl",
		Short:         "Manage blackjack dealer personas and their outfit images",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "output JSON")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "optional .env file to load before reading the environment")

	root.AddCommand(stagesCmd(opts))
	root.AddCommand(dealerCmd(opts))
	root.AddCommand(generateImageCmd(opts))
	return root
}

// withApp 按环境配置打开仓库、存储与生成器，执行完毕后关闭仓库
func withApp(ctx context.Context, opts *rootOptions, fn func(ctx context.Context, a *app) error) error {
	if opts.envFile != "" {
		if err := config.LoadDotEnv(opts.envFile); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
	}
	cfg, err := config.ParseConfig()
	if err != nil {
		return err
	}

	repo, err := model.InitRepository(&cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = repo.Close(closeCtx)
	}()

	if err := model.SeedDemoDealers(ctx, repo, cfg); err != nil {
		return err
	}

	var store storage.Storage
	if cfg.ImageMirrorEnabled {
		if store, err = storage.NewStorage(cfg); err != nil {
			return err
		}
	}

	dispatcher := llm.NewDispatcher(llm.OptionsFromConfig(cfg))
	return fn(ctx, &app{
		cfg:        cfg,
		dispatcher: dispatcher,
		service:    service.NewDealerService(repo, dispatcher, store, cfg),
	})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func renderStages(w io.Writer, stages []entity.StageInfo) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Stage", "Name"})
	for _, s := range stages {
		tw.AppendRow(table.Row{int(s.Stage), s.Name})
	}
	tw.Render()
}

func renderDealers(w io.Writer, dealers []entity.DbDealer, meta *entity.Meta) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"ID", "Name", "Personality", "Model", "Active", "Premium", "Outfits"})
	for _, d := range dealers {
		tw.AppendRow(table.Row{
			d.ID, d.Name, d.Personality, d.Model, yesNo(d.IsActive), yesNo(d.IsPremium),
			fmt.Sprintf("%d/%d", len(d.Outfits), len(entity.Stages())),
		})
	}
	if meta != nil {
		tw.AppendFooter(table.Row{"", "", "", "", "", "Total", meta.Total})
	}
	tw.Render()
}

func renderDealer(w io.Writer, d *entity.DbDealer) {
	summary := table.NewWriter()
	summary.SetOutputMirror(w)
	summary.AppendRows([]table.Row{
		{"ID", d.ID},
		{"Name", d.Name},
		{"Personality", d.Personality},
		{"Model", d.Model},
		{"Active", yesNo(d.IsActive)},
		{"Premium", yesNo(d.IsPremium)},
		{"Updated", d.UpdatedAt.Format(time.RFC3339)},
	})
	summary.Render()

	outfits := table.NewWriter()
	outfits.SetOutputMirror(w)
	outfits.AppendHeader(table.Row{"Stage", "Name", "Approved", "Outfit ID", "Image URL"})
	for _, info := range entity.Stages() {
		o, ok := d.OutfitForStage(info.Stage)
		if !ok {
			outfits.AppendRow(table.Row{int(info.Stage), info.Name, "-", "-", "(missing)"})
			continue
		}
		outfits.AppendRow(table.Row{int(o.Stage), o.Name, yesNo(o.Approved), o.ID, o.ImageURL})
	}
	outfits.Render()
}

func stagesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stages",
		Short: "List the outfit stages",
		RunE: func(cmd *cobra.Command, args []string) error {
			stages := entity.Stages()
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), stages)
			}
			renderStages(cmd.OutOrStdout(), stages)
			return nil
		},
	}
}

func generateImageCmd(opts *rootOptions) *cobra.Command {
	var req entity.GenerateImageRequest
	cmd := &cobra.Command{
		Use:   "generate-image",
		Short: "Generate a single image without touching any dealer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(ctx context.Context, a *app) error {
				ctx, cancel := context.WithTimeout(ctx, a.cfg.ProviderTimeout())
				defer cancel()
				url, err := a.dispatcher.Generate(ctx, entity.GenerationRequest{
					Prompt: req.Prompt,
					Model:  req.Model,
					APIKey: req.APIKey,
				})
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return printJSON(cmd.OutOrStdout(), entity.GenerateImageResponse{ImageURL: url})
				}
				fmt.Fprintln(cmd.OutOrStdout(), url)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&req.Prompt, "prompt", "", "image prompt")
	cmd.Flags().StringVar(&req.Model, "model", entity.ModelDallE3, `model label; only the exact "GetImg.ai" selects getimg`)
	cmd.Flags().StringVar(&req.APIKey, "api-key", "", "provider API key override")
	_ = cmd.MarkFlagRequired("prompt")
	return cmd
}

func parseStageArg(raw string) (entity.Stage, error) {
	if _, err := strconv.Atoi(raw); err != nil {
		if stage, ok := stageByName(raw); ok {
			return stage, nil
		}
	}
	return entity.ParseStage(raw)
}

func stageByName(name string) (entity.Stage, bool) {
	for _, info := range entity.Stages() {
		if strings.EqualFold(info.Name, name) {
			return info.Stage, true
		}
	}
	return 0, false
}
