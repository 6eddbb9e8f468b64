package cmd

import (
	"fmt"
	"strings"

	"github.com/narraflow/narraflow/internal/config"
	"github.com/narraflow/narraflow/internal/segment"
	chatgpt "github.com/narraflow/narraflow/internal/services/chatgpt"
	"github.com/narraflow/narraflow/internal/services/elevenlabs"
	"github.com/narraflow/narraflow/internal/utils"

	"github.com/spf13/cobra"
)

var planOutputPath string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a script and configuration without synthesizing",
	Long: `Parse the input, run the deterministic clause segmentation and print
the resulting plan. No network calls are made; this is a dry run that
shows how the pipeline will split and pause the narration.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFilePath)
		if err != nil {
			return err
		}

		scenes, err := loadScenes(cfg.MaxHeaderLength)
		if err != nil {
			return err
		}
		utils.LogSuccess("Input parsed: %d scene(s)", len(scenes))

		defaults := segment.Defaults{
			SentencePause: cfg.DefaultPauseSeconds,
			CommaPause:    cfg.CommaPauseSeconds,
		}

		var plan strings.Builder
		for _, scene := range scenes {
			clauses, err := segment.Fallback(scene.RawText, defaults)
			if err != nil {
				return fmt.Errorf("scene %s: %w", scene.ID, err)
			}

			title := scene.Title
			if title == "" {
				title = "(untitled)"
			}
			fmt.Fprintf(&plan, "\nScene %s - %s (%d clauses, %.1fs pause after)\n",
				scene.ID, title, len(clauses), scene.PauseAfter)
			for _, clause := range clauses {
				fmt.Fprintf(&plan, "  %2d. %q  pause %.2fs\n", clause.Order+1, clause.Text, clause.PauseAfter)
			}
		}
		fmt.Print(plan.String())

		if planOutputPath != "" {
			if err := utils.WriteTextFile(planOutputPath, plan.String()); err != nil {
				return err
			}
			utils.LogInfo("Plan written to %s", planOutputPath)
		}

		fmt.Println()
		if elevenlabs.IsAPIKeySet() {
			utils.LogSuccess("ELEVENLABS_API_KEY: set")
		} else {
			utils.LogWarning("ELEVENLABS_API_KEY is not set; run will fail without it")
		}
		if cfg.UseLLMSegmentation || cfg.UseSpliceReview {
			if chatgpt.IsAPIKeySet() {
				utils.LogSuccess("OPENAI_API_KEY: set")
			} else {
				utils.LogWarning("OPENAI_API_KEY is not set; language model features will fail")
			}
		}

		utils.LogSuccess("Validation completed")
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVarP(&scriptFilePath, "script", "s", "", "Path to a narration script text file")
	validateCmd.Flags().StringVar(&scenesFilePath, "scenes", "", "Path to a structured scenes YAML file")
	validateCmd.Flags().StringVarP(&configFilePath, "config", "c", "", "Path to a job configuration YAML file")
	validateCmd.Flags().StringVarP(&planOutputPath, "output", "o", "", "Also write the plan to this file")
	rootCmd.AddCommand(validateCmd)
}
