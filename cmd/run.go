package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/narraflow/narraflow/internal/config"
	"github.com/narraflow/narraflow/internal/longform"
	"github.com/narraflow/narraflow/internal/script"
	chatgpt "github.com/narraflow/narraflow/internal/services/chatgpt"
	"github.com/narraflow/narraflow/internal/services/elevenlabs"
	"github.com/narraflow/narraflow/internal/utils"

	"github.com/spf13/cobra"
)

var (
	scriptFilePath string
	scenesFilePath string
	configFilePath string
	outputBasePath string
	voiceOverride  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Synthesize a narration script into a master track",
	Long: `Execute the full narration pipeline over a script file or a structured
scenes file. Output lands in a timestamped folder under the output directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFilePath)
		if err != nil {
			return err
		}
		if voiceOverride != "" {
			cfg.VoiceID = voiceOverride
			utils.LogInfo("Using voice from CLI: %s", voiceOverride)
		}
		if cfg.VoiceID == "" {
			return fmt.Errorf("a voice id is required (set voiceId in the config or pass --voice)")
		}

		scenes, err := loadScenes(cfg.MaxHeaderLength)
		if err != nil {
			return err
		}
		utils.LogInfo("Parsed %d scene(s)", len(scenes))

		tts, err := elevenlabs.NewClient(cfg.ModelID, cfg.SampleRate, cfg.SynthTimeoutMS)
		if err != nil {
			return err
		}

		var llm chatgpt.ChatGPTServicer
		if cfg.UseLLMSegmentation || cfg.UseSpliceReview {
			service, err := chatgpt.NewChatGPTService()
			if err != nil {
				return fmt.Errorf("language model features are enabled but unavailable: %w", err)
			}
			llm = service
		}

		orch, err := longform.New(cfg, tts, llm)
		if err != nil {
			return err
		}

		outputDir := filepath.Join(outputBasePath,
			fmt.Sprintf("narration-%s", time.Now().Format("20060102-150405")))
		if err := utils.ValidateOutputPath(outputDir); err != nil {
			return err
		}

		result, err := orch.Run(context.Background(), scenes, outputDir)
		if err != nil {
			return fmt.Errorf("narration failed: %w", err)
		}

		utils.LogInfo("Manifest written to %s", filepath.Join(result.OutputDir, "manifest.yaml"))
		return nil
	},
}

// loadScenes reads narration from whichever input flag was given. Exactly
// one of --script and --scenes must be set.
func loadScenes(maxHeaderLen int) ([]script.Scene, error) {
	if (scriptFilePath == "") == (scenesFilePath == "") {
		return nil, fmt.Errorf("exactly one of --script and --scenes is required")
	}

	if scenesFilePath != "" {
		path, err := utils.ExpandHomeDir(scenesFilePath)
		if err != nil {
			return nil, err
		}
		if err := utils.ValidateInputFile(path); err != nil {
			return nil, err
		}
		return script.LoadScenesYAML(path)
	}

	path, err := utils.ExpandHomeDir(scriptFilePath)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateInputFile(path); err != nil {
		return nil, err
	}
	text, err := utils.ReadTextFile(path)
	if err != nil {
		return nil, err
	}
	return script.SplitScenes(text, maxHeaderLen)
}

func init() {
	runCmd.Flags().StringVarP(&scriptFilePath, "script", "s", "", "Path to a narration script text file")
	runCmd.Flags().StringVar(&scenesFilePath, "scenes", "", "Path to a structured scenes YAML file")
	runCmd.Flags().StringVarP(&configFilePath, "config", "c", "", "Path to a job configuration YAML file")
	runCmd.Flags().StringVarP(&outputBasePath, "output", "o", "output", "Base output directory")
	runCmd.Flags().StringVar(&voiceOverride, "voice", "", "Voice id (overrides the one in the config file)")
	rootCmd.AddCommand(runCmd)
}
