package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"leomedia/internal/download"
	"leomedia/internal/leonardo"
)

// Flags shared by the job-submitting commands.
var (
	intervalFlag time.Duration
	timeoutFlag  time.Duration
	noWaitFlag   bool
	saveDirFlag  string
)

// generate flags
var (
	templateFlag       string
	modelFlag          string
	negativePromptFlag string
	numImagesFlag      int
	widthFlag          int
	heightFlag         int
	seedFlag           int
	presetStyleFlag    string
	photoRealFlag      bool
	photoRealVerFlag   string
	alchemyFlag        bool
	guidanceScaleFlag  int
	initImageIDFlag    string
	initStrengthFlag   float64
	publicFlag         bool
)

func init() {
	rootCmd.PersistentFlags().DurationVar(&intervalFlag, "interval", 0, "Poll interval (default from LEOMEDIA_POLL_INTERVAL or 10s)")
	rootCmd.PersistentFlags().DurationVar(&timeoutFlag, "timeout", 0, "Poll timeout (default from LEOMEDIA_POLL_TIMEOUT or 5m)")

	for _, cmd := range []*cobra.Command{generateCmd, upscaleCmd, unzoomCmd, motionCmd} {
		cmd.Flags().BoolVar(&noWaitFlag, "no-wait", false, "Submit the job and print its id without waiting for completion")
		cmd.Flags().StringVar(&saveDirFlag, "save-dir", "", "Download resulting artifacts into this directory")
	}

	generateCmd.Flags().StringVarP(&templateFlag, "template", "t", "", "Template name from the template registry")
	generateCmd.Flags().StringVarP(&modelFlag, "model", "m", "", "Model id to generate with")
	generateCmd.Flags().StringVar(&negativePromptFlag, "negative-prompt", "", "Negative prompt")
	generateCmd.Flags().IntVarP(&numImagesFlag, "num-images", "n", 0, "Number of images to generate")
	generateCmd.Flags().IntVar(&widthFlag, "width", 0, "Image width")
	generateCmd.Flags().IntVar(&heightFlag, "height", 0, "Image height")
	generateCmd.Flags().IntVar(&seedFlag, "seed", 0, "Seed for reproducible generations")
	generateCmd.Flags().StringVar(&presetStyleFlag, "preset-style", "", "Style preset (e.g. DYNAMIC, CINEMATIC)")
	generateCmd.Flags().BoolVar(&photoRealFlag, "photoreal", true, "Enable the photoReal feature")
	generateCmd.Flags().StringVar(&photoRealVerFlag, "photoreal-version", "", `photoReal version ("v1" or "v2")`)
	generateCmd.Flags().BoolVar(&alchemyFlag, "alchemy", true, "Enable Alchemy")
	generateCmd.Flags().IntVar(&guidanceScaleFlag, "guidance-scale", 0, "How strongly the generation should reflect the prompt")
	generateCmd.Flags().StringVar(&initImageIDFlag, "init-image-id", "", "Init image id for image2image")
	generateCmd.Flags().Float64Var(&initStrengthFlag, "init-strength", 0, "Init image strength (0.1-0.9)")
	generateCmd.Flags().BoolVar(&publicFlag, "public", false, "Show the generation in the community feed")

	motionCmd.Flags().IntVar(&motionStrengthFlag, "strength", 0, "Motion strength (1-10)")
	motionCmd.Flags().BoolVar(&motionInitImageFlag, "init-image", false, "The image is an uploaded init image")
	motionCmd.Flags().BoolVar(&motionVariationFlag, "variation", false, "The image is a variation output")
	motionCmd.Flags().BoolVar(&publicFlag, "public", false, "Show the generation in the community feed")

	unzoomCmd.Flags().BoolVar(&unzoomVariationFlag, "variation", false, "The image is a variation output")

	purgeCmd.Flags().BoolVar(&purgeYesFlag, "yes", false, "Skip the confirmation prompt")
	purgeCmd.Flags().IntVar(&purgeBatchFlag, "batch", 50, "Listing page size")

	rootCmd.AddCommand(generateCmd, upscaleCmd, unzoomCmd, motionCmd, imagesCmd,
		modelsCmd, meCmd, improveCmd, templatesCmd, deleteCmd, purgeCmd, uploadCmd)
}

// pollInterval returns the effective poll interval: flag, else config.
func pollInterval() time.Duration {
	if intervalFlag > 0 {
		return intervalFlag
	}
	return cfg.PollInterval
}

// pollTimeout returns the effective poll timeout: flag, else config.
func pollTimeout() time.Duration {
	if timeoutFlag > 0 {
		return timeoutFlag
	}
	return cfg.PollTimeout
}

// finishJob handles a submitted handle per the --no-wait / --save-dir flags:
// fire-and-forget prints the id, otherwise it waits for the terminal result
// and prints or downloads the artifacts.
func finishJob(ctx context.Context, client *leonardo.Client, handle leonardo.JobHandle) error {
	if noWaitFlag {
		fmt.Printf("%s job submitted: %s\n", handle.Kind, handle.ID)
		return nil
	}

	fmt.Printf("Waiting for %s %s to complete...\n", handle.Kind, handle.ID)
	result, err := leonardo.NewPoller(client).Wait(ctx, handle, pollInterval(), pollTimeout())
	if err != nil {
		return err
	}

	printArtifacts(result.Artifacts)
	if saveDirFlag != "" {
		return download.Artifacts(ctx, result.Artifacts, saveDirFlag)
	}
	return nil
}

// printArtifacts writes one line per artifact: id and url.
func printArtifacts(artifacts []leonardo.Artifact) {
	fmt.Printf("%d artifact(s):\n", len(artifacts))
	for _, a := range artifacts {
		fmt.Printf("  %s  %s\n", a.ID, a.URL)
	}
}

// --- generate ---

var generateCmd = &cobra.Command{
	Use:   "generate <prompt>",
	Short: "Generate images from a text prompt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		registry, err := loadRegistry()
		if err != nil {
			return err
		}

		overrides := map[string]any{"prompt": args[0]}
		setIfChanged := func(flag, field string, value any) {
			if cmd.Flags().Changed(flag) {
				overrides[field] = value
			}
		}
		setIfChanged("model", "modelId", modelFlag)
		setIfChanged("negative-prompt", "negative_prompt", negativePromptFlag)
		setIfChanged("num-images", "num_images", numImagesFlag)
		setIfChanged("width", "width", widthFlag)
		setIfChanged("height", "height", heightFlag)
		setIfChanged("seed", "seed", seedFlag)
		setIfChanged("preset-style", "presetStyle", presetStyleFlag)
		setIfChanged("photoreal", "photoReal", photoRealFlag)
		setIfChanged("photoreal-version", "photoRealVersion", photoRealVerFlag)
		setIfChanged("alchemy", "alchemy", alchemyFlag)
		setIfChanged("guidance-scale", "guidance_scale", guidanceScaleFlag)
		setIfChanged("init-image-id", "init_image_id", initImageIDFlag)
		setIfChanged("init-strength", "init_strength", initStrengthFlag)
		setIfChanged("public", "public", publicFlag)

		spec, err := leonardo.NewRequestBuilder(registry).Build(templateFlag, overrides)
		if err != nil {
			return err
		}

		handle, err := client.CreateGeneration(cmd.Context(), spec)
		if err != nil {
			return err
		}
		return finishJob(cmd.Context(), client, handle)
	},
}

// --- upscale / unzoom / motion ---

var upscaleCmd = &cobra.Command{
	Use:   "upscale <image-id>",
	Short: "Upscale a generated image with the Universal Upscaler",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		handle, err := client.CreateUpscale(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return finishJob(cmd.Context(), client, handle)
	},
}

var unzoomVariationFlag bool

var unzoomCmd = &cobra.Command{
	Use:   "unzoom <image-id>",
	Short: "Unzoom (outpaint) a generated image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		handle, err := client.CreateUnzoom(cmd.Context(), args[0], unzoomVariationFlag)
		if err != nil {
			return err
		}
		return finishJob(cmd.Context(), client, handle)
	},
}

var (
	motionStrengthFlag  int
	motionInitImageFlag bool
	motionVariationFlag bool
)

var motionCmd = &cobra.Command{
	Use:   "motion <image-id>",
	Short: "Create a motion (SVD) generation from an image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		opts := leonardo.MotionOptions{
			IsPublic:    publicFlag,
			IsInitImage: motionInitImageFlag,
			IsVariation: motionVariationFlag,
		}
		if cmd.Flags().Changed("strength") {
			opts.MotionStrength = &motionStrengthFlag
		}

		handle, err := client.CreateMotion(cmd.Context(), args[0], opts)
		if err != nil {
			return err
		}
		return finishJob(cmd.Context(), client, handle)
	},
}

// --- lookups ---

var imagesCmd = &cobra.Command{
	Use:   "images <generation-id>",
	Short: "List the images of a completed generation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		artifacts, err := client.GenerationImages(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printArtifacts(artifacts)
		return nil
	},
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the platform's available models",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		models, err := client.GetModels(cmd.Context())
		if err != nil {
			return err
		}
		for _, m := range models {
			fmt.Printf("%s  %s\n", m.ID, m.Name)
			if m.Description != "" {
				fmt.Printf("    %s\n", m.Description)
			}
		}
		return nil
	},
}

var meCmd = &cobra.Command{
	Use:   "me",
	Short: "Show the authenticated user's account info",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		info, err := client.Me(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("User:   %s (%s)\n", info.Username, info.UserID)
		fmt.Printf("Tokens: %d\n", info.SubscriptionTokens)
		return nil
	},
}

var improveCmd = &cobra.Command{
	Use:   "improve <prompt>",
	Short: "Improve a text prompt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		improved, err := client.ImprovePrompt(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(improved)
		return nil
	},
}

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List templates from the template registry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := loadRegistry()
		if err != nil {
			return err
		}
		names := registry.Names()
		if len(names) == 0 {
			fmt.Printf("No templates loaded from %s\n", cfg.TemplateFile)
			return nil
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

// --- maintenance ---

var deleteCmd = &cobra.Command{
	Use:   "delete <generation-id>",
	Short: "Delete a generation and all its images",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		if err := client.DeleteGeneration(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted generation %s\n", args[0])
		return nil
	},
}

var (
	purgeYesFlag   bool
	purgeBatchFlag int
)

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete every generation on the account",
	Long: `purge lists the account's generations page by page and deletes each one.
Deleted images are gone permanently; the command asks for confirmation
unless --yes is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		if !purgeYesFlag && !confirm("Permanently delete ALL generations on this account?") {
			fmt.Println("Aborted.")
			return nil
		}

		info, err := client.Me(cmd.Context())
		if err != nil {
			return err
		}

		deleted := 0
		for {
			page, err := client.ListGenerations(cmd.Context(), info.UserID, 0, purgeBatchFlag)
			if err != nil {
				return err
			}
			if len(page) == 0 {
				break
			}
			for _, gen := range page {
				if err := client.DeleteGeneration(cmd.Context(), gen.ID); err != nil {
					return err
				}
				deleted++
			}
		}

		log.Info().Int("deleted", deleted).Msg("Purge complete")
		fmt.Printf("Deleted %d generation(s)\n", deleted)
		return nil
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a local image for use as an init image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		id, err := client.UploadInitImage(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Init image uploaded: %s\n", id)
		return nil
	},
}

// confirm prompts on stdin for a y/N answer.
func confirm(question string) bool {
	fmt.Printf("%s [y/N]: ", question)
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(input))
	return answer == "y" || answer == "yes"
}
