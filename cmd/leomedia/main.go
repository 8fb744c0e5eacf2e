// Command leomedia drives Leonardo generative-media jobs from the terminal:
// template-based image generation, upscale/unzoom/motion jobs, artifact
// download, and account maintenance.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"leomedia/internal/config"
	"leomedia/internal/leonardo"
	"leomedia/internal/logging"
	"leomedia/internal/template"
)

// rootCmd is the main Cobra command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "leomedia",
	Short: "Leonardo generative-media jobs from the command line",
	Long: `leomedia submits generation, upscale, unzoom, and motion jobs to the
Leonardo API, waits for them to finish, and prints (or downloads) the
resulting artifacts.

Generation parameters come from a named template in the template registry
(templates.json by default), overridden by command-line flags.

Examples:
  leomedia generate "a lighthouse at dusk" --template portrait
  leomedia generate "a lighthouse at dusk" --model aa77f04e-3eec-4034-9c07-d0f619684628 --save-dir ./out
  leomedia upscale 7f2c0a31-…            # upscale one generated image
  leomedia motion 7f2c0a31-… --strength 5
  leomedia purge --yes                   # delete every generation on the account`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Init()
		var err error
		cfg, err = config.Load()
		return err
	},
}

// cfg is resolved once in the root PersistentPreRunE.
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error: "+errorLine(err))
		os.Exit(1)
	}
}

// newClient constructs the API client from the loaded configuration.
func newClient() (*leonardo.Client, error) {
	client, err := leonardo.NewClient(cfg.APIKey, leonardo.WithBaseURL(cfg.BaseURL))
	if leonardo.IsKind(err, leonardo.KindAuth) {
		return nil, fmt.Errorf("no API key configured: set LEONARDO_API_KEY (or add it to .env)")
	}
	return client, err
}

// loadRegistry loads the template registry per the configured strictness.
func loadRegistry() (*template.Registry, error) {
	return template.Load(cfg.TemplateFile, cfg.StrictTemplates)
}

// errorLine maps any failure to the single human-readable line the CLI
// prints. Core errors are phrased by kind so auth trouble, timeouts, and
// failed jobs stay distinguishable.
func errorLine(err error) string {
	var ce *leonardo.Error
	if !errors.As(err, &ce) {
		return err.Error()
	}

	switch ce.Kind {
	case leonardo.KindAuth:
		return "authentication failed: " + ce.Message
	case leonardo.KindValidation:
		return "invalid request: " + ce.Message
	case leonardo.KindNotFound:
		return ce.Message
	case leonardo.KindSubmission:
		return "submission failed: " + ce.Message
	case leonardo.KindJobFailed:
		return "the service reported the job as failed (" + ce.JobID + ")"
	case leonardo.KindTimeout:
		return ce.Message
	case leonardo.KindShape:
		return "unexpected response from the service: " + ce.Message
	default:
		return ce.Error()
	}
}
