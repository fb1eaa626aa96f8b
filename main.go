package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/threadreel/threadreel/internal/background"
	"github.com/threadreel/threadreel/internal/config"
	"github.com/threadreel/threadreel/internal/render"
	"github.com/threadreel/threadreel/pkg/videorenderer"
)

var (
	contentID       string
	subreddit       string
	title           string
	replyCount      int
	includeBody     bool
	backgroundName  string
	backgroundStart float64
	configPath      string
	tempRoot        string
	verbose         bool
	noProgress      bool
)

var rootCmd = &cobra.Command{
	Use:   "threadreel",
	Short: "Render narrated thread content into vertical video",
	Long: `threadreel schedules narrated thread segments onto a timeline,
composes their screenshots over a gameplay background, and drives
ffmpeg to produce a vertical short.`,
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render one thread's prepared artifacts into video",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		opts := videorenderer.Options{
			ContentID:       contentID,
			Subreddit:       subreddit,
			Title:           title,
			ReplyCount:      replyCount,
			IncludeBody:     includeBody,
			BackgroundName:  backgroundName,
			BackgroundStart: backgroundStart,
			TempRoot:        tempRoot,
			Config:          cfg,
			Verbose:         verbose,
		}
		if !noProgress {
			opts.Observer = func(job string) (func(render.Progress), func()) {
				return render.NewBarObserver(job)
			}
		}

		summary, err := videorenderer.Render(ctx, opts)
		if summary != nil {
			for _, variant := range summary.Variants {
				if variant.Err != nil {
					fmt.Fprintf(os.Stderr, "%s failed: %v\n", variant.Name, variant.Err)
					continue
				}
				fmt.Printf("%s: %s (%.1fs, %d bytes)\n",
					variant.Name, variant.Result.OutputPath,
					variant.Result.Duration, variant.Result.ByteSize)
			}
			if summary.BackgroundCredit != "" {
				fmt.Printf("Background video by %s\n", summary.BackgroundCredit)
			}
		}
		return err
	},
}

var backgroundsCmd = &cobra.Command{
	Use:   "backgrounds",
	Short: "List the builtin background videos",
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range background.Names() {
			spec, err := background.Lookup(name)
			if err != nil {
				continue
			}
			fmt.Printf("%-16s by %s\n", spec.Name, spec.Credit)
		}
	},
}

func init() {
	renderCmd.Flags().StringVar(&contentID, "id", "", "Content id of the prepared artifacts (required)")
	renderCmd.Flags().StringVar(&subreddit, "subreddit", "", "Subreddit name used for the results directory (required)")
	renderCmd.Flags().StringVarP(&title, "title", "t", "", "Thread title used for the output filename (required)")
	renderCmd.Flags().IntVarP(&replyCount, "comments", "c", 0, "Number of reply segments produced upstream")
	renderCmd.Flags().BoolVar(&includeBody, "include-body", false, "Schedule the post body segment after the title")
	renderCmd.Flags().StringVarP(&backgroundName, "background", "b", "minecraft", "Builtin background name (see 'backgrounds')")
	renderCmd.Flags().Float64Var(&backgroundStart, "background-start", 0, "Pin the background window start for reproducible renders")
	renderCmd.Flags().StringVar(&configPath, "config", "config.toml", "Path to the TOML configuration file")
	renderCmd.Flags().StringVar(&tempRoot, "temp-root", "", "Override the temporary artifact root (default assets/temp)")
	renderCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	renderCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the terminal progress bar")

	_ = renderCmd.MarkFlagRequired("id")
	_ = renderCmd.MarkFlagRequired("subreddit")
	_ = renderCmd.MarkFlagRequired("title")

	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(backgroundsCmd)
}

func main() {
	log.SetFlags(0)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
