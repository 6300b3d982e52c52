// Command corpus-collect runs a single collection session from the command
// line and writes vectors.json.
package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/use-agent/corpus/app"
	"github.com/use-agent/corpus/collector"
	"github.com/use-agent/corpus/config"
	"github.com/use-agent/corpus/models"
	"github.com/use-agent/corpus/sink"
	"github.com/use-agent/corpus/webhook"
)

var (
	traineeID    string
	pagesFile    string
	baseURL      string
	waitMs       int
	retryOnError bool
	timeoutMs    int
	outputDir    string
)

var rootCmd = &cobra.Command{
	Use:   "corpus-collect",
	Short: "Collect a feature-vector corpus from a list of pages",
	Long: `corpus-collect loads each listed page in a headless browser, asks the
feature-extraction service to vectorize it, and writes the vectors of all
pages to vectors.json for model training.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runCollect,
}

func init() {
	rootCmd.Flags().StringVar(&traineeID, "trainee", "", "trainee (ruleset) id (required)")
	rootCmd.Flags().StringVar(&pagesFile, "pages", "", "file with one page per line, - for stdin (required)")
	rootCmd.Flags().StringVar(&baseURL, "base-url", "", "prefix added to every page line")
	rootCmd.Flags().IntVar(&waitMs, "wait", 0, "settle delay before each vectorization attempt, in ms")
	rootCmd.Flags().BoolVar(&retryOnError, "retry", false, "retry failed vectorization up to 10 times")
	rootCmd.Flags().IntVar(&timeoutMs, "timeout", 0, "page load timeout in ms (default: effectively none)")
	rootCmd.Flags().StringVar(&outputDir, "out", "", "output directory (default: CORPUS_OUTPUT_DIR)")
	_ = rootCmd.MarkFlagRequired("trainee")
	_ = rootCmd.MarkFlagRequired("pages")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCollect(cmd *cobra.Command, _ []string) error {
	_ = godotenv.Load()

	cfg := config.Load()
	app.InitLogger(cfg.Log)

	lines, err := readPages(pagesFile)
	if err != nil {
		return err
	}
	req := models.RunRequest{
		TraineeID:    traineeID,
		BaseURL:      baseURL,
		Pages:        lines,
		WaitMs:       waitMs,
		RetryOnError: retryOnError,
		TimeoutMs:    timeoutMs,
	}
	runCfg := req.Resolve()
	if err := runCfg.Validate(); err != nil {
		return err
	}

	dir := cfg.Collector.OutputDir
	if outputDir != "" {
		dir = outputDir
	}

	a, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("initialise collector: %w", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var status collector.StatusChannel = collector.LogChannel{RunID: "cli"}
	out := sink.Multi{sink.FileSink{Dir: dir}}
	if cfg.Webhook.URL != "" {
		ch := webhook.Channel{URL: cfg.Webhook.URL, Secret: cfg.Webhook.Secret, RunID: "cli"}
		status = collector.MultiChannel{status, ch}
		out = append(out, ch)
	}

	ctrl, drive := a.NewSession(status, out)
	report, err := collector.Collect(ctx, ctrl, drive, runCfg)
	if report != nil {
		slog.Info("collection finished",
			"state", ctrl.State(),
			"vectors", len(report.Pages),
			"pages", len(runCfg.Pages),
		)
	}
	// An abort surfaces here as INTEGRITY_ERROR; the partial report is
	// already written.
	return err
}

// readPages returns the contents of path, or stdin for "-".
func readPages(path string) (string, error) {
	f := os.Stdin
	if path != "-" {
		var err error
		f, err = os.Open(path)
		if err != nil {
			return "", fmt.Errorf("open pages file: %w", err)
		}
		defer f.Close()
	}

	var b strings.Builder
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		b.WriteString(sc.Text())
		b.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("read pages: %w", err)
	}
	return b.String(), nil
}
