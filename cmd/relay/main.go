// Command relay runs the content-pipeline batch jobs: collect news links,
// generate drafts from queued pages, fan out finished drafts, publish queued
// drafts, plus a read-only dashboard over the run log.
//
// Every job subcommand takes zero arguments. Exit code 0 means the run
// completed, even with per-item failures; a non-zero exit marks a fatal
// setup or connectivity error.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/paperchase/relay/internal/artifact"
	"github.com/paperchase/relay/internal/compose"
	"github.com/paperchase/relay/internal/config"
	"github.com/paperchase/relay/internal/core"
	"github.com/paperchase/relay/internal/core/report"
	"github.com/paperchase/relay/internal/driver"
	"github.com/paperchase/relay/internal/feed"
	"github.com/paperchase/relay/internal/fetch"
	"github.com/paperchase/relay/internal/jobs"
	"github.com/paperchase/relay/internal/llm"
	"github.com/paperchase/relay/internal/logging"
	"github.com/paperchase/relay/internal/scrape"
	"github.com/paperchase/relay/internal/server"
	"github.com/paperchase/relay/internal/wordpress"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app carries the assembled configuration and logger into the subcommands.
type app struct {
	cfgPath string
	cfg     *config.Config
	log     *zap.SugaredLogger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:               "relay",
		Short:             "status-driven content pipeline",
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "config file (default $CONFIG_PATH or config/config.toml)")

	root.AddCommand(
		a.collectCmd(),
		a.generateCmd(),
		a.promoteCmd(),
		a.publishCmd(),
		a.serveCmd(),
	)
	return root
}

// setup loads .env best-effort, then the config file, then builds the one
// logger every component receives. Failures here are the fatal setup
// errors that earn a non-zero exit.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	_ = godotenv.Load()

	path := a.cfgPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "config/config.toml"
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = log
	return nil
}

func (a *app) reporter() *report.Reporter {
	return report.New(a.log, a.cfg.Pipeline.RunLog)
}

// run executes one assembled pipeline and maps its result onto the exit
// contract: only fatal run-level errors propagate.
func (a *app) run(cmd *cobra.Command, pipe *core.Pipeline) error {
	defer a.log.Sync()
	_, err := pipe.Run(cmd.Context())
	return err
}

func (a *app) collectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collect",
		Short: "collect news links into the inbox database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := driver.NewNotionStore(a.cfg.Notion)
			if err != nil {
				return err
			}
			client := fetch.NewClient(a.cfg.Timeout())
			collector, err := feed.NewCollector(a.cfg.Collect, client, a.log.Named("feed"))
			if err != nil {
				return err
			}
			return a.run(cmd, jobs.NewCollect(store, collector, a.reporter(), a.log))
		},
	}
}

func (a *app) generateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "draft blog posts and scripts from queued pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := driver.NewNotionStore(a.cfg.Notion)
			if err != nil {
				return err
			}
			llmClient, err := llm.NewClient(cmd.Context(), a.cfg.LLM)
			if err != nil {
				return err
			}
			client := fetch.NewClient(a.cfg.Timeout())
			composer := compose.NewComposer(llmClient, a.cfg.Prompts, a.cfg.LLM.Timeout())
			writer := artifact.NewWriter(a.cfg.Artifacts.BlogDir, a.cfg.Artifacts.ScriptDir)
			pipe := jobs.NewGenerate(store, scrape.New(client), client, composer, writer, a.reporter(), a.log)
			return a.run(cmd, pipe)
		},
	}
}

func (a *app) promoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "promote",
		Short: "queue finished drafts for publishing and voicing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := driver.NewNotionStore(a.cfg.Notion)
			if err != nil {
				return err
			}
			return a.run(cmd, jobs.NewPromote(store, a.reporter(), a.log))
		},
	}
}

func (a *app) publishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "publish",
		Short: "upload queued drafts to WordPress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := driver.NewNotionStore(a.cfg.Notion)
			if err != nil {
				return err
			}
			wp, err := wordpress.New(a.cfg.WordPress, a.log.Named("wordpress"))
			if err != nil {
				return err
			}
			return a.run(cmd, jobs.NewPublish(store, wp, a.reporter(), a.log))
		},
	}
}

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "serve the run-log dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer a.log.Sync()
			return server.New(a.cfg.Server, a.cfg.Pipeline.RunLog, a.log).Run()
		},
	}
}
