package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/marcelocantos/capexec/internal/config"
	"github.com/marcelocantos/capexec/internal/discover"
	"github.com/marcelocantos/capexec/internal/engine"
	"github.com/marcelocantos/capexec/internal/fsexec"
	"github.com/marcelocantos/capexec/internal/journal"
	"github.com/marcelocantos/capexec/internal/source/fswalk"
)

var runFlags struct {
	mode       string
	dryRun     bool
	onError    string
	configPath string
	searchDirs []string
	baseDir    string
	noJournal  bool
}

var runCmd = &cobra.Command{
	Use:   "run [dir...]",
	Short: "Discover capturable executables under the given directories and run them",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			args = []string{"."}
		}
		return runCapexecs(cmd, args, false)
	},
}

func init() {
	runCmd.Flags().StringVar(&runFlags.mode, "mode", "", "run mode: build, watch or dry-run")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "shorthand for --mode dry-run")
	runCmd.Flags().StringVar(&runFlags.onError, "on-error", "", "error policy: abort or skip")
	runCmd.Flags().StringVar(&runFlags.configPath, "config", "", "config file path")
	runCmd.Flags().StringArrayVar(&runFlags.searchDirs, "search-dir", nil, "extra stage search directory (repeatable)")
	runCmd.Flags().StringVar(&runFlags.baseDir, "base-dir", "", "base directory for multi-output fan-out")
	runCmd.Flags().BoolVar(&runFlags.noJournal, "no-journal", false, "skip writing the run journal")
}

// stderrLogger adapts the command's error stream to engine.Logger.
type stderrLogger struct{ cmd *cobra.Command }

func (l stderrLogger) Infof(format string, args ...any) {
	fmt.Fprintf(l.cmd.ErrOrStderr(), "capexec: "+format+"\n", args...)
}

func (l stderrLogger) Errorf(format string, args ...any) {
	fmt.Fprintf(l.cmd.ErrOrStderr(), "capexec: error: "+format+"\n", args...)
}

func loadConfig() (*config.Config, error) {
	if runFlags.configPath != "" {
		return config.LoadFrom(runFlags.configPath)
	}
	return config.Load()
}

func runCapexecs(cmd *cobra.Command, roots []string, prepareOnly bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	modeStr := cfg.Mode
	if runFlags.mode != "" {
		modeStr = runFlags.mode
	}
	if runFlags.dryRun {
		modeStr = string(engine.ModeDryRun)
	}
	mode, ok := engine.ParseMode(modeStr)
	if !ok {
		return fmt.Errorf("unknown mode %q", modeStr)
	}

	policyStr := cfg.OnError
	if runFlags.onError != "" {
		policyStr = runFlags.onError
	}
	policy, ok := engine.ParseErrorPolicy(policyStr)
	if !ok {
		return fmt.Errorf("unknown error policy %q", policyStr)
	}

	adapter := &fsexec.Adapter{
		SearchDirs: append(append([]string{}, cfg.SearchDirs...), runFlags.searchDirs...),
		Launchers:  mergeLaunchers(cfg.Launchers),
		BaseDir:    runFlags.baseDir,
	}
	if len(cfg.Env) > 0 {
		adapter.ProjectEnv = func(plan *engine.Plan) map[string]string {
			overlay := fsexec.DefaultProjectEnv(plan)
			for k, v := range cfg.Env {
				overlay[k] = v
			}
			return overlay
		}
	}

	logger := stderrLogger{cmd: cmd}
	stream := discover.Walk(cmd.Context(), &fswalk.Adapter{}, roots, discover.Options{
		SelectName: discover.BaseName,
		OnInvalidSpec: func(spec, reason string) {
			logger.Errorf("invalid root %s: %s", spec, reason)
		},
	})
	defer stream.Close()

	var jw *journal.Writer
	if !runFlags.noJournal && !prepareOnly {
		jw, err = journal.NewWriter(cfg.Journal.Path)
		if err != nil {
			// A broken journal should not block the run.
			logger.Errorf("journal: %v", err)
			jw = nil
		}
	}
	runID := uuid.NewString()

	events := engine.Run(cmd.Context(), stream, engine.Options{
		Adapter:   adapter,
		Mode:      mode,
		NoExecute: prepareOnly,
		OnError:   policy,
		Logger:    logger,
		OnFail: func(d discover.Discovery, elapsed time.Duration, err error) {
			recordFailure(jw, runID, d, mode, elapsed, err)
		},
	})
	for events.Next() {
		ev := events.Event()
		switch ev.Phase {
		case engine.PhasePrepared:
			printPrepared(cmd, ev.Plan)
		case engine.PhaseExecuted:
			printExecuted(cmd, ev)
			record(jw, runID, ev, mode)
		}
	}
	return events.Err()
}

func mergeLaunchers(extra map[string][]string) map[string][]string {
	if len(extra) == 0 {
		return nil
	}
	merged := fsexec.DefaultLaunchers()
	for ext, argv := range extra {
		merged[ext] = argv
	}
	return merged
}

func printPrepared(cmd *cobra.Command, plan *engine.Plan) {
	d := plan.Source
	var b strings.Builder
	fmt.Fprintf(&b, "%s", d.Key)
	if len(d.Parsed.PreStages) > 0 {
		fmt.Fprintf(&b, "  pre=%s", strings.Join(d.Parsed.PreStages, ","))
	}
	if len(d.Parsed.PostStages) > 0 {
		fmt.Fprintf(&b, "  post=%s", strings.Join(d.Parsed.PostStages, ","))
	}
	if d.Parsed.IsMulti {
		b.WriteString("  multi")
	}
	fmt.Fprintln(cmd.OutOrStdout(), b.String())
}

func printExecuted(cmd *cobra.Command, ev engine.Event) {
	if res, ok := ev.Result.(*fsexec.Result); ok {
		for _, target := range res.Targets {
			fmt.Fprintf(cmd.OutOrStdout(), "  wrote %s\n", target)
		}
		if res.Dropped > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "  dropped %d record(s)\n", res.Dropped)
		}
	}
}

func record(jw *journal.Writer, runID string, ev engine.Event, mode engine.Mode) {
	if jw == nil || ev.Plan == nil {
		return
	}
	entry := journal.Entry{
		Run:      runID,
		Key:      ev.Plan.Source.Key,
		Name:     ev.Plan.Source.Name,
		Mode:     string(mode),
		Phase:    string(ev.Phase),
		Duration: float64(ev.Elapsed.Microseconds()) / 1000,
	}
	if res, ok := ev.Result.(*fsexec.Result); ok {
		entry.Targets = res.Targets
		entry.Dropped = res.Dropped
	}
	if err := jw.Append(entry); err != nil {
		fmt.Fprintf(os.Stderr, "capexec: journal: %v\n", err)
	}
}

func recordFailure(jw *journal.Writer, runID string, d discover.Discovery, mode engine.Mode, elapsed time.Duration, failure error) {
	if jw == nil {
		return
	}
	entry := journal.Entry{
		Run:      runID,
		Key:      d.Key,
		Name:     d.Name,
		Mode:     string(mode),
		Phase:    journal.PhaseFailed,
		Error:    failure.Error(),
		Duration: float64(elapsed.Microseconds()) / 1000,
	}
	if err := jw.Append(entry); err != nil {
		fmt.Fprintf(os.Stderr, "capexec: journal: %v\n", err)
	}
}
