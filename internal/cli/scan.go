package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mvp-joe/classpath-scanner/internal/classpath"
	"github.com/mvp-joe/classpath-scanner/internal/storage"
	"github.com/mvp-joe/classpath-scanner/internal/watcher"
	"github.com/spf13/cobra"
)

const archiveIndexCapacity = 1024

var (
	classpathFlag []string
	catalogFlag   string
	quietFlag     bool
	watchFlag     bool
	maxDepthFlag  int
)

var scanCmd = &cobra.Command{
	Use:   "scan [prefix...]",
	Short: "Scan the classpath for class files",
	Long: `Scan resolves each prefix into classpath elements and reports every
class file found in them.

A prefix that names an existing directory, archive or file is scanned
directly. Each prefix is also looked up in every --classpath root: a
directory root contributes root/prefix, an archive root contributes itself
when one of its entries starts with the prefix. Inside archives only
entries starting with a prefix are reported; directories are reported in
full.

Without --catalog every class location is printed, one per line. With
--catalog the scan is recorded and a summary is printed.

Examples:
  # List every class below build/classes
  cpscan scan build/classes

  # Find com/acme classes in a set of jars
  cpscan scan --classpath lib/app.jar,lib/deps.jar com/acme/

  # Record scans into a catalog and rescan on every change
  cpscan scan --catalog .cpscan/catalog.db --watch build/classes
`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringSliceVar(&classpathFlag, "classpath", nil, "Classpath roots searched for each prefix (added to scan.classpath)")
	scanCmd.Flags().StringVar(&catalogFlag, "catalog", "", "SQLite catalog to record the scan into (overrides catalog.path)")
	scanCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "Disable progress and summary output")
	scanCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Rescan whenever the classpath changes")
	scanCmd.Flags().IntVar(&maxDepthFlag, "max-depth", 0, "Maximum archive nesting depth, 0 for unlimited (overrides scan.max_nesting_depth)")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	prefixes := args
	if len(prefixes) == 0 {
		prefixes = cfg.Scan.Prefixes
	}
	if len(prefixes) == 0 {
		return fmt.Errorf("no prefixes given: pass them as arguments or set scan.prefixes")
	}

	maxDepth := cfg.Scan.MaxNestingDepth
	if cmd.Flags().Changed("max-depth") {
		if maxDepthFlag < 0 {
			return fmt.Errorf("--max-depth cannot be negative, got %d", maxDepthFlag)
		}
		maxDepth = maxDepthFlag
	}

	catalogPath := cfg.Catalog.Path
	if catalogFlag != "" {
		catalogPath = catalogFlag
	}

	// Rescans in watch mode reuse archive listings of unchanged roots.
	index, err := classpath.NewArchiveIndex(archiveIndexCapacity)
	if err != nil {
		return err
	}
	defer index.Close()

	run := &scanRun{
		prefixes: prefixes,
		resolver: &classpath.FSResolver{
			Roots:  append(append([]string(nil), cfg.Scan.Classpath...), classpathFlag...),
			Select: index.Select,
		},
		maxDepth:  maxDepth,
		keepScans: cfg.Catalog.KeepScans,
		quiet:     quietFlag,
		logger:    newLogger(cmd.ErrOrStderr()),
		out:       cmd.OutOrStdout(),
		errOut:    cmd.ErrOrStderr(),
	}

	if catalogPath != "" {
		db, err := storage.Open(catalogPath)
		if err != nil {
			return err
		}
		defer db.Close()
		run.db = db
	}

	if _, err := run.once(); err != nil {
		return err
	}
	if !watchFlag {
		return nil
	}

	return run.watch(ctx, watcher.Options{
		Patterns: cfg.Watch.Patterns,
		Debounce: time.Duration(cfg.Watch.DebounceMs) * time.Millisecond,
		Logger:   run.logger,
	})
}

// scanRun holds everything needed to repeat a scan.
type scanRun struct {
	prefixes  []string
	resolver  classpath.Resolver
	maxDepth  int
	db        *sql.DB // nil disables recording
	keepScans int
	quiet     bool
	logger    *log.Logger
	out       io.Writer
	errOut    io.Writer
}

// scanResult summarizes one completed scan.
type scanResult struct {
	ScanID      string // empty without a catalog
	Elements    int
	Artifacts   int
	Diagnostics []classpath.Diagnostic
	Duration    time.Duration
}

// once runs a complete scan cycle, ending in Finish.
func (r *scanRun) once() (*scanResult, error) {
	progress := NewCLIProgressReporter(r.quiet, r.errOut)
	scanner := classpath.New(
		classpath.WithResolver(r.resolver),
		classpath.WithLogger(r.logger),
		classpath.WithMaxNestingDepth(r.maxDepth),
		classpath.WithProgress(progress),
	)

	var (
		consumer classpath.Consumer
		recorder *storage.Recorder
	)
	if r.db != nil {
		recorder = storage.NewRecorder(r.db, r.prefixes)
		consumer = recorder
	} else {
		consumer = &locationPrinter{out: r.out}
	}

	err := scanner.Scan(r.prefixes, consumer)
	progress.Done()
	if err != nil {
		return nil, err
	}

	result := &scanResult{
		Elements:    progress.Elements(),
		Artifacts:   progress.Artifacts(),
		Diagnostics: scanner.Diagnostics(),
		Duration:    progress.Elapsed(),
	}

	if recorder != nil {
		result.ScanID = recorder.ScanID()
		if r.keepScans > 0 {
			pruned, err := storage.NewArtifactWriter(r.db).PruneScans(r.keepScans)
			if err != nil {
				return nil, err
			}
			if pruned > 0 {
				r.logger.Debug("Pruned old scans", "count", pruned)
			}
		}
	}

	r.report(result)
	return result, nil
}

func (r *scanRun) report(result *scanResult) {
	if r.quiet {
		return
	}
	// The class list goes to out; keep the summary off it.
	w := r.errOut
	if result.ScanID != "" {
		w = r.out
	}
	fmt.Fprintf(w, "✓ Scan complete: %s classes from %s elements in %.1fs\n",
		formatNumber(result.Artifacts), formatNumber(result.Elements), result.Duration.Seconds())
	if result.ScanID != "" {
		fmt.Fprintf(w, "  Scan ID: %s\n", result.ScanID)
	}
	if n := len(result.Diagnostics); n > 0 {
		fmt.Fprintf(w, "  Skipped: %s unreadable entries (run with --verbose for details)\n", formatNumber(n))
	}
}

// watch rescans every time a resolved element changes, until ctx is done.
func (r *scanRun) watch(ctx context.Context, opts watcher.Options) error {
	elements, err := r.resolver.ResolveUnique(r.prefixes)
	if err != nil {
		return fmt.Errorf("failed to resolve classpath: %w", err)
	}
	if len(elements) == 0 {
		return fmt.Errorf("nothing to watch: no classpath element exists for %v", r.prefixes)
	}
	roots := make([]string, 0, len(elements))
	for _, e := range elements {
		roots = append(roots, e.Path)
	}

	fw, err := watcher.NewFileWatcher(roots, opts)
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer fw.Stop()

	// A full rescan sees every change, so one pending batch is enough.
	changes := make(chan []string, 1)
	if err := fw.Start(ctx, func(paths []string) {
		select {
		case changes <- paths:
		default:
		}
	}); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	r.logger.Info("Watching classpath", "elements", len(roots))

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Watch mode stopped")
			return nil
		case paths := <-changes:
			r.logger.Info("Classpath changed, rescanning", "changes", len(paths))
			fw.Pause()
			if _, err := r.once(); err != nil {
				r.logger.Error("Rescan failed", "error", err)
			}
			fw.Resume()
		}
	}
}

// locationPrinter lists each artifact location, one per line.
type locationPrinter struct {
	out io.Writer
}

func (p *locationPrinter) Process(a classpath.Artifact) error {
	_, err := fmt.Fprintln(p.out, a.Location())
	return err
}

func (p *locationPrinter) Finish() error { return nil }
