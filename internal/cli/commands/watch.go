package commands

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leapstack-labs/leapmetrics/internal/cli/config"
	"github.com/leapstack-labs/leapmetrics/internal/cli/output"
	"github.com/leapstack-labs/leapmetrics/internal/loader"
	"github.com/leapstack-labs/leapmetrics/internal/registry"
	"github.com/leapstack-labs/leapmetrics/pkg/compiler"
	"github.com/leapstack-labs/leapmetrics/pkg/core"
	"github.com/leapstack-labs/leapmetrics/pkg/dialect"
	"github.com/spf13/cobra"
)

// debounceDelay coalesces bursts of file events into one reload.
const debounceDelay = 100 * time.Millisecond

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [field...]",
		Short: "Recompile fields when view files change",
		Long: `Watch the views directory and reload the project whenever a view file
changes. The given fields are recompiled after each reload and printed when
their SQL changes. A reload that fails keeps the previous project.`,
		Example: `  # Watch a measure while editing its view
  leapmetrics watch orders.total_revenue`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args)
		},
	}
}

func runWatch(cmd *cobra.Command, fields []string) error {
	cc, err := NewCommandContextWithoutProject(cmd)
	if err != nil {
		return err
	}
	w := NewWatcher(cc.Cfg, cc.Dialect, cc.Renderer, cc.Logger, fields)
	if err := w.Reload(); err != nil {
		return err
	}
	return w.Run(cmd.Context())
}

// Watcher keeps a project snapshot in sync with the views directory.
type Watcher struct {
	cfg      *config.Config
	dialect  *dialect.Dialect
	renderer *output.Renderer
	logger   *slog.Logger
	fields   []string

	snapshot *registry.Snapshot
	last     map[string]string
}

// NewWatcher creates a watcher that recompiles fields after each reload.
func NewWatcher(cfg *config.Config, d *dialect.Dialect, r *output.Renderer, logger *slog.Logger, fields []string) *Watcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Watcher{
		cfg:      cfg,
		dialect:  d,
		renderer: r,
		logger:   logger,
		fields:   fields,
		snapshot: registry.NewSnapshot(nil),
		last:     make(map[string]string),
	}
}

// Project returns the current project, or nil before the first successful reload.
func (w *Watcher) Project() *registry.Project {
	return w.snapshot.Load()
}

// Reload loads the views directory and, on success, swaps it into the
// snapshot and recompiles the watched fields. The first reload's error is
// returned; later failures are reported and the previous project is kept.
func (w *Watcher) Reload() error {
	project, err := LoadProject(w.cfg, w.logger)
	if err != nil {
		if w.snapshot.Load() == nil {
			return err
		}
		w.logger.Warn("reload failed", "error", err)
		w.renderer.Error(fmt.Sprintf("reload failed, keeping previous views: %v", err))
		return nil
	}
	w.snapshot.Store(project)
	w.logger.Info("views reloaded", "views", project.Count())
	w.recompile(project)
	return nil
}

func (w *Watcher) recompile(project *registry.Project) {
	c := NewCompiler(project, w.cfg, w.logger)
	r := w.renderer
	for _, name := range w.fields {
		sql, err := compileNamed(project, c, w.dialect, name)
		if err != nil {
			sql = "error: " + err.Error()
		}
		if prev, ok := w.last[name]; ok && prev == sql {
			continue
		}
		w.last[name] = sql
		r.Println(r.Muted("-- " + name + " (" + w.dialect.Name + ")"))
		r.Println(sql)
	}
}

func compileNamed(project *registry.Project, c *compiler.Compiler, d *dialect.Dialect, name string) (string, error) {
	sel, err := project.ResolveField(name, "")
	if err != nil {
		return "", err
	}
	return c.Compile(sel, d, core.JoinContext{})
}

// Run watches the views directory until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watchTree(watcher, w.cfg.ViewsDir); err != nil {
		return fmt.Errorf("failed to watch views dir: %w", err)
	}
	w.renderer.Println(w.renderer.Muted("Watching " + w.cfg.ViewsDir + " (Ctrl+C to stop)"))

	var (
		timer    *time.Timer
		debounce <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watchTree(watcher, event.Name)
				}
			}
			if !relevant(event) {
				continue
			}
			w.logger.Debug("change detected", "file", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(debounceDelay)
			} else {
				timer.Reset(debounceDelay)
			}
			debounce = timer.C
		case <-debounce:
			debounce = nil
			if err := w.Reload(); err != nil {
				return err
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

// relevant reports events that can change the loaded views.
func relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return loader.IsViewFile(filepath.Base(event.Name))
}

// watchTree adds dir and its non-hidden subdirectories to watcher.
func watchTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && len(d.Name()) > 0 && d.Name()[0] == '.' {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
