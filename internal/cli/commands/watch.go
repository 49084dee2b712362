package commands

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leapstack-labs/leaplook/internal/cli/output"
	"github.com/leapstack-labs/leaplook/internal/config"
	"github.com/spf13/cobra"
)

// watchDebounce coalesces bursts of file events into one regeneration.
const watchDebounce = 100 * time.Millisecond

// watchSet is the set of inputs that trigger regeneration.
type watchSet struct {
	files map[string]bool
	// schemaDir holds JSON schema files; any .json change in it counts.
	schemaDir string
}

func newWatchSet(cfg *config.Config, schemaDir string) *watchSet {
	ws := &watchSet{files: make(map[string]bool)}
	for _, f := range []string{cfg.File, cfg.Cookbook, cfg.Lexicon} {
		if f == "" {
			continue
		}
		if abs, err := filepath.Abs(f); err == nil {
			ws.files[abs] = true
		}
	}
	if schemaDir != "" {
		if abs, err := filepath.Abs(schemaDir); err == nil {
			ws.schemaDir = abs
		}
	}
	return ws
}

// dirs returns the directories to register with the watcher. Parents are
// watched instead of files so editors that replace files are still seen.
func (ws *watchSet) dirs() []string {
	seen := make(map[string]bool)
	var dirs []string
	add := func(d string) {
		if !seen[d] {
			seen[d] = true
			dirs = append(dirs, d)
		}
	}
	for f := range ws.files {
		add(filepath.Dir(f))
	}
	if ws.schemaDir != "" {
		add(ws.schemaDir)
	}
	return dirs
}

func (ws *watchSet) match(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	if ws.files[abs] {
		return true
	}
	return ws.schemaDir != "" && filepath.Dir(abs) == ws.schemaDir && strings.EqualFold(filepath.Ext(abs), ".json")
}

// watch reruns the full generation whenever a watched input changes, until
// the command context is canceled. The config is reloaded before each run.
func watch(cmd *cobra.Command, cmdCtx *CommandContext, opts *GenerateOptions, schemaDir string) error {
	ctx := cmd.Context()
	r := cmdCtx.Renderer

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	ws := newWatchSet(cmdCtx.Cfg, schemaDir)
	for _, dir := range ws.dirs() {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		cmdCtx.Logger.Debug("watching", "dir", dir)
	}

	notify := func(msg string) {
		if r.EffectiveMode() != output.ModeJSON {
			r.Muted(msg)
		}
	}
	notify("Watching for changes (Ctrl+C to stop)")
	return debounceEvents(ctx, watcher.Events, watcher.Errors, ws.match, watchDebounce, cmdCtx.Logger, func() {
		cfg, err := config.Load(cmdCtx.Cfg.File, cmd.Flags())
		if err != nil {
			r.Error(err.Error())
			return
		}
		cmdCtx.Cfg = cfg

		notify("Change detected, regenerating")
		if _, _, err := generateOnce(ctx, cmdCtx, opts); err != nil {
			r.Error(err.Error())
		}
	})
}

// debounceEvents calls fn once events matching match have been quiet for
// delay. It returns when ctx is done or the watcher closes its channels.
func debounceEvents(
	ctx context.Context,
	events <-chan fsnotify.Event,
	errs <-chan error,
	match func(string) bool,
	delay time.Duration,
	logger *slog.Logger,
	fn func(),
) error {
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
				continue
			}
			if !match(ev.Name) {
				continue
			}
			logger.Debug("input changed", "path", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(delay)
			} else {
				timer.Reset(delay)
			}
			fire = timer.C
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)
		case <-fire:
			fire = nil
			fn()
		}
	}
}
