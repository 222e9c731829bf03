package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/mgerety/teamwerk/internal/config"
	"github.com/mgerety/teamwerk/internal/logging"
	"github.com/mgerety/teamwerk/internal/support"
)

const watchDebounce = 300 * time.Millisecond

func newWatchCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-lint and re-report on file changes",
		Long:  "watch monitors the workspace and, after changes settle, re-runs the lint\nscan and, when a results file is present, recompiles the HTML report.",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace, err := os.Getwd()
			if err != nil {
				return err
			}
			return runWatch(workspace, dir, nil, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory to watch and lint (default: the whole workspace)")
	return cmd
}

// runWatch blocks until stop is closed (nil means run forever). Events
// under the machine-output directory are ignored so the watcher does not
// retrigger on its own writes.
func runWatch(workspace, dir string, stop <-chan struct{}, out io.Writer) error {
	log := logging.New(debugFlag)
	defer log.Sync()

	root := workspace
	if dir != "" {
		root = dir
		if !filepath.IsAbs(root) {
			root = filepath.Join(workspace, root)
		}
		if info, err := os.Stat(root); err != nil || !info.IsDir() {
			return fmt.Errorf("directory not found: %s", dir)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch init failed: %w", err)
	}
	defer watcher.Close()
	if err := addWatchRecursive(watcher, root); err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}

	cfg := config.Load(workspace)
	trigger := func() {
		if _, err := runLint(workspace, lintOptions{dir: dir}, out); err != nil {
			log.Warnw("lint pass failed", "error", err)
		}
		if _, err := resolveResults(workspace, "", cfg.Report.ResultsCandidates); err == nil {
			if err := runReport(workspace, reportOptions{}, out); err != nil {
				log.Warnw("report pass failed", "error", err)
			}
		}
		_ = support.AppendAudit(workspace, support.AuditEntry{Mode: "watch"})
	}

	var timer *time.Timer
	for {
		select {
		case <-stop:
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev := <-watcher.Events:
			if strings.Contains(ev.Name, string(filepath.Separator)+config.OutputDirName+string(filepath.Separator)) {
				continue
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = addWatchRecursive(watcher, ev.Name)
				}
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, trigger)
		case err := <-watcher.Errors:
			log.Warnw("watch error", "error", err)
		}
	}
}

func addWatchRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if strings.Contains(path, string(filepath.Separator)+config.OutputDirName) {
				return filepath.SkipDir
			}
			return w.Add(path)
		}
		return nil
	})
}
