package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// uploadFile sends one CSV to the backend and prints the import summary.
func uploadFile(ctx context.Context, a *app, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	resp, err := a.coord.Upload(ctx, filepath.Base(path), f)
	if err != nil {
		return err
	}
	fmt.Println(resp.Message)
	for _, rowErr := range resp.Errors {
		fmt.Fprintf(os.Stderr, "  row %d: %s\n", rowErr.Row, rowErr.Error)
	}
	return nil
}

// watchAndUpload watches a directory and uploads every CSV file that lands
// in it, until the context is cancelled. Writers get a short grace period to
// finish before the file is read.
func watchAndUpload(ctx context.Context, a *app, dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	a.logger.Info("Watching for CSV uploads", zap.String("dir", dir))

	seen := make(map[string]time.Time)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".csv") {
				continue
			}
			// Writes arrive in bursts; upload each file at most once per
			// couple of seconds.
			if last, ok := seen[event.Name]; ok && time.Since(last) < 2*time.Second {
				continue
			}
			seen[event.Name] = time.Now()

			time.Sleep(200 * time.Millisecond)
			if err := uploadFile(ctx, a, event.Name); err != nil {
				a.logger.Warn("Upload failed",
					zap.String("file", event.Name),
					zap.Error(err),
				)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn("Watcher error", zap.Error(err))
		}
	}
}
