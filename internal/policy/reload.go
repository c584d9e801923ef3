package policy

import (
	"context"
	"fmt"
	"milterpolicy/internal/ports"
	"milterpolicy/internal/pub"
	"milterpolicy/internal/types"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

const DefaultDebounce = 500 * time.Millisecond

// Reloader rebuilds the policy when its file changes. A failed reload keeps
// the previous policy active.
type Reloader struct {
	Holder    *Holder
	Path      string
	Publisher ports.Publisher
	TopicArn  string
	Debounce  time.Duration
	Logger    *log.Logger

	mu sync.Mutex
}

func NewReloader(h *Holder, path string, publisher ports.Publisher, arn string) *Reloader {
	return &Reloader{
		Holder:    h,
		Path:      path,
		Publisher: publisher,
		TopicArn:  arn,
		Debounce:  DefaultDebounce,
		Logger:    log.StandardLogger(),
	}
}

// Reload loads the file once and swaps it in on success. Every outcome is
// published as a types.ReloadEvent.
func (r *Reloader) Reload(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reload(ctx)
}

// reloadActive is the debounced path of Run. It does nothing once ctx is
// cancelled, so no policy is swapped in after shutdown began.
func (r *Reloader) reloadActive(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	_ = r.reload(ctx)
}

func (r *Reloader) reload(ctx context.Context) error {
	fields := log.Fields{"file": r.Path}
	p, err := Load(r.Path, r.Logger.WithFields(fields))
	if err != nil {
		r.Logger.WithFields(fields).WithError(err).Error("policy reload failed, keeping previous policy")
		r.publish(ctx, types.ReloadEvent{
			Status: types.ReloadStatusFailed,
			File:   r.Path,
			At:     time.Now().Unix(),
			Error:  err.Error(),
		})
		return err
	}
	r.Holder.Set(p)
	r.Logger.WithFields(fields).WithField("endpoints", p.Pools.Len()).Info("policy reloaded")
	r.Announce(ctx, types.ReloadStatusReloaded, p)
	return nil
}

// Announce publishes a successful load of p with its encoded snapshot.
func (r *Reloader) Announce(ctx context.Context, status string, p *Policy) {
	ev := types.ReloadEvent{Status: status, File: r.Path, At: time.Now().Unix()}
	if snap, err := EncodeSnapshot(p.Snapshot()); err != nil {
		r.Logger.WithError(err).Warn("cannot encode policy snapshot")
	} else {
		ev.Snapshot = snap
	}
	r.publish(ctx, ev)
}

func (r *Reloader) publish(ctx context.Context, ev types.ReloadEvent) {
	if err := pub.PublishEvent(ctx, r.Publisher, r.TopicArn, ev); err != nil {
		r.Logger.WithError(err).WithField("status", ev.Status).Warn("cannot publish reload event")
	}
}

// Run watches the directory holding Path and reloads after writes settle.
// It blocks until ctx is cancelled and any reload in progress has finished.
func (r *Reloader) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(r.Path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %q: %w", target, err)
	}

	var (
		debounce *time.Timer
		pending  sync.WaitGroup
	)
	stopPending := func() {
		if debounce != nil && debounce.Stop() {
			pending.Done()
		}
	}
	defer pending.Wait()
	defer stopPending()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				stopPending()
				pending.Add(1)
				debounce = time.AfterFunc(r.Debounce, func() {
					defer pending.Done()
					r.reloadActive(ctx)
				})
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.Logger.WithError(err).Warn("file watcher error")
		}
	}
}
