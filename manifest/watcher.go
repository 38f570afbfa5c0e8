package manifest

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/wippyai/reflect-runtime/errors"
	"github.com/wippyai/reflect-runtime/module"
	"github.com/wippyai/reflect-runtime/runtime"
)

// Watcher keeps a module in sync with its manifest file. On every change
// the loaded module is unloaded first, so its registry entries expire, and
// the file is parsed and loaded again. A manifest that fails to load leaves
// the module unloaded until the next successful change.
type Watcher struct {
	rt       *runtime.Runtime
	logger   *zap.Logger
	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	done     chan struct{}
	path     string
	loaded   string
	onReload []func(*module.Module, error)
	mu       sync.Mutex
	stopOnce sync.Once
}

// NewWatcher creates a watcher for the manifest at path. Nothing is loaded
// until Reload or Start is called.
func NewWatcher(rt *runtime.Runtime, path string) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidInput, err, "absolute path")
	}
	return &Watcher{
		rt:     rt,
		logger: rt.Logger().Named("manifest"),
		path:   abs,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}, nil
}

// OnReload registers a callback run after every reload attempt.
func (w *Watcher) OnReload(fn func(*module.Module, error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReload = append(w.onReload, fn)
}

// Module returns the name of the currently loaded module, or "".
func (w *Watcher) Module() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.loaded
}

// Reload unloads the current module and loads the manifest again.
func (w *Watcher) Reload(ctx context.Context) (*module.Module, error) {
	w.mu.Lock()
	if w.loaded != "" {
		if err := Unload(w.rt, w.loaded); err != nil && !errors.IsKind(err, errors.KindNotFound) {
			w.logger.Warn("unload before reload failed", zap.String("module", w.loaded), zap.Error(err))
		}
		w.loaded = ""
	}

	mod, err := LoadFile(ctx, w.rt, w.path)
	if err == nil {
		w.loaded = mod.Name()
	}
	callbacks := append([]func(*module.Module, error){}, w.onReload...)
	w.mu.Unlock()

	if err != nil {
		w.logger.Error("manifest reload failed, module stays unloaded", zap.String("path", w.path), zap.Error(err))
	} else {
		w.logger.Info("manifest reloaded", zap.String("path", w.path), zap.String("module", mod.Name()))
	}
	for _, fn := range callbacks {
		fn(mod, err)
	}
	return mod, err
}

// Start loads the manifest and watches its directory for changes.
// Watching the directory survives editors that save by rename.
func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(errors.PhaseLoad, errors.KindUnsupported, err, "create watcher")
	}
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		_ = watcher.Close()
		return errors.Wrap(errors.PhaseLoad, errors.KindNotFound, err, "watch directory")
	}
	w.watcher = watcher

	if _, err := w.Reload(ctx); err != nil {
		w.logger.Warn("initial manifest load failed", zap.Error(err))
	}

	go w.watchLoop(ctx)
	w.logger.Info("watching manifest for changes", zap.String("path", w.path))
	return nil
}

// Stop stops watching. The loaded module stays loaded.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		if w.watcher != nil {
			_ = w.watcher.Close()
			<-w.done
		}
	})
}

func (w *Watcher) watchLoop(ctx context.Context) {
	defer close(w.done)
	filename := filepath.Base(w.path)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.logger.Debug("manifest changed",
					zap.String("event", event.Op.String()),
					zap.String("file", event.Name))
				_, _ = w.Reload(ctx)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("file watcher error", zap.Error(err))

		case <-w.stopCh:
			return

		case <-ctx.Done():
			return
		}
	}
}
