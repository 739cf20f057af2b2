package styletransfer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watcher evicts cached style models whose file changes on disk.
type Watcher struct {
	dir     string
	onStale func(name string)
	watcher *fsnotify.Watcher
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	mu      sync.Mutex
	running bool
}

func NewWatcher(dir string, onStale func(name string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		dir:     dir,
		onStale: onStale,
		watcher: fsw,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}, nil
}

// Start watches the model directory. A missing directory is logged and
// not watched.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if _, err := os.Stat(w.dir); err != nil {
		log.Warn().Err(err).Str("path", w.dir).Msg("Style model directory not watched")
	} else if err := w.watcher.Add(w.dir); err != nil {
		return err
	}

	go w.loop()
	return nil
}

func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return w.watcher.Close()
	}
	w.running = false
	w.cancel()
	err := w.watcher.Close()
	<-w.done
	return err
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			name, ok := styleName(event.Name)
			if !ok {
				continue
			}
			log.Debug().Str("style", name).Str("op", event.Op.String()).Msg("Style model changed on disk")
			w.onStale(name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("Style model watcher error")
		}
	}
}

func styleName(path string) (string, bool) {
	base := filepath.Base(path)
	name, ok := strings.CutSuffix(base, ModelExt)
	if !ok || !ValidName(name) {
		return "", false
	}
	return name, true
}
