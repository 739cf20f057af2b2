package styletransfer

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/krishkalaria12/art-curator/vision"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const ModelExt = ".onnx"

var ErrStyleNotFound = errors.New("style model not found")

// Loader opens the network stored at path.
type Loader func(path string) (vision.Model, error)

type entry struct {
	stylizer *vision.Stylizer
	refs     int
	evicted  bool
}

// Registry lazily loads one transform network per style and keeps it for
// later requests. Concurrent first requests for a style share one load.
type Registry struct {
	dir  string
	size int
	load Loader

	group singleflight.Group

	mu    sync.Mutex
	cache map[string]*entry
}

func NewRegistry(dir string, size int, load Loader) *Registry {
	return &Registry{
		dir:   dir,
		size:  size,
		load:  load,
		cache: make(map[string]*entry),
	}
}

func (r *Registry) path(name string) string {
	return filepath.Join(r.dir, name+ModelExt)
}

// Transfer applies the named style to img.
func (r *Registry) Transfer(name string, img image.Image) (*image.RGBA, error) {
	e, err := r.acquire(name)
	if err != nil {
		return nil, err
	}
	defer r.release(e)
	return e.stylizer.Apply(img)
}

func (r *Registry) acquire(name string) (*entry, error) {
	if !ValidName(name) {
		return nil, fmt.Errorf("%w: %s", ErrStyleNotFound, name)
	}
	// Cache and singleflight keys outlive the caller's buffer.
	name = strings.Clone(name)

	for {
		r.mu.Lock()
		if e, ok := r.cache[name]; ok {
			e.refs++
			r.mu.Unlock()
			return e, nil
		}
		r.mu.Unlock()

		_, err, _ := r.group.Do(name, func() (any, error) {
			return nil, r.loadEntry(name)
		})
		if err != nil {
			return nil, err
		}
		// Loop: the entry may have been evicted between the load and now.
	}
}

func (r *Registry) loadEntry(name string) error {
	r.mu.Lock()
	_, ok := r.cache[name]
	r.mu.Unlock()
	if ok {
		return nil
	}

	model, err := r.load(r.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrStyleNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("load style %s: %w", name, err)
	}

	r.mu.Lock()
	r.cache[name] = &entry{stylizer: vision.NewStylizer(model, r.size)}
	r.mu.Unlock()
	log.Info().Str("style", name).Msg("Loaded style model")
	return nil
}

func (r *Registry) release(e *entry) {
	r.mu.Lock()
	e.refs--
	closeNow := e.evicted && e.refs == 0
	r.mu.Unlock()
	if closeNow {
		r.closeEntry(e)
	}
}

// Evict drops the cached network of name. It is closed once no request is
// using it; the next request loads it again from disk.
func (r *Registry) Evict(name string) {
	r.mu.Lock()
	e, ok := r.cache[name]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.cache, name)
	e.evicted = true
	closeNow := e.refs == 0
	r.mu.Unlock()

	log.Info().Str("style", name).Msg("Evicted style model")
	if closeNow {
		r.closeEntry(e)
	}
}

// Loaded lists the styles currently held in memory.
func (r *Registry) Loaded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.cache))
	for name := range r.cache {
		names = append(names, name)
	}
	return names
}

func (r *Registry) Close() error {
	r.mu.Lock()
	entries := r.cache
	r.cache = make(map[string]*entry)
	r.mu.Unlock()

	var errs []error
	for _, e := range entries {
		if err := e.stylizer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) closeEntry(e *entry) {
	if err := e.stylizer.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close style model")
	}
}
