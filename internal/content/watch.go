package content

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// debounce is how long a script must stay untouched before it is read;
// editors commonly write a file in several steps.
const debounce = 100 * time.Millisecond

// ScriptChange is an ability script rewritten on disk.
type ScriptChange struct {
	// Name is the file name relative to the abilities directory.
	Name string
	Body string
}

// Watcher reports ability script changes under a module directory. It only
// reads files; applying a change is up to the goroutine that owns the Module.
type Watcher struct {
	watcher *fsnotify.Watcher
	logger  *zap.Logger
	Changes chan ScriptChange
	Errors  chan error
	closeCh chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewWatcher starts watching the abilities directory of the module at dir.
//
// Precondition: logger must be non-nil.
// Postcondition: the caller must call Close.
func NewWatcher(dir string, logger *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	abilities := filepath.Join(dir, AbilitiesDir)
	if err := fw.Add(abilities); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watching %q: %w", abilities, err)
	}
	w := &Watcher{
		watcher: fw,
		logger:  logger,
		Changes: make(chan ScriptChange, 16),
		Errors:  make(chan error, 1),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Close stops the watcher and closes Changes and Errors.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
		<-w.done
	})
	return err
}

func (w *Watcher) run() {
	defer close(w.done)
	defer close(w.Changes)
	defer close(w.Errors)
	pending := make(map[string]bool)
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || !isScriptFile(event.Name) {
				continue
			}
			pending[event.Name] = true
			timer.Reset(debounce)
		case <-timer.C:
			for _, path := range slices.Sorted(maps.Keys(pending)) {
				delete(pending, path)
				body, err := os.ReadFile(path)
				if err != nil {
					w.logger.Warn("reading changed script", zap.String("path", path), zap.Error(err))
					continue
				}
				select {
				case w.Changes <- ScriptChange{Name: filepath.Base(path), Body: string(body)}:
				case <-w.closeCh:
					return
				}
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.Errors <- err:
			default:
				w.logger.Warn("script watcher error", zap.Error(err))
			}
		case <-w.closeCh:
			return
		}
	}
}

func isScriptFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".lua")
}

// ReloadScript installs c on every ability that uses the script and returns
// their ids. A script no ability uses is ignored.
func (m *Module) ReloadScript(c ScriptChange) []string {
	ids := m.Abilities.UsingScript(c.Name)
	for _, id := range ids {
		// UsingScript only returns active abilities, so SetScript cannot fail.
		_ = m.Abilities.SetScript(id, c.Body)
	}
	return ids
}
