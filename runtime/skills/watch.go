package skills

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher debounces filesystem change notifications for a skills
// directory and invokes onChange once per settled burst of edits, so a
// long-running host process can reload its skill-scoped hooks without a
// restart.
type Watcher struct {
	watcher  *fsnotify.Watcher
	done     chan struct{}
	wg       sync.WaitGroup
	debounce time.Duration
}

// DefaultDebounce matches the teacher pack's own skill-watcher debounce.
const DefaultDebounce = 250 * time.Millisecond

// Watch begins watching dir (non-recursively: skill files live flat
// under it) and calls onChange, from its own goroutine, at most once per
// debounce window after the last observed change. Returns the Watcher so
// the caller can Close it on shutdown. A dir that does not exist yet is
// not watched: Watch returns an error in that case, since there is
// nothing to add a filesystem watch on.
func Watch(dir string, onChange func()) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, err
	}

	w := &Watcher{watcher: fw, done: make(chan struct{}), debounce: DefaultDebounce}
	w.wg.Add(1)
	go w.loop(onChange)
	return w, nil
}

func (w *Watcher) loop(onChange func()) {
	defer w.wg.Done()
	var mu sync.Mutex
	var timer *time.Timer
	schedule := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(w.debounce, onChange)
	}

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				schedule()
			}
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// Close stops the watch loop and releases the underlying inotify handle.
func (w *Watcher) Close() error {
	close(w.done)
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}
