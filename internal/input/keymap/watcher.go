package keymap

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/termline/internal/trace"
)

// Watcher reloads a keymap file when it changes on disk and hands the new
// binding table to a callback. Tables that no longer parse or compile are
// reported to the error callback and the previous table stays in effect.
type Watcher struct {
	fw   *fsnotify.Watcher
	path string
	done chan struct{}
}

// Watch starts watching path. onChange receives every successfully parsed
// table; onError (optional) receives parse failures.
func Watch(path string, onChange func([]Binding), onError func(error), tr *trace.Tracer) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating keymap watcher: %w", err)
	}

	// Watch the directory: editors often replace the file via rename,
	// which drops a watch placed on the file itself.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watching keymap dir: %w", err)
	}

	w := &Watcher{fw: fw, path: path, done: make(chan struct{})}

	go func() {
		defer close(w.done)
		for {
			select {
			case ev, ok := <-fw.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(path) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				tr.Event("keymap file changed", "path", path, "op", ev.Op.String())
				bindings, err := LoadFile(path)
				if err == nil {
					// Compile up front so a broken table never
					// reaches the caller.
					_, err = compile(bindings)
				}
				if err != nil {
					if onError != nil {
						onError(err)
					}
					continue
				}
				onChange(bindings)
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				if onError != nil {
					onError(err)
				}
			}
		}
	}()

	return w, nil
}

// Close stops watching and waits for the delivery goroutine to finish.
func (w *Watcher) Close() error {
	err := w.fw.Close()
	<-w.done
	return err
}
