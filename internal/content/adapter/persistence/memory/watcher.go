package memory

import (
	"sync"

	"sitecontent/internal/content/domain/model"
)

// watcher delivers queued changes to one subscriber on its own goroutine so
// callbacks run one at a time and in order.
type watcher struct {
	onChange func(model.DocumentChange)
	onError  func(error)

	mu      sync.Mutex
	queue   []model.DocumentChange
	err     error
	signal  chan struct{}
	done    chan struct{}
	stopped bool
	once    sync.Once
}

func newWatcher(onChange func(model.DocumentChange), onError func(error)) *watcher {
	return &watcher{
		onChange: onChange,
		onError:  onError,
		signal:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

func (w *watcher) push(change model.DocumentChange) {
	w.mu.Lock()
	if w.stopped || w.err != nil {
		w.mu.Unlock()
		return
	}
	w.queue = append(w.queue, change)
	w.mu.Unlock()
	w.wake()
}

func (w *watcher) fail(err error) {
	w.mu.Lock()
	if w.stopped || w.err != nil {
		w.mu.Unlock()
		return
	}
	w.err = err
	w.mu.Unlock()
	w.wake()
}

func (w *watcher) wake() {
	select {
	case w.signal <- struct{}{}:
	default:
	}
}

func (w *watcher) stop() {
	w.once.Do(func() {
		w.mu.Lock()
		w.stopped = true
		w.queue = nil
		w.mu.Unlock()
		close(w.done)
	})
}

func (w *watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case <-w.signal:
		}
		for {
			w.mu.Lock()
			if w.stopped {
				w.mu.Unlock()
				return
			}
			if len(w.queue) == 0 {
				err := w.err
				w.mu.Unlock()
				if err != nil {
					if w.onError != nil {
						w.onError(err)
					}
					w.stop()
					return
				}
				break
			}
			next := w.queue[0]
			w.queue = w.queue[1:]
			w.mu.Unlock()
			if w.onChange != nil {
				w.onChange(next)
			}
		}
	}
}
