package agent

import (
	"sync"
	"time"
)

const defaultWatchInterval = time.Second

// NavigationWatcher polls the page URL and fires onChange when it moves,
// covering SPA navigations that replace the document state without a full
// load. The host environment additionally reports history-API transitions
// through NotifyNavigation, so polling is the safety net, not the only path.
type NavigationWatcher struct {
	currentURL func() string
	onChange   func(from, to string)
	interval   time.Duration

	mu      sync.Mutex
	lastURL string
	stopCh  chan struct{}
	started bool
	wg      sync.WaitGroup
}

func NewNavigationWatcher(currentURL func() string, onChange func(from, to string)) *NavigationWatcher {
	return &NavigationWatcher{
		currentURL: currentURL,
		onChange:   onChange,
		interval:   defaultWatchInterval,
	}
}

// SetInterval overrides the polling interval. Only effective before Start.
func (w *NavigationWatcher) SetInterval(d time.Duration) {
	if d > 0 {
		w.interval = d
	}
}

// Start begins polling. Calling Start twice is a no-op.
func (w *NavigationWatcher) Start() {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.stopCh = make(chan struct{})
	w.lastURL = w.currentURL()
	w.mu.Unlock()

	w.wg.Add(1)
	go w.loop()
}

// Stop halts polling and waits for the loop to exit.
func (w *NavigationWatcher) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	w.started = false
	close(w.stopCh)
	w.mu.Unlock()
	w.wg.Wait()
}

// NotifyNavigation reports a history-API transition directly, bypassing the
// next poll tick.
func (w *NavigationWatcher) NotifyNavigation(to string) {
	w.check(to)
}

func (w *NavigationWatcher) loop() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.check(w.currentURL())
		case <-w.stopCh:
			return
		}
	}
}

func (w *NavigationWatcher) check(current string) {
	w.mu.Lock()
	previous := w.lastURL
	if current == previous {
		w.mu.Unlock()
		return
	}
	w.lastURL = current
	w.mu.Unlock()

	if w.onChange != nil {
		w.onChange(previous, current)
	}
}
