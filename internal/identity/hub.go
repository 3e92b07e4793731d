package identity

import (
	"context"
	"sync"
)

type hub struct {
	mu        sync.Mutex
	observers map[string]map[chan *Account]struct{}
}

func newHub() *hub {
	return &hub{observers: make(map[string]map[chan *Account]struct{})}
}

func (h *hub) observe(ctx context.Context, accountID string) <-chan *Account {
	ch := make(chan *Account, 1)

	h.mu.Lock()
	set, ok := h.observers[accountID]
	if !ok {
		set = make(map[chan *Account]struct{})
		h.observers[accountID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.observers[accountID], ch)
		if len(h.observers[accountID]) == 0 {
			delete(h.observers, accountID)
		}
		close(ch)
	}()
	return ch
}

// publish keeps only the newest state per observer.
func (h *hub) publish(accountID string, acct *Account) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.observers[accountID] {
		select {
		case <-ch:
		default:
		}
		ch <- acct
	}
}
