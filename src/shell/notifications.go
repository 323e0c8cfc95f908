package shell

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/username/directreg/src/models"
	"github.com/username/directreg/src/services"
)

// Toasts queues transient notifications per session. A toast is shown by
// the next page render that drains it, or disappears when its TTL runs out.
type Toasts struct {
	store   *cache.Cache
	seq     atomic.Uint64
	drainMu sync.Mutex
}

// NewToasts returns a queue whose entries expire after ttl.
func NewToasts(ttl time.Duration) *Toasts {
	return &Toasts{store: cache.New(ttl, ttl)}
}

func toastPrefix(session string) string {
	return "toast:" + session + ":"
}

// Add queues a toast for session.
func (t *Toasts) Add(session string, kind models.NotificationKind, message string) models.Notification {
	n := models.Notification{
		ID:        uuid.NewString(),
		Kind:      kind,
		Message:   message,
		CreatedAt: time.Now(),
	}
	key := fmt.Sprintf("%s%020d", toastPrefix(session), t.seq.Add(1))
	t.store.SetDefault(key, n)
	return n
}

// Drain removes and returns the unexpired toasts of session, oldest first.
func (t *Toasts) Drain(session string) []models.Notification {
	t.drainMu.Lock()
	defer t.drainMu.Unlock()

	prefix := toastPrefix(session)
	var keys []string
	items := t.store.Items()
	for k := range items {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := make([]models.Notification, 0, len(keys))
	for _, k := range keys {
		t.store.Delete(k)
		if n, ok := items[k].Object.(models.Notification); ok {
			out = append(out, n)
		}
	}
	return out
}

// Notifier binds the queue to one session.
func (t *Toasts) Notifier(session string) services.Notifier {
	return &sessionNotifier{toasts: t, session: session}
}

type sessionNotifier struct {
	toasts  *Toasts
	session string
}

func (n *sessionNotifier) Notify(kind models.NotificationKind, message string) {
	n.toasts.Add(n.session, kind, message)
}
