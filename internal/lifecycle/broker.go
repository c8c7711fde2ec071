package lifecycle

import "sync"

// subscriberBufferSize is the channel buffer for each log subscriber.
// Lines are dropped if a subscriber falls this far behind.
const subscriberBufferSize = 64

// Broker fans out accepted worker log lines to live subscribers.
// It is safe for concurrent use.
//
// Only lines accepted by this process are published. With several processes
// behind one store a subscriber sees a subset; the stored log is the full
// record.
type Broker struct {
	mu     sync.Mutex
	topics map[string]*logTopic
}

type logTopic struct {
	subs   map[int]chan string
	nextID int
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{
		topics: make(map[string]*logTopic),
	}
}

// Subscribe returns a channel that receives log lines for repo and an
// unsubscribe function. The channel is closed when the worker fails or its
// record is removed.
func (b *Broker) Subscribe(repo string) (<-chan string, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[repo]
	if !ok {
		t = &logTopic{subs: make(map[int]chan string)}
		b.topics[repo] = t
	}

	ch := make(chan string, subscriberBufferSize)
	id := t.nextID
	t.nextID++
	t.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := t.subs[id]; !ok {
			return
		}
		delete(t.subs, id)
		if len(t.subs) == 0 && b.topics[repo] == t {
			delete(b.topics, repo)
		}
	}
}

// Publish sends a log line to all subscribers of repo.
// Lines are dropped for subscribers whose buffers are full.
func (b *Broker) Publish(repo, line string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[repo]
	if !ok {
		return
	}

	for _, ch := range t.subs {
		select {
		case ch <- line:
		default:
			// Never block a callback on a slow reader.
		}
	}
}

// Close ends every subscription for repo. Later subscribers start a new topic.
func (b *Broker) Close(repo string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[repo]
	if !ok {
		return
	}
	for id, ch := range t.subs {
		close(ch)
		delete(t.subs, id)
	}
	delete(b.topics, repo)
}

// CloseAll ends every subscription on every topic.
func (b *Broker) CloseAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for repo, t := range b.topics {
		for id, ch := range t.subs {
			close(ch)
			delete(t.subs, id)
		}
		delete(b.topics, repo)
	}
}
