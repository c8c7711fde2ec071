package lifecycle

import "testing"

func drain(ch <-chan string) []string {
	var got []string
	for l := range ch {
		got = append(got, l)
	}
	return got
}

func TestBrokerSingleSubscriber(t *testing.T) {
	b := NewBroker()
	ch, unsub := b.Subscribe("w1")
	defer unsub()

	lines := []string{"line 1", "line 2", "line 3"}
	for _, l := range lines {
		b.Publish("w1", l)
	}
	b.Close("w1")

	got := drain(ch)
	if len(got) != len(lines) {
		t.Fatalf("got %d lines, want %d", len(got), len(lines))
	}
	for i, l := range got {
		if l != lines[i] {
			t.Errorf("line[%d] = %q, want %q", i, l, lines[i])
		}
	}
}

func TestBrokerMultipleSubscribers(t *testing.T) {
	b := NewBroker()
	ch1, unsub1 := b.Subscribe("w1")
	defer unsub1()
	ch2, unsub2 := b.Subscribe("w1")
	defer unsub2()

	b.Publish("w1", "hello")
	b.Close("w1")

	if got := drain(ch1); len(got) != 1 || got[0] != "hello" {
		t.Errorf("subscriber 1 got %v, want [hello]", got)
	}
	if got := drain(ch2); len(got) != 1 || got[0] != "hello" {
		t.Errorf("subscriber 2 got %v, want [hello]", got)
	}
}

func TestBrokerTopicIsolation(t *testing.T) {
	b := NewBroker()
	ch1, unsub1 := b.Subscribe("w1")
	defer unsub1()
	ch2, unsub2 := b.Subscribe("w2")
	defer unsub2()

	b.Publish("w1", "for w1")
	b.Publish("w2", "for w2")
	b.CloseAll()

	if got := drain(ch1); len(got) != 1 || got[0] != "for w1" {
		t.Errorf("w1 got %v", got)
	}
	if got := drain(ch2); len(got) != 1 || got[0] != "for w2" {
		t.Errorf("w2 got %v", got)
	}
}

func TestBrokerPublishWithoutSubscribers(t *testing.T) {
	b := NewBroker()
	b.Publish("nobody", "dropped")
	b.Close("nobody")
}

func TestBrokerSlowSubscriberDrops(t *testing.T) {
	b := NewBroker()
	ch, unsub := b.Subscribe("w1")
	defer unsub()

	for i := 0; i < subscriberBufferSize+10; i++ {
		b.Publish("w1", "line")
	}
	b.Close("w1")

	if got := drain(ch); len(got) != subscriberBufferSize {
		t.Errorf("got %d lines, want %d", len(got), subscriberBufferSize)
	}
}

func TestBrokerUnsubscribeAfterClose(t *testing.T) {
	b := NewBroker()
	_, unsub := b.Subscribe("w1")
	b.Close("w1")
	unsub()
}

func TestBrokerSubscribeAfterClose(t *testing.T) {
	b := NewBroker()
	_, unsub1 := b.Subscribe("w1")
	defer unsub1()
	b.Close("w1")

	ch, unsub2 := b.Subscribe("w1")
	defer unsub2()
	b.Publish("w1", "restarted")

	select {
	case l := <-ch:
		if l != "restarted" {
			t.Errorf("got %q, want %q", l, "restarted")
		}
	default:
		t.Error("new subscriber did not receive line")
	}
}
