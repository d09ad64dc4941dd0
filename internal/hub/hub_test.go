package hub

import "testing"

func TestBroadcastFiltersByQueue(t *testing.T) {
	h := New()
	a := &Client{ID: "a", Send: make(chan []byte, 1), Subscription: Subscription{QueueID: "q1"}}
	b := &Client{ID: "b", Send: make(chan []byte, 1), Subscription: Subscription{QueueID: "q2"}}
	all := &Client{ID: "all", Send: make(chan []byte, 1)}
	h.Register(a)
	h.Register(b)
	h.Register(all)

	h.Broadcast([]byte("hello"), Subscription{QueueID: "q1"})

	if len(a.Send) != 1 {
		t.Fatalf("expected q1 subscriber to receive message")
	}
	if len(b.Send) != 0 {
		t.Fatalf("expected q2 subscriber to receive nothing")
	}
	if len(all.Send) != 1 {
		t.Fatalf("expected wildcard subscriber to receive message")
	}
}

func TestBroadcastDropsWhenFull(t *testing.T) {
	h := New()
	c := &Client{ID: "c", Send: make(chan []byte, 1)}
	h.Register(c)

	h.Broadcast([]byte("one"), Subscription{QueueID: "q1"})
	h.Broadcast([]byte("two"), Subscription{QueueID: "q1"})

	if len(c.Send) != 1 {
		t.Fatalf("expected full channel to drop the second message")
	}
	if got := string(<-c.Send); got != "one" {
		t.Fatalf("expected first message, got %s", got)
	}
}

func TestUnregisterClosesSend(t *testing.T) {
	h := New()
	c := &Client{ID: "c", Send: make(chan []byte, 1)}
	h.Register(c)
	h.Unregister(c)

	if _, open := <-c.Send; open {
		t.Fatalf("expected send channel closed after unregister")
	}

	h.Broadcast([]byte("late"), Subscription{})
}

func TestParseSubscribe(t *testing.T) {
	msg, ok := ParseSubscribe([]byte(`{"action":"subscribe","queue_id":"q1"}`))
	if !ok || msg.QueueID != "q1" {
		t.Fatalf("expected valid subscribe, got %+v ok=%v", msg, ok)
	}
	if _, ok := ParseSubscribe([]byte(`{"action":"ping"}`)); ok {
		t.Fatalf("expected unknown action rejected")
	}
	if _, ok := ParseSubscribe([]byte(`not json`)); ok {
		t.Fatalf("expected invalid JSON rejected")
	}
}
