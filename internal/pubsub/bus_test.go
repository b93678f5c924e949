package pubsub

import "testing"

func TestBus_PublishOrder(t *testing.T) {
	var b Bus[int]
	var got []string
	b.Subscribe(func(v int) { got = append(got, "a") })
	b.Subscribe(func(v int) { got = append(got, "b") })

	b.Publish(1)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("got %v, want [a b]", got)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	var b Bus[string]
	calls := 0
	unsub := b.Subscribe(func(string) { calls++ })

	b.Publish("x")
	unsub()
	unsub()
	b.Publish("y")

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if b.Len() != 0 {
		t.Errorf("Len = %d, want 0", b.Len())
	}
}

func TestBus_UnsubscribeDuringPublish(t *testing.T) {
	var b Bus[int]
	var unsub func()
	first, second := 0, 0
	unsub = b.Subscribe(func(int) {
		first++
		unsub()
	})
	b.Subscribe(func(int) { second++ })

	b.Publish(1)
	b.Publish(2)

	if first != 1 {
		t.Errorf("first = %d, want 1", first)
	}
	if second != 2 {
		t.Errorf("second = %d, want 2", second)
	}
}

func TestBus_Reset(t *testing.T) {
	var b Bus[int]
	b.Subscribe(func(int) { t.Error("handler called after Reset") })
	b.Reset()
	b.Publish(1)
}
