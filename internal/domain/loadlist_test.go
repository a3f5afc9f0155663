package domain

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadList_PushIsIdempotent(t *testing.T) {
	l := NewLoadList()
	for _, n := range []string{"a", "b", "a", "c", "b"} {
		l.Push(n)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, l.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
	if l.Push("a") {
		t.Error("Push of existing name reported insertion")
	}
}

func TestLoadList_PopDrainsTailFirst(t *testing.T) {
	l := NewLoadList()
	l.Push("a")
	l.Push("b")
	l.Push("c")

	var got []string
	for {
		n, ok := l.Pop()
		if !ok {
			break
		}
		got = append(got, n)
	}
	if diff := cmp.Diff([]string{"c", "b", "a"}, got); diff != "" {
		t.Errorf("drain order mismatch (-want +got):\n%s", diff)
	}
	if l.Contains("a") {
		t.Error("drained list still contains a")
	}
}

func TestLoadList_ConcurrentPush(t *testing.T) {
	l := NewLoadList()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Push("shared")
		}()
	}
	wg.Wait()
	if l.Len() != 1 {
		t.Errorf("Len() = %d, want 1", l.Len())
	}
}
