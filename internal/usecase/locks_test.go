package usecase

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestChatLocks_SerializesSameChat(t *testing.T) {
	locks := newChatLocks()
	unlock := locks.lock(1)

	acquired := make(chan struct{})
	go func() {
		release := locks.lock(1)
		close(acquired)
		release()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first is held")
	case <-time.After(20 * time.Millisecond):
	}
	unlock()
	<-acquired
}

func TestChatLocks_IndependentChats(t *testing.T) {
	locks := newChatLocks()
	unlock := locks.lock(1)
	defer unlock()

	done := make(chan struct{})
	go func() {
		locks.lock(2)()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock for another chat blocked")
	}
}

func TestChatLocks_DropsIdleEntries(t *testing.T) {
	locks := newChatLocks()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			locks.lock(id % 5)()
		}(int64(i))
	}
	wg.Wait()
	require.Zero(t, locks.tracked())
}
