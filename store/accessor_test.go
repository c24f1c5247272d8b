package store

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDoReturnsFnError(t *testing.T) {
	a := New()
	sentinel := errors.New("boom")
	err := a.Do(func() error { return sentinel })
	require.ErrorIs(t, err, sentinel)
}

func TestDoSerializesConcurrentCallers(t *testing.T) {
	a := New()
	var active int
	var maxActive int
	var mu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = a.Do(func() error {
				mu.Lock()
				active++
				if active > maxActive {
					maxActive = active
				}
				mu.Unlock()

				mu.Lock()
				active--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	require.Equal(t, 1, maxActive)
}
