package observable_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront/pkg/observable"
)

func TestValue_GetSet(t *testing.T) {
	t.Parallel()

	v := observable.New(1)
	require.Equal(t, 1, v.Get())

	v.Set(2)
	require.Equal(t, 2, v.Get())
}

func TestValue_Subscribe(t *testing.T) {
	t.Parallel()

	t.Run("notifies in subscription order", func(t *testing.T) {
		t.Parallel()

		v := observable.New("")
		var got []string
		v.Subscribe(func(s string) { got = append(got, "a:"+s) }, false)
		v.Subscribe(func(s string) { got = append(got, "b:"+s) }, false)

		v.Set("x")
		require.Equal(t, []string{"a:x", "b:x"}, got)
	})

	t.Run("replay delivers current value", func(t *testing.T) {
		t.Parallel()

		v := observable.New(7)
		var got []int
		v.Subscribe(func(n int) { got = append(got, n) }, true)
		v.Set(8)

		require.Equal(t, []int{7, 8}, got)
	})

	t.Run("unsubscribe stops delivery and is idempotent", func(t *testing.T) {
		t.Parallel()

		v := observable.New(0)
		var calls int
		unsub := v.Subscribe(func(int) { calls++ }, false)
		other := 0
		v.Subscribe(func(int) { other++ }, false)

		v.Set(1)
		unsub()
		unsub()
		v.Set(2)

		require.Equal(t, 1, calls)
		require.Equal(t, 2, other)
	})

	t.Run("subscriber may read the cell", func(t *testing.T) {
		t.Parallel()

		v := observable.New(0)
		var seen int
		v.Subscribe(func(int) { seen = v.Get() }, false)

		v.Set(5)
		require.Equal(t, 5, seen)
	})
}

func TestValue_PublishSerializes(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		state int
	)
	v := observable.New(0)

	var last int
	v.Subscribe(func(n int) { last = n }, false)

	var wg sync.WaitGroup
	for range 100 {
		wg.Go(func() {
			mu.Lock()
			state++
			mu.Unlock()

			v.Publish(func() int {
				mu.Lock()
				defer mu.Unlock()
				return state
			})
		})
	}
	wg.Wait()

	require.Equal(t, 100, last, "final notification must carry the latest state")
	require.Equal(t, 100, v.Get())
}
