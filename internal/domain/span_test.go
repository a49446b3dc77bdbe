package domain

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProfile(t *testing.T) {
	t.Run("spans from concurrent workers are all kept", func(t *testing.T) {
		profile, endProfile := NewProfile()
		wg := sync.WaitGroup{}
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, endSpan := profile.StartNewSpan(fmt.Sprintf("repair user %d", i))
				endSpan()
			}(i)
		}
		wg.Wait()
		endProfile()

		summary := profile.Summary()
		require.Len(t, summary.Spans, 8)
		require.NotNil(t, summary.TotalMs)
		require.NotNil(t, summary.Slowest)
	})

	t.Run("open spans sort first and are never the slowest", func(t *testing.T) {
		profile, _ := NewProfile()
		_, endDone := profile.StartNewSpan("done")
		endDone()
		profile.StartNewSpan("still running")

		summary := profile.Summary()
		require.Equal(t, "still running", summary.Spans[0].Name)
		require.Nil(t, summary.Spans[0].ElapsedMs)
		require.Equal(t, "done", summary.Slowest.Name)
		require.Nil(t, summary.TotalMs)
	})

	t.Run("context without a profile gets a throwaway", func(t *testing.T) {
		p, _ := GetProfile(context.Background())
		require.NotNil(t, p)

		stored, _ := NewProfile()
		got, _ := GetProfile(WithProfile(context.Background(), stored))
		require.Same(t, stored, got)
	})
}
