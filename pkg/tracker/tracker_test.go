package tracker

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrackAndUntrack(t *testing.T) {
	tr := New()
	tr.TrackService("svc-b")
	tr.TrackService("svc-a")
	tr.TrackService("svc-a")
	tr.TrackService("")
	tr.TrackJob("ft-1")

	assert.Equal(t, []string{"svc-a", "svc-b"}, tr.Services())
	assert.Equal(t, []string{"ft-1"}, tr.Jobs())
	assert.Equal(t, 3, tr.Len())

	tr.UntrackService("svc-a")
	tr.UntrackJob("ft-1")
	tr.UntrackJob("never-tracked")

	assert.Equal(t, []string{"svc-b"}, tr.Services())
	assert.Empty(t, tr.Jobs())
	assert.Equal(t, 1, tr.Len())
}

func TestNilTracker(t *testing.T) {
	var tr *Tracker
	tr.TrackService("x")
	tr.UntrackService("x")
	tr.TrackJob("y")
	tr.UntrackJob("y")

	assert.Nil(t, tr.Services())
	assert.Nil(t, tr.Jobs())
	assert.Zero(t, tr.Len())
}

func TestConcurrentUse(t *testing.T) {
	tr := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tr.TrackService(fmt.Sprintf("svc-%d", i))
			tr.TrackJob(fmt.Sprintf("job-%d", i))
		}(i)
	}
	wg.Wait()

	assert.Len(t, tr.Services(), 50)
	assert.Len(t, tr.Jobs(), 50)
}
