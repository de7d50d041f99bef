package scraper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/themehraaryan/costtofly/logger"
)

type fakeSelectorCounter struct {
	results []func() (int, error)
	call    int
}

func (f *fakeSelectorCounter) CountBySelector(string) (int, error) {
	i := f.call
	f.call++
	if i < len(f.results) {
		return f.results[i]()
	}
	return 0, nil
}

func found(n int) func() (int, error) { return func() (int, error) { return n, nil } }

func failing(err error) func() (int, error) { return func() (int, error) { return 0, err } }

func TestWaitForAnySelectorToleratesTransientErrors(t *testing.T) {
	// evaluation lands in a destroyed execution context right after a
	// redirect, then the page settles and the selector matches
	destroyed := errors.New("Cannot find context with specified id")
	counter := &fakeSelectorCounter{results: []func() (int, error){
		failing(destroyed),
		failing(destroyed),
		found(3),
	}}

	sel, err := waitForAnySelector(context.Background(), counter,
		[]string{"div.a", "div.b", "div.c"}, 5*time.Second, logger.Nop())

	require.NoError(t, err)
	assert.Equal(t, "div.c", sel)
	assert.Equal(t, 3, counter.call, "poll errors are skipped, not escalated")
}

func TestWaitForAnySelectorReturnsFirstHit(t *testing.T) {
	counter := &fakeSelectorCounter{results: []func() (int, error){
		found(0),
		found(2),
	}}

	sel, err := waitForAnySelector(context.Background(), counter,
		[]string{"div.a", "div.b"}, 5*time.Second, logger.Nop())

	require.NoError(t, err)
	assert.Equal(t, "div.b", sel)
}

func TestWaitForAnySelectorTimesOut(t *testing.T) {
	counter := &fakeSelectorCounter{}

	_, err := waitForAnySelector(context.Background(), counter,
		[]string{"div.a"}, 600*time.Millisecond, logger.Nop())

	assert.ErrorIs(t, err, ErrWaitTimeout)
}

func TestWaitForAnySelectorTimesOutOnPersistentErrors(t *testing.T) {
	counter := &fakeSelectorCounter{results: []func() (int, error){
		failing(errors.New("Cannot find context with specified id")),
	}}
	counter.results = append(counter.results, counter.results[0], counter.results[0])

	_, err := waitForAnySelector(context.Background(), counter,
		[]string{"div.a"}, 600*time.Millisecond, logger.Nop())

	assert.ErrorIs(t, err, ErrWaitTimeout)
}

func TestWaitForAnySelectorStopsOnDeadContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := waitForAnySelector(ctx, &fakeSelectorCounter{},
		[]string{"div.a"}, 5*time.Second, logger.Nop())

	assert.ErrorIs(t, err, context.Canceled)
}
