// lockset_test.go: Tests for ordered multi-buffer view acquisition.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package subkey

import (
	"sync"
	"testing"
	"time"

	goerrors "github.com/agilira/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireViews_MergesDuplicateReads(t *testing.T) {
	a := NewInsecure(4)
	b := NewInsecure(4)

	vs, err := acquireViews(readLock(a), readLock(b), readLock(a))
	require.NoError(t, err)
	assert.Len(t, vs.acquired, 2)
	assert.NotNil(t, vs.reader(a))
	assert.NotNil(t, vs.reader(b))
	assert.Nil(t, vs.writer(a))
	vs.release()

	// Everything is released: exclusive locks succeed.
	w, err := a.WriteLock()
	require.NoError(t, err)
	w.Release()
}

func TestAcquireViews_RejectsWriteReadAlias(t *testing.T) {
	a := NewInsecure(4)

	_, err := acquireViews(writeLock(a), readLock(a))
	assert.True(t, goerrors.HasCode(err, ErrCodeBufferAlias))

	_, err = acquireViews(readLock(a), writeLock(a))
	assert.True(t, goerrors.HasCode(err, ErrCodeBufferAlias))

	_, err = acquireViews(writeLock(a), writeLock(a))
	assert.True(t, goerrors.HasCode(err, ErrCodeBufferAlias))

	// Nothing was locked by the failed attempts.
	w, err := a.WriteLock()
	require.NoError(t, err)
	w.Release()
}

func TestAcquireViews_SkipsNil(t *testing.T) {
	a := NewInsecure(4)

	vs, err := acquireViews(readLock(nil), writeLock(a), readLock(nil))
	require.NoError(t, err)
	assert.Nil(t, vs.reader(nil))
	assert.Equal(t, 0, vs.reader(nil).Len())
	assert.NotNil(t, vs.writer(a))
	vs.release()
}

func TestAcquireViews_ReleasesOnFailure(t *testing.T) {
	first := NewInsecure(4)
	freed := NewInsecure(4)
	last := NewInsecure(4)
	require.NoError(t, freed.Free())

	_, err := acquireViews(writeLock(last), readLock(freed), writeLock(first))
	assert.True(t, goerrors.HasCode(err, ErrCodeBufferFreed))

	for _, buf := range []*SecBuf{first, last} {
		w, err := buf.WriteLock()
		require.NoError(t, err)
		w.Release()
	}
}

func TestAcquireViews_OrderedBySequence(t *testing.T) {
	a := NewInsecure(4)
	b := NewInsecure(4)

	vs, err := acquireViews(readLock(b), writeLock(a))
	require.NoError(t, err)
	defer vs.release()

	// a was allocated first, so it is locked first.
	require.Len(t, vs.acquired, 2)
	assert.NotNil(t, vs.writer(a))
	assert.NotNil(t, vs.reader(b))
}

// Two goroutines locking the same pair of buffers in opposite roles would
// deadlock with naive ordering.
func TestAcquireViews_CrossedRequestsDoNotDeadlock(t *testing.T) {
	x := NewInsecure(4)
	y := NewInsecure(4)

	var wg sync.WaitGroup
	done := make(chan struct{})
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for n := 0; n < 2000; n++ {
				var vs *viewSet
				var err error
				if i == 0 {
					vs, err = acquireViews(writeLock(x), readLock(y))
				} else {
					vs, err = acquireViews(writeLock(y), readLock(x))
				}
				if err != nil {
					t.Errorf("acquireViews: %v", err)
					return
				}
				vs.release()
			}
		}(i)
	}
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("crossed acquisitions deadlocked")
	}
}
