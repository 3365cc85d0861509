// lockset.go: Ordered acquisition of views over several buffers.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package subkey

import (
	"sort"

	goerrors "github.com/agilira/go-errors"
)

type lockRequest struct {
	buf   *SecBuf
	write bool
}

func readLock(b *SecBuf) lockRequest  { return lockRequest{buf: b} }
func writeLock(b *SecBuf) lockRequest { return lockRequest{buf: b, write: true} }

// viewSet holds the views taken by acquireViews. A buffer requested twice for
// reading gets a single shared view.
type viewSet struct {
	readers  map[*SecBuf]*ReadView
	writers  map[*SecBuf]*WriteView
	acquired []func()
}

// acquireViews locks every non-nil buffer in reqs in ascending sequence order, so
// concurrent callers locking overlapping buffers cannot deadlock. Requesting the
// same buffer for both writing and reading fails with ErrCodeBufferAlias. On
// error nothing stays locked.
func acquireViews(reqs ...lockRequest) (*viewSet, error) {
	merged := make(map[*SecBuf]bool, len(reqs))
	order := make([]*SecBuf, 0, len(reqs))
	for _, req := range reqs {
		if req.buf == nil {
			continue
		}
		write, seen := merged[req.buf]
		if !seen {
			merged[req.buf] = req.write
			order = append(order, req.buf)
			continue
		}
		if write || req.write {
			return nil, goerrors.New(ErrCodeBufferAlias, "a buffer cannot be locked for writing and reading in the same call")
		}
	}

	sort.Slice(order, func(i, j int) bool { return order[i].seq < order[j].seq })

	vs := &viewSet{
		readers:  make(map[*SecBuf]*ReadView, len(order)),
		writers:  make(map[*SecBuf]*WriteView, 1),
		acquired: make([]func(), 0, len(order)),
	}
	for _, buf := range order {
		if merged[buf] {
			w, err := buf.WriteLock()
			if err != nil {
				vs.release()
				return nil, err
			}
			vs.writers[buf] = w
			vs.acquired = append(vs.acquired, w.Release)
			continue
		}
		r, err := buf.ReadLock()
		if err != nil {
			vs.release()
			return nil, err
		}
		vs.readers[buf] = r
		vs.acquired = append(vs.acquired, r.Release)
	}
	return vs, nil
}

// reader returns the read view for b, or nil if b was nil or not read-locked.
func (vs *viewSet) reader(b *SecBuf) *ReadView {
	return vs.readers[b]
}

// writer returns the write view for b, or nil if b was nil or not write-locked.
func (vs *viewSet) writer(b *SecBuf) *WriteView {
	return vs.writers[b]
}

// release drops every view in reverse acquisition order.
func (vs *viewSet) release() {
	for i := len(vs.acquired) - 1; i >= 0; i-- {
		vs.acquired[i]()
	}
	vs.acquired = nil
}
