// Copyright 2017 The go-hep Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rootio

import "sync"

// Future is the result of a task handed to an Executor: Result blocks
// until the task has run and returns its error, if any.
type Future interface {
	Result() error
}

// Executor runs decompression tasks on behalf of the engine (spec.md
// §6.3). The default is serial: each record is decompressed on the
// calling goroutine. A pooled executor lets callers overlap CPU-bound
// decompression of independent baskets.
type Executor interface {
	Submit(task func() error) Future
	Shutdown()
}

// doneFuture is an already-completed Future.
type doneFuture struct{ err error }

func (f doneFuture) Result() error { return f.err }

// serialExecutor runs every task inline, the trivial single-threaded
// executor spec.md §5 names as the default.
type serialExecutor struct{}

// NewSerialExecutor returns the default inline executor.
func NewSerialExecutor() Executor { return serialExecutor{} }

func (serialExecutor) Submit(task func() error) Future { return doneFuture{err: task()} }
func (serialExecutor) Shutdown()                       {}

// chanFuture completes when its task finishes on a pool worker.
type chanFuture struct {
	done chan struct{}
	err  error
}

func (f *chanFuture) Result() error {
	<-f.done
	return f.err
}

// poolExecutor fans tasks out over a fixed set of workers.
type poolExecutor struct {
	tasks chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

// NewPoolExecutor returns an Executor backed by n worker goroutines.
func NewPoolExecutor(n int) Executor {
	if n <= 0 {
		n = 1
	}
	p := &poolExecutor{tasks: make(chan func())}
	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer p.wg.Done()
			for task := range p.tasks {
				task()
			}
		}()
	}
	return p
}

func (p *poolExecutor) Submit(task func() error) Future {
	f := &chanFuture{done: make(chan struct{})}
	p.tasks <- func() {
		f.err = task()
		close(f.done)
	}
	return f
}

func (p *poolExecutor) Shutdown() {
	p.once.Do(func() {
		close(p.tasks)
		p.wg.Wait()
	})
}
