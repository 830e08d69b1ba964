/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-6 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package thread implements the cooperative task-per-thread scheduler of
// spec §4.H: each Java thread maps to one Go goroutine running an
// ExecThread. A suspension request is recorded on the ExecThread with its
// reason; the jvm interpreter loop does not poll it, so a request does
// not park a running thread.
package thread

import (
	"container/list"
	"sync"
	"sync/atomic"
)

// SuspendReason names why a thread is currently parked at a suspension
// point (spec §4.H, "suspension points").
type SuspendReason int

const (
	NotSuspended SuspendReason = iota
	SuspendForGC
	SuspendForIO
	SuspendForIntrinsic
)

// ExecThread is one Java thread's execution context: its frame stack, its
// daemon status (daemon threads never block VM exit, spec §4.H), and the
// monitor it is currently blocked acquiring, if any.
type ExecThread struct {
	ID       uint64
	Name     string
	Stack    *list.List
	Daemon   bool
	Trace    bool
	priority int

	suspendMu sync.Mutex
	suspended SuspendReason
}

var threadIDCounter uint64

// CreateThread allocates a new ExecThread with a fresh ID and an empty
// frame stack.
func CreateThread() ExecThread {
	return ExecThread{
		ID:    atomic.AddUint64(&threadIDCounter, 1),
		Stack: list.New(),
	}
}

// RequestSuspend marks th as suspended for reason until Resume is called;
// IsSuspended reports that state. The jvm interpreter loop does not call
// IsSuspended, so the mark does not stop a running thread.
func (th *ExecThread) RequestSuspend(reason SuspendReason) {
	th.suspendMu.Lock()
	th.suspended = reason
	th.suspendMu.Unlock()
}

func (th *ExecThread) Resume() {
	th.suspendMu.Lock()
	th.suspended = NotSuspended
	th.suspendMu.Unlock()
}

func (th *ExecThread) IsSuspended() (bool, SuspendReason) {
	th.suspendMu.Lock()
	defer th.suspendMu.Unlock()
	return th.suspended != NotSuspended, th.suspended
}

// Scheduler tracks every live ExecThread so VM exit can decide whether any
// non-daemon thread is still running (spec §4.H, "the VM exits once every
// non-daemon thread has terminated").
type Scheduler struct {
	mu      sync.Mutex
	threads map[uint64]*ExecThread
	wg      sync.WaitGroup
}

func NewScheduler() *Scheduler {
	return &Scheduler{threads: make(map[uint64]*ExecThread)}
}

// Register adds th to the scheduler and, if it is not a daemon, arms the
// wait group VM shutdown blocks on.
func (s *Scheduler) Register(th *ExecThread) {
	s.mu.Lock()
	s.threads[th.ID] = th
	s.mu.Unlock()
	if !th.Daemon {
		s.wg.Add(1)
	}
}

// Unregister removes th and, if it was non-daemon, signals its completion.
func (s *Scheduler) Unregister(th *ExecThread) {
	s.mu.Lock()
	_, ok := s.threads[th.ID]
	delete(s.threads, th.ID)
	s.mu.Unlock()
	if ok && !th.Daemon {
		s.wg.Done()
	}
}

// WaitForAllNonDaemon blocks until every registered non-daemon thread has
// unregistered, i.e. until the VM is eligible to exit.
func (s *Scheduler) WaitForAllNonDaemon() {
	s.wg.Wait()
}

// Live returns the number of threads currently registered.
func (s *Scheduler) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.threads)
}
