/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-6 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package frames implements the call-frame stack of spec §4.E ("Frame
// contract"): one Frame per active method invocation, holding the PC,
// local variables, operand stack, and the monitor(s) it currently holds.
package frames

import (
	"container/list"
	"errors"

	"jacobin/classloader"
)

// Frame is a single activation record. Stack is the bytecode operand
// stack (an interface{} slice so it can hold ints, floats, longs split
// across two slots, and object references uniformly -- matching how the
// teacher's interpreter already treats the operand stack as untyped).
type Frame struct {
	PC        int              // program counter: index into Meth
	Meth      []byte            // the method's bytecode
	MethName  string
	MethType  string // descriptor
	ClName    string
	CP        *classloader.CPool
	Locals    []interface{}
	OpStack   []interface{}
	TOS       int // top-of-stack index into OpStack, -1 when empty
	Monitors  []*Monitor // monitors held by this frame (monitorenter/exit, spec §4.E)
	ExceptionTable []classloader.CodeException
}

// Monitor is the reentrant lock a frame holds while inside a synchronized
// method or block (spec §4.H, "per-object reentrant monitors").
type Monitor struct {
	ObjHash uint32
	Count   int
}

// CreateFrame allocates a Frame with an operand stack of the given
// capacity (a method's Code attribute's max_stack, plus any headroom the
// caller wants).
func CreateFrame(stackSize int) *Frame {
	return &Frame{
		OpStack: make([]interface{}, stackSize),
		TOS:     -1,
	}
}

// CreateFrameStack returns a new, empty frame stack for a thread.
func CreateFrameStack() *list.List {
	return list.New()
}

// PushFrame pushes f onto the front of fs, making it the currently
// executing frame. Returns an error only if fs is nil, mirroring a
// hypothetical out-of-memory condition the teacher's comments call out.
func PushFrame(fs *list.List, f *Frame) error {
	if fs == nil {
		return errors.New("PushFrame: nil frame stack")
	}
	fs.PushFront(f)
	return nil
}

// PopFrame removes the currently executing frame and returns it, or nil if
// fs is empty.
func PopFrame(fs *list.List) *Frame {
	if fs == nil || fs.Len() == 0 {
		return nil
	}
	e := fs.Front()
	fs.Remove(e)
	f, _ := e.Value.(*Frame)
	return f
}

// PeekFrame returns the currently executing frame without removing it, or
// nil if fs is empty.
func PeekFrame(fs *list.List) *Frame {
	if fs == nil || fs.Len() == 0 {
		return nil
	}
	f, _ := fs.Front().Value.(*Frame)
	return f
}

// Push places v on f's operand stack.
func (f *Frame) Push(v interface{}) {
	f.TOS++
	if f.TOS >= len(f.OpStack) {
		f.OpStack = append(f.OpStack, v)
	} else {
		f.OpStack[f.TOS] = v
	}
}

// Pop removes and returns the top of f's operand stack.
func (f *Frame) Pop() interface{} {
	if f.TOS < 0 {
		return nil
	}
	v := f.OpStack[f.TOS]
	f.TOS--
	return v
}
