// Copyright 2025 Sonic Labs
// This file is part of Owl GPU Leakage Analyzer
//
// Owl is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Owl is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Owl. If not, see <http://www.gnu.org/licenses/>.

// Package trace converts the per-run output of the GPU tracer into kernel
// calls keyed by their host call stacks.
package trace

import (
	"fmt"
	"strings"
)

// Frame is one entry of a host call stack.
type Frame struct {
	Addr   uint64
	Func   string
	File   string
	Offset uint64
}

// Equal reports whether two frames denote the same call site: either address
// and symbol agree, or source file and offset agree. The relation is not
// transitive.
func (f Frame) Equal(other Frame) bool {
	if f.Addr == other.Addr && f.Func == other.Func {
		return true
	}
	return f.File == other.File && f.Offset == other.Offset
}

func (f Frame) String() string {
	return fmt.Sprintf("0x%x:%s", f.Addr, f.Func)
}

// Context is the immutable call stack a kernel was launched from. Contexts
// are shared by pointer between all calls observed at the same stack.
type Context struct {
	frames []Frame
	key    string
}

// NewContext builds a context from frames; frames are copied.
func NewContext(frames []Frame) *Context {
	c := &Context{frames: append([]Frame(nil), frames...)}
	c.key = contextKey(c.frames)
	return c
}

func contextKey(frames []Frame) string {
	var b strings.Builder
	for _, f := range frames {
		fmt.Fprintf(&b, "%x|%s|%s|%x;", f.Addr, f.Func, f.File, f.Offset)
	}
	return b.String()
}

// Frames returns a copy of the call stack, innermost frame first.
func (c *Context) Frames() []Frame {
	return append([]Frame(nil), c.frames...)
}

func (c *Context) Len() int {
	return len(c.frames)
}

// Equal compares two contexts frame by frame using Frame.Equal.
func (c *Context) Equal(other *Context) bool {
	if c == other {
		return true
	}
	if c == nil || other == nil || len(c.frames) != len(other.frames) {
		return false
	}
	for i := range c.frames {
		if !c.frames[i].Equal(other.frames[i]) {
			return false
		}
	}
	return true
}

// String renders the context as 0x<addr>:<symbol> pairs joined by "/".
func (c *Context) String() string {
	parts := make([]string, len(c.frames))
	for i, f := range c.frames {
		parts[i] = f.String()
	}
	return strings.Join(parts, "/")
}

// Interner hands out one shared Context per distinct call stack.
type Interner struct {
	contexts map[string]*Context
}

func NewInterner() *Interner {
	return &Interner{contexts: make(map[string]*Context)}
}

// Intern returns the shared context for frames.
func (in *Interner) Intern(frames []Frame) *Context {
	key := contextKey(frames)
	if c, found := in.contexts[key]; found {
		return c
	}
	c := &Context{frames: append([]Frame(nil), frames...), key: key}
	in.contexts[key] = c
	return c
}

// Len returns the number of distinct call stacks handed out so far.
func (in *Interner) Len() int {
	return len(in.contexts)
}
