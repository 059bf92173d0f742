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

// Package utils holds helpers shared by the command line tools and their tests.
package utils

import (
	"fmt"
	"strconv"
)

// ArgsBuilder assembles command line arguments for running a cli app in tests.
type ArgsBuilder struct {
	args []string
}

func NewArgs(cmd string) *ArgsBuilder {
	return &ArgsBuilder{args: []string{cmd}}
}

// Flag appends --name followed by value. A false bool flag is omitted and a
// true one is passed without value.
func (b *ArgsBuilder) Flag(name string, value any) *ArgsBuilder {
	if v, ok := value.(bool); ok {
		if v {
			b.args = append(b.args, "--"+name)
		}
		return b
	}
	b.args = append(b.args, "--"+name, format("flag", value))
	return b
}

// Arg appends a positional argument.
func (b *ArgsBuilder) Arg(value any) *ArgsBuilder {
	b.args = append(b.args, format("arg", value))
	return b
}

func (b *ArgsBuilder) Build() []string {
	return b.args
}

func format(kind string, value any) string {
	switch v := value.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		panic(fmt.Sprintf("unsupported %s type %T", kind, v))
	}
}
