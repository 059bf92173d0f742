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

package analyzer

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// TraceEnv names the environment variable telling the tracer where to write
// the artifacts of a run.
const TraceEnv = "OWL_TRACE"

// Runner executes the traced target command.
//
//go:generate mockgen -source runner.go -destination runner_mock.go -package analyzer
type Runner interface {
	// Run executes command with env added to the inherited environment and
	// copies its output to out. It returns once the command has exited.
	Run(ctx context.Context, command string, env []string, out io.Writer) error
}

type shell struct{}

// NewShell returns a Runner executing commands with sh -c.
func NewShell() Runner {
	return shell{}
}

func (s shell) Run(ctx context.Context, command string, env []string, out io.Writer) error {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdout = out
	cmd.Stderr = out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("command %q failed; %w", command, err)
	}
	return nil
}

// traceEnv is the environment of a run writing its trace into dir.
func traceEnv(dir string) []string {
	return []string{TraceEnv + "=" + dir}
}
