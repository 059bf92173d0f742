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

// Package config assembles the configuration of a leakage analysis from
// command line flags.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/0xsoniclabs/owl/logger"
	"github.com/urfave/cli/v2"
)

// DefaultThreshold is used when no significance level is given. It exceeds
// every p-value, so all findings are reported.
const DefaultThreshold = 2.0

// Config holds the settings of a leakage analysis.
type Config struct {
	AppName     string
	CommandName string

	// Commands lists the fixed-input commands in the order given.
	Commands    []string
	CmdList     string
	CmdsFile    string
	RandCommand string
	Times       int
	Sign        float64
	HasSign     bool

	// Threshold is the p-value below which findings are reported.
	Threshold float64
	OutputDir string
	DbFile    string
	Html      bool
	LogLevel  string
}

// NewConfig creates and validates the configuration of the command run by ctx.
func NewConfig(ctx *cli.Context) (*Config, error) {
	cfg := createConfigFromFlags(ctx)

	cmds, err := collectCommands(ctx.Args().Slice(), cfg)
	if err != nil {
		return nil, err
	}
	cfg.Commands = cmds

	cfg.Threshold = DefaultThreshold
	if cfg.HasSign {
		cfg.Threshold = 1 - cfg.Sign
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// createConfigFromFlags returns Config instance with user specified values or the default ones
func createConfigFromFlags(ctx *cli.Context) *Config {
	cfg := &Config{
		AppName:     ctx.App.HelpName,
		CommandName: ctx.Command.Name,

		CmdList:     getFlagValue(ctx, CmdsFlag).(string),
		CmdsFile:    getFlagValue(ctx, CmdsFileFlag).(string),
		RandCommand: getFlagValue(ctx, RandCmdFlag).(string),
		Times:       getFlagValue(ctx, TimesFlag).(int),
		Sign:        getFlagValue(ctx, SignFlag).(float64),
		HasSign:     ctx.IsSet(SignFlag.Name),
		OutputDir:   getFlagValue(ctx, OutputDirFlag).(string),
		DbFile:      getFlagValue(ctx, DbFlag).(string),
		Html:        getFlagValue(ctx, HtmlFlag).(bool),
		LogLevel:    getFlagValue(ctx, logger.LogLevelFlag).(string),
	}
	return cfg
}

// collectCommands gathers the fixed-input commands: the trailing arguments
// form one command, followed by the ':'-separated list and the lines of the
// commands file.
func collectCommands(args []string, cfg *Config) ([]string, error) {
	var cmds []string
	if cmd := strings.Join(args, " "); cmd != "" {
		cmds = append(cmds, cmd)
	}
	if list := strings.TrimSpace(cfg.CmdList); list != "" {
		for _, c := range strings.Split(list, ":") {
			if c = strings.TrimSpace(c); c != "" {
				cmds = append(cmds, c)
			}
		}
	}
	if cfg.CmdsFile != "" {
		content, err := os.ReadFile(cfg.CmdsFile)
		if err != nil {
			return nil, fmt.Errorf("cannot read commands file %s; %w", cfg.CmdsFile, err)
		}
		for _, line := range strings.Split(string(content), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				cmds = append(cmds, line)
			}
		}
	}
	return cmds, nil
}

func (cfg *Config) validate() error {
	if cfg.HasSign && !(cfg.Sign >= 0 && cfg.Sign <= 1) {
		return fmt.Errorf("sign must be within [0,1], got %v", cfg.Sign)
	}
	if cfg.Times < 1 {
		return fmt.Errorf("times must be at least 1, got %d", cfg.Times)
	}
	if cfg.RandCommand == "" {
		return fmt.Errorf("--%s required for leakage test", RandCmdFlag.Name)
	}
	if len(cfg.Commands) == 0 {
		return fmt.Errorf("no command to test; pass it after -- or use --%s/--%s", CmdsFlag.Name, CmdsFileFlag.Name)
	}
	return nil
}

// getFlagValue returns value specified by user if flag is present in cli context, otherwise return default flag value
func getFlagValue(ctx *cli.Context, flag interface{}) interface{} {
	cmdFlags := ctx.Command.Flags
	for _, cmdFlag := range cmdFlags {
		switch f := flag.(type) {
		case cli.IntFlag:
			if cmdFlag.Names()[0] == f.Name {
				return ctx.Int(f.Name)
			}

		case cli.Float64Flag:
			if cmdFlag.Names()[0] == f.Name {
				return ctx.Float64(f.Name)
			}

		case cli.StringFlag:
			if cmdFlag.Names()[0] == f.Name {
				return ctx.String(f.Name)
			}

		case cli.PathFlag:
			if cmdFlag.Names()[0] == f.Name {
				return ctx.Path(f.Name)
			}

		case cli.BoolFlag:
			if cmdFlag.Names()[0] == f.Name {
				return ctx.Bool(f.Name)
			}
		}
	}

	// If flag not found, return the default value of the flag
	switch f := flag.(type) {
	case cli.IntFlag:
		return f.Value
	case cli.Float64Flag:
		return f.Value
	case cli.StringFlag:
		return f.Value
	case cli.PathFlag:
		return f.Value
	case cli.BoolFlag:
		return f.Value
	}

	return nil
}
