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

package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/0xsoniclabs/owl/logger"
	"github.com/0xsoniclabs/owl/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// parse runs a leakage command with args and returns the resulting config.
func parse(t *testing.T, args []string) (*Config, error) {
	t.Helper()
	var (
		cfg *Config
		err error
	)
	app := cli.NewApp()
	app.Commands = []*cli.Command{
		{
			Name: "leakage",
			Flags: []cli.Flag{
				&TimesFlag,
				&SignFlag,
				&RandCmdFlag,
				&CmdsFlag,
				&CmdsFileFlag,
				&OutputDirFlag,
				&DbFlag,
				&HtmlFlag,
				&logger.LogLevelFlag,
			},
			Action: func(ctx *cli.Context) error {
				cfg, err = NewConfig(ctx)
				return nil
			},
		},
	}
	require.NoError(t, app.Run(args))
	return cfg, err
}

func TestNewConfig_Defaults(t *testing.T) {
	args := utils.NewArgs("owl").
		Arg("leakage").
		Flag(RandCmdFlag.Name, "./aes rand").
		Arg("--").
		Arg("./aes").
		Arg("fixed").
		Build()

	cfg, err := parse(t, args)
	require.NoError(t, err)
	assert.Equal(t, []string{"./aes fixed"}, cfg.Commands)
	assert.Equal(t, "./aes rand", cfg.RandCommand)
	assert.Equal(t, 2, cfg.Times)
	assert.False(t, cfg.HasSign)
	assert.Equal(t, DefaultThreshold, cfg.Threshold)
	assert.Equal(t, "leakage", cfg.CommandName)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Html)
}

func TestNewConfig_SignSetsThreshold(t *testing.T) {
	args := utils.NewArgs("owl").
		Arg("leakage").
		Flag(RandCmdFlag.Name, "rnd").
		Flag(SignFlag.Name, 0.95).
		Flag(TimesFlag.Name, 10).
		Flag(CmdsFlag.Name, "a").
		Build()

	cfg, err := parse(t, args)
	require.NoError(t, err)
	assert.True(t, cfg.HasSign)
	assert.InDelta(t, 0.05, cfg.Threshold, 1e-12)
	assert.Equal(t, 10, cfg.Times)
}

func TestNewConfig_CollectsCommandsInOrder(t *testing.T) {
	file := filepath.Join(t.TempDir(), "cmds.txt")
	require.NoError(t, os.WriteFile(file, []byte("d\n\ne\n"), 0644))

	args := utils.NewArgs("owl").
		Arg("leakage").
		Flag(RandCmdFlag.Name, "rnd").
		Flag(CmdsFlag.Name, "b:c").
		Flag(CmdsFileFlag.Name, file).
		Arg("--").
		Arg("a").
		Build()

	cfg, err := parse(t, args)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, cfg.Commands)
}

func TestNewConfig_OutputDirFromEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OWL_RES", dir)

	args := utils.NewArgs("owl").
		Arg("leakage").
		Flag(RandCmdFlag.Name, "rnd").
		Flag(CmdsFlag.Name, "a").
		Build()

	cfg, err := parse(t, args)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.OutputDir)
}

func TestNewConfig_Validation(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "sign above one",
			args: utils.NewArgs("owl").Arg("leakage").Flag(RandCmdFlag.Name, "r").Flag(CmdsFlag.Name, "a").Flag(SignFlag.Name, 1.5).Build(),
			want: "sign must be within [0,1]",
		},
		{
			name: "negative sign",
			args: utils.NewArgs("owl").Arg("leakage").Flag(RandCmdFlag.Name, "r").Flag(CmdsFlag.Name, "a").Flag(SignFlag.Name, -0.1).Build(),
			want: "sign must be within [0,1]",
		},
		{
			name: "NaN sign",
			args: utils.NewArgs("owl").Arg("leakage").Flag(RandCmdFlag.Name, "r").Flag(CmdsFlag.Name, "a").Flag(SignFlag.Name, "NaN").Build(),
			want: "sign must be within [0,1]",
		},
		{
			name: "zero times",
			args: utils.NewArgs("owl").Arg("leakage").Flag(RandCmdFlag.Name, "r").Flag(CmdsFlag.Name, "a").Flag(TimesFlag.Name, 0).Build(),
			want: "times must be at least 1",
		},
		{
			name: "missing random command",
			args: utils.NewArgs("owl").Arg("leakage").Flag(CmdsFlag.Name, "a").Build(),
			want: "--rand-cmd required",
		},
		{
			name: "no command",
			args: utils.NewArgs("owl").Arg("leakage").Flag(RandCmdFlag.Name, "r").Build(),
			want: "no command to test",
		},
		{
			name: "missing commands file",
			args: utils.NewArgs("owl").Arg("leakage").Flag(RandCmdFlag.Name, "r").Flag(CmdsFileFlag.Name, "/does/not/exist").Build(),
			want: "cannot read commands file",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parse(t, tc.args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestGetFlagValue(t *testing.T) {
	// app for testing
	app := cli.NewApp()
	app.Commands = []*cli.Command{
		{
			Name: "testcmd",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name: "intflag",
				},
				&cli.Float64Flag{
					Name: "floatflag",
				},
				&cli.StringFlag{
					Name: "stringflag",
				},
				&cli.PathFlag{
					Name: "pathflag",
				},
				&cli.BoolFlag{
					Name: "boolflag",
				},
			},
		},
	}

	// Setup test cases
	testCases := []struct {
		name          string
		setupFlags    func() *flag.FlagSet
		flagToTest    interface{}
		expectedValue interface{}
	}{
		{
			name: "IntFlag value",
			setupFlags: func() *flag.FlagSet {
				set := flag.NewFlagSet("test", 0)
				set.Int("intflag", 42, "")
				return set
			},
			flagToTest:    cli.IntFlag{Name: "intflag"},
			expectedValue: 42,
		},
		{
			name: "Float64Flag value",
			setupFlags: func() *flag.FlagSet {
				set := flag.NewFlagSet("test", 0)
				set.Float64("floatflag", 0.25, "")
				return set
			},
			flagToTest:    cli.Float64Flag{Name: "floatflag"},
			expectedValue: 0.25,
		},
		{
			name: "StringFlag value",
			setupFlags: func() *flag.FlagSet {
				set := flag.NewFlagSet("test", 0)
				set.String("stringflag", "test-string", "")
				return set
			},
			flagToTest:    cli.StringFlag{Name: "stringflag"},
			expectedValue: "test-string",
		},
		{
			name: "PathFlag value",
			setupFlags: func() *flag.FlagSet {
				set := flag.NewFlagSet("test", 0)
				set.String("pathflag", "/test/path", "")
				return set
			},
			flagToTest:    cli.PathFlag{Name: "pathflag"},
			expectedValue: "/test/path",
		},
		{
			name: "BoolFlag value",
			setupFlags: func() *flag.FlagSet {
				set := flag.NewFlagSet("test", 0)
				set.Bool("boolflag", true, "")
				return set
			},
			flagToTest:    cli.BoolFlag{Name: "boolflag"},
			expectedValue: true,
		},
		{
			name: "unknown flag falls back to default",
			setupFlags: func() *flag.FlagSet {
				return flag.NewFlagSet("test", 0)
			},
			flagToTest:    cli.IntFlag{Name: "missing", Value: 7},
			expectedValue: 7,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := cli.NewContext(app, tc.setupFlags(), nil)
			ctx.Command = app.Commands[0]

			value := getFlagValue(ctx, tc.flagToTest)
			assert.Equal(t, tc.expectedValue, value)
		})
	}
}
