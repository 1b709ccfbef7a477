// Package pbuild implements the pbuild command line: it plans, prepares
// and compiles the products of an application.
package pbuild

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/platformbuild/pbuild/procdrv"
	"github.com/platformbuild/pbuild/prodinfo"
	"github.com/platformbuild/pbuild/subcmd"
)

// Environment variables read by the commands.
const (
	envApp     = "PBUILD_APP"
	envWorkdir = "PBUILD_WORKDIR"
)

// tools are what the commands run external programs and print with.
type tools struct {
	runner procdrv.Runner
	probe  prodinfo.SystemProbe
	out    io.Writer
	logger *log.Logger
	now    func() time.Time
}

func defaultTools() *tools {
	r := &procdrv.ExecRunner{}
	return &tools{
		runner: r,
		probe:  procdrv.NewPackageProbe(r),
		out:    os.Stdout,
		logger: log.Default(),
		now:    time.Now,
	}
}

func commands(ctx context.Context, t *tools) []*subcmd.Subcmd {
	return []*subcmd.Subcmd{{
		Name: "compile",
		Help: "build the products of an application",
		Run: func(_ string, args []string, env *subcmd.Env) error {
			return cmdCompile(ctx, t, args, env)
		},
	}, {
		Name: "prepare",
		Help: "fetch the sources of products",
		Run: func(_ string, args []string, env *subcmd.Env) error {
			return cmdPrepare(ctx, t, args, env)
		},
	}, {
		Name: "deps",
		Help: "print the build plan and the dependencies of products",
		Run: func(_ string, args []string, env *subcmd.Env) error {
			return cmdDeps(t, args, env)
		},
	}, {
		Name: "history",
		Help: "print the last compile runs",
		Run: func(_ string, args []string, env *subcmd.Env) error {
			return cmdHistory(ctx, t, args, env)
		},
	}}
}

// Main runs the pbuild command line and returns the exit code. A nil env
// means the process environment.
func Main(ctx context.Context, args []string, env *subcmd.Env) int {
	return run(ctx, defaultTools(), args, env)
}

func run(ctx context.Context, t *tools, args []string, env *subcmd.Env) int {
	err := subcmd.RunMain(env, commands(ctx, t), args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	return subcmd.ExitCode(err)
}
