package pbuild

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/platformbuild/pbuild/compile"
	"github.com/platformbuild/pbuild/errutil"
	"github.com/platformbuild/pbuild/fetch"
	"github.com/platformbuild/pbuild/history"
	"github.com/platformbuild/pbuild/prodinfo"
	"github.com/platformbuild/pbuild/subcmd"
)

func cmdCompile(ctx context.Context, t *tools, args []string, env *subcmd.Env) error {
	cfg, err := parseCompileConfig(args, t.out)
	if err != nil {
		return err
	}
	app, err := cfg.load(env)
	if err != nil {
		return err
	}

	plan, g, err := compile.PlanProducts(app, cfg.names(), &cfg.opts)
	if err != nil {
		return errutil.Wrap(err, "plan")
	}
	t.logger.Printf("building %d products of %s", len(plan), app.Name)

	started := t.now()
	p := &compile.Pipeline{
		App:     app,
		Runner:  t.runner,
		Probe:   t.probe,
		Envs:    env,
		Logger:  t.logger,
		Options: &cfg.opts,
		Graph:   g,
	}
	report := p.Run(ctx, plan)
	report.Summary(t.out)

	if f := cfg.history.file(app); f != "" {
		run := historyRun(report, started, "compile "+strings.Join(args, " "))
		if err := recordRun(ctx, f, run); err != nil {
			t.logger.Printf("record history: %v", err)
		}
	}

	if code := report.ExitCode(); code != 0 {
		return &subcmd.ExitError{
			Code: code,
			Err: fmt.Errorf(
				"%d of %d products failed",
				report.Planned-report.Succeeded(), report.Planned,
			),
		}
	}
	return nil
}

func historyRun(report *compile.Report, started time.Time, command string) *history.Run {
	run := &history.Run{
		Started: started.UTC(),
		Command: strings.TrimSpace(command),
		Total:   report.Planned,
		Failed:  report.Planned - report.Succeeded(),
	}
	for _, res := range report.Results {
		run.Results = append(run.Results, &history.Result{
			Product:  res.Product,
			State:    string(res.State),
			Label:    res.Label,
			Missing:  res.Missing,
			Duration: res.Duration,
		})
	}
	return run
}

func recordRun(ctx context.Context, f string, run *history.Run) error {
	db, err := history.Open(ctx, f)
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.Record(ctx, run)
	return err
}

func cmdPrepare(ctx context.Context, t *tools, args []string, env *subcmd.Env) error {
	cfg, err := parsePrepareConfig(args, t.out)
	if err != nil {
		return err
	}
	app, err := cfg.load(env)
	if err != nil {
		return err
	}

	plan, _, err := compile.PlanProducts(app, cfg.names(), &compile.Options{
		WithFathers: cfg.withFathers,
	})
	if err != nil {
		return errutil.Wrap(err, "plan")
	}

	f := &fetch.Fetcher{
		App:    app,
		Runner: t.runner,
		Out:    t.out,
		Logger: t.logger,
		Force:  cfg.force,
	}
	errs := new(errutil.List)
	for _, p := range plan {
		if err := ctx.Err(); err != nil {
			errs.Add(err)
			break
		}
		errs.Add(f.Fetch(ctx, p))
	}
	fmt.Fprintf(t.out, "%d / %d products prepared\n", len(plan)-errs.Len(), len(plan))
	return errs.Err()
}

func cmdDeps(t *tools, args []string, env *subcmd.Env) error {
	cfg, err := parseDepsConfig(args, t.out)
	if err != nil {
		return err
	}
	app, err := cfg.load(env)
	if err != nil {
		return err
	}

	plan, _, err := compile.PlanProducts(app, cfg.names(), &compile.Options{
		WithFathers:  cfg.withFathers,
		WithChildren: cfg.withChildren,
	})
	if err != nil {
		return errutil.Wrap(err, "plan")
	}

	w := tabwriter.NewWriter(t.out, 0, 0, 1, ' ', 0)
	for _, p := range plan {
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.Name, method(p), strings.Join(p.DependAll, " "))
	}
	return w.Flush()
}

func method(p *prodinfo.Product) string {
	if p.Build == prodinfo.BuildNone {
		return p.Source.Method()
	}
	return p.Source.Method() + "/" + string(p.Build)
}

func cmdHistory(ctx context.Context, t *tools, args []string, env *subcmd.Env) error {
	cfg, err := parseHistoryConfig(args, t.out)
	if err != nil {
		return err
	}
	app, err := cfg.load(env)
	if err != nil {
		return err
	}
	f := cfg.history.file(app)
	if f == "" {
		return fmt.Errorf("no history database")
	}

	db, err := history.Open(ctx, f)
	if err != nil {
		return err
	}
	defer db.Close()

	switch {
	case cfg.clear:
		if err := db.Reset(ctx); err != nil {
			return err
		}
		fmt.Fprintln(t.out, "history cleared")
		return nil
	case cfg.run > 0:
		run, err := db.Get(ctx, cfg.run)
		if err != nil {
			return errutil.Wrapf(err, "run #%d", cfg.run)
		}
		printRun(t.out, run, true)
		return nil
	}

	runs, err := db.Last(ctx, cfg.n)
	if err != nil {
		return err
	}
	for _, run := range runs {
		printRun(t.out, run, false)
	}
	return nil
}

// printRun prints the tally line of the run and its failed products, or
// every product with all set.
func printRun(w io.Writer, run *history.Run, all bool) {
	fmt.Fprintf(
		w, "#%d %s %d / %d succeeded: %s\n",
		run.ID, run.Started.Format(time.RFC3339),
		run.Total-run.Failed, run.Total, run.Command,
	)
	for _, res := range run.Results {
		failed := res.State == string(compile.StateKO)
		if !failed && !all {
			continue
		}
		line := fmt.Sprintf("  %s: %s", res.Product, res.State)
		if failed {
			line = fmt.Sprintf("  %s: %s", res.Product, res.Label)
		}
		if len(res.Missing) > 0 {
			line += " (missing: " + strings.Join(res.Missing, ", ") + ")"
		}
		if all {
			line += " " + res.Duration.String()
		}
		fmt.Fprintln(w, line)
	}
}
