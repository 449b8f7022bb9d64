package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"vmb/internal/amqp"
	"vmb/internal/cli"
	"vmb/internal/config"
	"vmb/internal/core"
	"vmb/internal/report"
	"vmb/internal/services"
	"vmb/internal/tabular"
	"vmb/internal/tabular/csvfile"
	"vmb/internal/tabular/excel"
	gsheet "vmb/internal/tabular/google"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.SignalContext()
	defer stop()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "import-expenditures":
		err = runImport(ctx, logger, cfg, args, csvfile.ExpenditureOptions, importExpenditures)
	case "import-timecards":
		err = runImport(ctx, logger, cfg, args, csvfile.TimecardOptions, importTimecards)
	case "overview":
		err = runOverview(ctx, logger, cfg)
	case "project-detail":
		err = runProjectDetail(ctx, logger, cfg, args)
	case "burndown":
		err = runBurndown(ctx, logger, cfg, args)
	case "report":
		err = runReport(ctx, logger, cfg, args)
	case "project":
		err = runProject(ctx, logger, cfg, args)
	case "group":
		err = runGroup(ctx, logger, cfg, args)
	case "milestone":
		err = runMilestone(ctx, logger, cfg, args)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		logger.Error("Command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: vmb <command> [flags]

commands:
  import-expenditures  import expenditure exports (UTF-16 tab-separated)
  import-timecards     import timecard exports (comma-separated)
  overview             budget overview across all projects
  project-detail       hours by month, milestone and team for one project
  burndown             ideal vs actual burndown for one project
  report               render timecard reports as CSV
  project              add, correct or remove project records
  group                manage project groups and their members
  milestone            list milestones or correct their budgets
`)
}

type importFunc func(ctx context.Context, svc *services.ImportService, src tabular.Source) error

func importExpenditures(ctx context.Context, svc *services.ImportService, src tabular.Source) error {
	res, err := svc.ImportExpenditures(ctx, src)
	if err != nil {
		return err
	}
	printImportResult(res.FilesSeen, res.RecordsCreated, res.ProjectsCreated, res.MilestonesCreated)
	return nil
}

func importTimecards(ctx context.Context, svc *services.ImportService, src tabular.Source) error {
	res, err := svc.ImportTimecards(ctx, src)
	if err != nil {
		return err
	}
	printImportResult(res.FilesSeen, res.RecordsCreated, res.ProjectsCreated, res.MilestonesCreated)
	return nil
}

func printImportResult(files, records, projects, milestones int) {
	fmt.Printf("Checked %d file(s) for import and imported %d entries.\n", files, records)
	if projects > 0 {
		fmt.Printf("Created %d placeholder project(s); correct their budgets by hand.\n", projects)
	}
	if milestones > 0 {
		fmt.Printf("Created %d milestone(s).\n", milestones)
	}
}

func runImport(ctx context.Context, logger *slog.Logger, cfg *config.Config, args []string, opts csvfile.Options, run importFunc) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	dir := fs.String("dir", "", "import every file in this directory")
	useGoogle := fs.Bool("google", false, "import from the configured Google spreadsheet")
	fs.Parse(args)

	src, err := buildSource(ctx, fs.Args(), *dir, *useGoogle, opts)
	if err != nil {
		return err
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	svc := services.NewImportService(repo, dialAMQP(logger, cfg))
	defer svc.Close()

	return run(ctx, svc, src)
}

// buildSource picks the tabular source: explicit files (xlsx routed to the
// Excel reader), a directory, or the Google spreadsheet.
func buildSource(ctx context.Context, files []string, dir string, useGoogle bool, opts csvfile.Options) (tabular.Source, error) {
	switch {
	case useGoogle:
		return gsheet.NewFromEnv(ctx)
	case dir != "":
		return csvfile.NewDirSource(dir, opts)
	case len(files) > 0:
		var xlsx, plain []string
		for _, f := range files {
			if strings.EqualFold(filepath.Ext(f), ".xlsx") {
				xlsx = append(xlsx, f)
			} else {
				plain = append(plain, f)
			}
		}
		if len(xlsx) > 0 && len(plain) > 0 {
			return nil, fmt.Errorf("cannot mix xlsx and text files in one import")
		}
		if len(xlsx) > 0 {
			return excel.NewSource(xlsx...), nil
		}
		return csvfile.NewSource(opts, plain...), nil
	default:
		return nil, fmt.Errorf("nothing to import: pass files, -dir or -google")
	}
}

// dialAMQP is optional: without a broker URL imports still run, they just
// don't announce completion.
func dialAMQP(logger *slog.Logger, cfg *config.Config) *amqp.Client {
	if cfg.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("AMQP unavailable, continuing without events", "error", err)
		return nil
	}
	return client
}

func newReportService(logger *slog.Logger, cfg *config.Config) (*services.ReportService, func() error) {
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	return services.NewReportService(repo, cfg.CacheSize, cfg.CacheTTL), repo.Close
}

func runOverview(ctx context.Context, logger *slog.Logger, cfg *config.Config) error {
	svc, closeRepo := newReportService(logger, cfg)
	defer closeRepo()

	lines, err := svc.Overview(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(report.OverviewHeader, "\t"))
	for _, row := range report.OverviewRows(lines)[1:] {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	return w.Flush()
}

func runProjectDetail(ctx context.Context, logger *slog.Logger, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("project-detail", flag.ExitOnError)
	projectID := fs.Int64("project", 0, "oracle id of the project")
	fs.Parse(args)
	if *projectID == 0 {
		return fmt.Errorf("-project is required")
	}

	svc, closeRepo := newReportService(logger, cfg)
	defer closeRepo()

	d, err := svc.ProjectDetail(ctx, *projectID)
	if err != nil {
		return err
	}

	fmt.Printf("%s (%d), sold %s hours, consumed %s, avg %s/month\n\n",
		d.Project.Name, d.Project.OracleID, d.Project.SoldHours, d.HoursSum, d.AvgBurned.Round(2))

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "Month\tHours")
	for _, s := range d.HoursByMonth {
		fmt.Fprintf(w, "%s\t%s\n", s.Start.Format("2006-01"), s.Sum)
	}
	fmt.Fprintln(w, "\nMilestone\tHours\tDelta")
	for _, ms := range d.ByMilestone {
		delta := "-"
		if ms.Delta != nil {
			delta = ms.Delta.String()
		}
		name := ms.Task
		if name == "" {
			name = "(none)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", name, ms.Sum, delta)
	}
	if len(d.TeamLines) > 0 {
		header := []string{"\nTeam"}
		for _, cell := range d.TeamLines[0].Sums {
			label := "(none)"
			if cell.Milestone != nil {
				label = cell.Milestone.Name.Label()
			}
			header = append(header, label)
		}
		fmt.Fprintln(w, strings.Join(header, "\t"))
		for _, line := range d.TeamLines {
			row := []string{line.Team}
			for _, cell := range line.Sums {
				row = append(row, cell.Hours.String())
			}
			fmt.Fprintln(w, strings.Join(row, "\t"))
		}
	}
	return w.Flush()
}

func runBurndown(ctx context.Context, logger *slog.Logger, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("burndown", flag.ExitOnError)
	projectID := fs.Int64("project", 0, "oracle id of the project")
	period := fs.String("period", "month", "resolution: week or month")
	fs.Parse(args)
	if *projectID == 0 {
		return fmt.Errorf("-project is required")
	}

	svc, closeRepo := newReportService(logger, cfg)
	defer closeRepo()

	b, err := svc.Burndown(ctx, *projectID, core.Period(*period))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "Ideal\tRemaining")
	for _, p := range b.Ideal {
		fmt.Fprintf(w, "%s\t%s\n", p.Date.Format("2006-01-02"), p.Remaining.Round(2))
	}
	fmt.Fprintln(w, "\nActual\tRemaining")
	for _, p := range b.Actual {
		fmt.Fprintf(w, "%s\t%s\n", p.Date.Format("2006-01-02"), p.Remaining)
	}
	return w.Flush()
}

func runReport(ctx context.Context, logger *slog.Logger, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	projectID := fs.Int64("project", 0, "timecard summary for one project")
	groupID := fs.Int64("group", 0, "timecard summary for a project group")
	month := fs.String("month", "", "customer report month (2006-01), requires -group")
	out := fs.String("out", "", "write the report to this file instead of stdout")
	fs.Parse(args)

	svc, closeRepo := newReportService(logger, cfg)
	defer closeRepo()

	var rows [][]string
	var err error
	switch {
	case *month != "":
		if *groupID == 0 {
			return fmt.Errorf("-month requires -group")
		}
		var target time.Time
		target, err = time.Parse("2006-01", *month)
		if err != nil {
			return fmt.Errorf("parse month %q: %w", *month, err)
		}
		rows, err = svc.CustomerReportCSV(ctx, *groupID, target.Year(), target.Month())
	case *groupID != 0:
		rows, err = svc.TimecardSummaryByGroupCSV(ctx, *groupID)
	case *projectID != 0:
		rows, err = svc.TimecardSummaryCSV(ctx, *projectID)
	default:
		return fmt.Errorf("pass -project or -group")
	}
	if err != nil {
		return err
	}

	if *out != "" {
		return report.WriteCSVFile(*out, rows)
	}
	return report.WriteCSV(os.Stdout, rows)
}
