package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"vmb/internal/cli"
	"vmb/internal/config"
	"vmb/internal/core"
	"vmb/internal/storage"
)

const flagDateFormat = "2006-01-02"

// runProject manages project records around the import cycle: registering
// real budgets up front, correcting the placeholders imports auto-create, and
// removing projects that were imported by mistake.
func runProject(ctx context.Context, logger *slog.Logger, cfg *config.Config, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: vmb project <add|set|rm> [flags]")
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	sub, rest := args[0], args[1:]
	switch sub {
	case "add":
		fs := flag.NewFlagSet("project add", flag.ExitOnError)
		id := fs.Int64("id", 0, "oracle id of the project")
		name := fs.String("name", "", "project name")
		soldHours := fs.String("sold-hours", "", "sold hours budget")
		start := fs.String("start", "", "start date ("+flagDateFormat+")")
		end := fs.String("end", "", "end date ("+flagDateFormat+")")
		ptype := fs.String("type", string(core.TimeAndMaterials), "project type: tandm, cu or pp")
		fs.Parse(rest)
		if *id == 0 {
			return fmt.Errorf("-id is required")
		}

		p := core.Project{OracleID: *id}
		if err := applyProjectFlags(&p, *name, *soldHours, *start, *end, *ptype); err != nil {
			return err
		}
		if err := repo.CreateProject(ctx, p); err != nil {
			return err
		}
		fmt.Printf("Created project %d.\n", p.OracleID)
		return nil

	case "set":
		fs := flag.NewFlagSet("project set", flag.ExitOnError)
		id := fs.Int64("project", 0, "oracle id of the project")
		name := fs.String("name", "", "new project name")
		soldHours := fs.String("sold-hours", "", "new sold hours budget")
		start := fs.String("start", "", "new start date ("+flagDateFormat+")")
		end := fs.String("end", "", "new end date ("+flagDateFormat+")")
		ptype := fs.String("type", "", "new project type: tandm, cu or pp")
		fs.Parse(rest)
		if *id == 0 {
			return fmt.Errorf("-project is required")
		}

		p, err := repo.GetProject(ctx, *id)
		if err != nil {
			return err
		}
		if err := applyProjectFlags(&p, *name, *soldHours, *start, *end, *ptype); err != nil {
			return err
		}
		if err := repo.UpdateProject(ctx, p); err != nil {
			return err
		}
		fmt.Printf("Updated project %d.\n", p.OracleID)
		return nil

	case "rm":
		fs := flag.NewFlagSet("project rm", flag.ExitOnError)
		id := fs.Int64("project", 0, "oracle id of the project")
		fs.Parse(rest)
		if *id == 0 {
			return fmt.Errorf("-project is required")
		}
		if err := repo.DeleteProject(ctx, *id); err != nil {
			return err
		}
		fmt.Printf("Deleted project %d and its imported records.\n", *id)
		return nil

	default:
		return fmt.Errorf("unknown project subcommand %q", sub)
	}
}

// applyProjectFlags overwrites the fields whose flag was given; blank flags
// keep the current value. The updated project is validated as a whole.
func applyProjectFlags(p *core.Project, name, soldHours, start, end, ptype string) error {
	if name != "" {
		p.Name = name
	}
	if soldHours != "" {
		d, err := decimal.NewFromString(soldHours)
		if err != nil {
			return fmt.Errorf("parse sold hours %q: %w", soldHours, err)
		}
		p.SoldHours = d
	}
	if start != "" {
		t, err := time.Parse(flagDateFormat, start)
		if err != nil {
			return fmt.Errorf("parse start date %q: %w", start, err)
		}
		p.StartDate = t
	}
	if end != "" {
		t, err := time.Parse(flagDateFormat, end)
		if err != nil {
			return fmt.Errorf("parse end date %q: %w", end, err)
		}
		p.EndDate = t
	}
	if ptype != "" {
		p.Type = core.ProjectType(ptype)
	}
	return p.Validate()
}

// runGroup manages project groups, the unit the grouped timecard and customer
// reports select on.
func runGroup(ctx context.Context, logger *slog.Logger, cfg *config.Config, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: vmb group <create|list|assign|rm> [flags]")
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	sub, rest := args[0], args[1:]
	switch sub {
	case "create":
		fs := flag.NewFlagSet("group create", flag.ExitOnError)
		name := fs.String("name", "", "group name")
		fs.Parse(rest)
		if *name == "" {
			return fmt.Errorf("-name is required")
		}
		g, err := repo.CreateProjectGroup(ctx, *name)
		if err != nil {
			return err
		}
		fmt.Printf("Created group %d (%s).\n", g.ID, g.Name)
		return nil

	case "list":
		groups, err := repo.ListProjectGroups(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tName\tProjects")
		for _, g := range groups {
			members, err := repo.ListProjectsByGroup(ctx, g.ID)
			if err != nil {
				return err
			}
			ids := make([]string, 0, len(members))
			for _, p := range members {
				ids = append(ids, fmt.Sprintf("%d", p.OracleID))
			}
			fmt.Fprintf(w, "%d\t%s\t%s\n", g.ID, g.Name, strings.Join(ids, ","))
		}
		return w.Flush()

	case "assign":
		fs := flag.NewFlagSet("group assign", flag.ExitOnError)
		projectID := fs.Int64("project", 0, "oracle id of the project")
		groupID := fs.Int64("group", 0, "group id; 0 detaches the project")
		fs.Parse(rest)
		if *projectID == 0 {
			return fmt.Errorf("-project is required")
		}

		var target *int64
		if *groupID != 0 {
			target = groupID
		}
		if err := repo.AssignProjectToGroup(ctx, *projectID, target); err != nil {
			return err
		}
		if target == nil {
			fmt.Printf("Detached project %d from its group.\n", *projectID)
		} else {
			fmt.Printf("Assigned project %d to group %d.\n", *projectID, *groupID)
		}
		return nil

	case "rm":
		fs := flag.NewFlagSet("group rm", flag.ExitOnError)
		id := fs.Int64("group", 0, "group id")
		fs.Parse(rest)
		if *id == 0 {
			return fmt.Errorf("-group is required")
		}
		if err := repo.DeleteProjectGroup(ctx, *id); err != nil {
			return err
		}
		fmt.Printf("Deleted group %d; its projects are now ungrouped.\n", *id)
		return nil

	default:
		return fmt.Errorf("unknown group subcommand %q", sub)
	}
}

// runMilestone corrects the zero budgets of milestones auto-created during
// import.
func runMilestone(ctx context.Context, logger *slog.Logger, cfg *config.Config, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: vmb milestone <list|set> [flags]")
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	sub, rest := args[0], args[1:]
	switch sub {
	case "list":
		fs := flag.NewFlagSet("milestone list", flag.ExitOnError)
		projectID := fs.Int64("project", 0, "oracle id of the project")
		fs.Parse(rest)
		if *projectID == 0 {
			return fmt.Errorf("-project is required")
		}

		milestones, err := repo.ListMilestones(ctx, *projectID)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "Task\tName\tCost/Hour\tSold Hours")
		for _, m := range milestones {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.Task, m.Name.Label(), m.CostPerHour, m.SoldHours)
		}
		return w.Flush()

	case "set":
		fs := flag.NewFlagSet("milestone set", flag.ExitOnError)
		projectID := fs.Int64("project", 0, "oracle id of the project")
		task := fs.String("task", "", "task code of the milestone")
		cost := fs.String("cost", "", "new cost per hour")
		soldHours := fs.String("sold-hours", "", "new sold hours budget")
		fs.Parse(rest)
		if *projectID == 0 || *task == "" {
			return fmt.Errorf("-project and -task are required")
		}

		if err := setMilestoneBudget(ctx, repo, *projectID, *task, *cost, *soldHours); err != nil {
			return err
		}
		fmt.Printf("Updated milestone %s of project %d.\n", *task, *projectID)
		return nil

	default:
		return fmt.Errorf("unknown milestone subcommand %q", sub)
	}
}

// setMilestoneBudget finds the milestone by task code and overwrites the
// budget fields whose flag was given.
func setMilestoneBudget(ctx context.Context, repo *storage.SQLiteRepository, projectID int64, task, cost, soldHours string) error {
	milestones, err := repo.ListMilestones(ctx, projectID)
	if err != nil {
		return err
	}
	for _, m := range milestones {
		if m.Task != task {
			continue
		}
		if cost != "" {
			d, err := decimal.NewFromString(cost)
			if err != nil {
				return fmt.Errorf("parse cost %q: %w", cost, err)
			}
			m.CostPerHour = d
		}
		if soldHours != "" {
			d, err := decimal.NewFromString(soldHours)
			if err != nil {
				return fmt.Errorf("parse sold hours %q: %w", soldHours, err)
			}
			m.SoldHours = d
		}
		return repo.UpdateMilestone(ctx, m)
	}
	return fmt.Errorf("milestone %s of project %d: %w", task, projectID, storage.ErrNotFound)
}
