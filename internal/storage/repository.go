package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"vmb/internal/core"
)

// ErrNotFound is returned when a looked-up entity does not exist.
var ErrNotFound = errors.New("not found")

const dateLayout = "2006-01-02"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

//
// projects
//

// GetOrCreateProject implements the importer's atomic get-or-create: the
// insert ignores an existing oracle id, so concurrent imports cannot create
// the parent twice.
func (r *SQLiteRepository) GetOrCreateProject(ctx context.Context, p core.Project) (core.Project, bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO projects (oracle_id, name, sold_hours, start_date, end_date, type)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(oracle_id) DO NOTHING`,
		p.OracleID, p.Name, p.SoldHours.String(),
		p.StartDate.Format(dateLayout), p.EndDate.Format(dateLayout), string(p.Type))
	if err != nil {
		return core.Project{}, false, fmt.Errorf("insert project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.Project{}, false, fmt.Errorf("rows affected: %w", err)
	}
	stored, err := r.GetProject(ctx, p.OracleID)
	if err != nil {
		return core.Project{}, false, err
	}
	return stored, n > 0, nil
}

// CreateProject inserts a project explicitly and fails on a duplicate id.
func (r *SQLiteRepository) CreateProject(ctx context.Context, p core.Project) error {
	if err := p.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO projects (oracle_id, name, sold_hours, start_date, end_date, type)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.OracleID, p.Name, p.SoldHours.String(),
		p.StartDate.Format(dateLayout), p.EndDate.Format(dateLayout), string(p.Type))
	if err != nil {
		return fmt.Errorf("create project %d: %w", p.OracleID, err)
	}
	return nil
}

func (r *SQLiteRepository) GetProject(ctx context.Context, oracleID int64) (core.Project, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT oracle_id, name, sold_hours, start_date, end_date, type, project_group_id
		FROM projects WHERE oracle_id = ?`, oracleID)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Project{}, fmt.Errorf("project %d: %w", oracleID, ErrNotFound)
	}
	return p, err
}

func (r *SQLiteRepository) ListProjects(ctx context.Context) ([]core.Project, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT oracle_id, name, sold_hours, start_date, end_date, type, project_group_id
		FROM projects ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []core.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// ListProjectsByGroup returns the member projects of a group.
func (r *SQLiteRepository) ListProjectsByGroup(ctx context.Context, groupID int64) ([]core.Project, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT oracle_id, name, sold_hours, start_date, end_date, type, project_group_id
		FROM projects WHERE project_group_id = ? ORDER BY name`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list projects by group: %w", err)
	}
	defer rows.Close()

	var projects []core.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// UpdateProject rewrites the correctable fields of a project, typically to
// replace placeholder defaults after an import.
func (r *SQLiteRepository) UpdateProject(ctx context.Context, p core.Project) error {
	if err := p.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE projects
		SET name = ?, sold_hours = ?, start_date = ?, end_date = ?, type = ?,
		    project_group_id = ?, updated_at = datetime('now')
		WHERE oracle_id = ?`,
		p.Name, p.SoldHours.String(),
		p.StartDate.Format(dateLayout), p.EndDate.Format(dateLayout),
		string(p.Type), p.GroupID, p.OracleID)
	if err != nil {
		return fmt.Errorf("update project %d: %w", p.OracleID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("project %d: %w", p.OracleID, ErrNotFound)
	}
	return nil
}

// DeleteProject removes the project and, through the schema's cascade rules,
// its milestones, expenditure items and timecard items.
func (r *SQLiteRepository) DeleteProject(ctx context.Context, oracleID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE oracle_id = ?`, oracleID)
	if err != nil {
		return fmt.Errorf("delete project %d: %w", oracleID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("project %d: %w", oracleID, ErrNotFound)
	}
	slog.InfoContext(ctx, "deleted project with dependents", "oracle_id", oracleID)
	return nil
}

//
// project groups
//

func (r *SQLiteRepository) CreateProjectGroup(ctx context.Context, name string) (core.ProjectGroup, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO project_groups (name) VALUES (?)`, name)
	if err != nil {
		return core.ProjectGroup{}, fmt.Errorf("create project group: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.ProjectGroup{}, fmt.Errorf("last insert id: %w", err)
	}
	return core.ProjectGroup{ID: id, Name: name}, nil
}

func (r *SQLiteRepository) ListProjectGroups(ctx context.Context) ([]core.ProjectGroup, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM project_groups ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list project groups: %w", err)
	}
	defer rows.Close()

	var groups []core.ProjectGroup
	for rows.Next() {
		var g core.ProjectGroup
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, fmt.Errorf("scan project group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// DeleteProjectGroup removes the group; member projects are detached, not
// deleted.
func (r *SQLiteRepository) DeleteProjectGroup(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM project_groups WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete project group %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("project group %d: %w", id, ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) AssignProjectToGroup(ctx context.Context, oracleID int64, groupID *int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE projects SET project_group_id = ?, updated_at = datetime('now')
		WHERE oracle_id = ?`, groupID, oracleID)
	if err != nil {
		return fmt.Errorf("assign project %d to group: %w", oracleID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("project %d: %w", oracleID, ErrNotFound)
	}
	return nil
}

//
// milestones
//

// GetOrCreateMilestone implements the importer's atomic get-or-create over
// the (project, task) unique constraint.
func (r *SQLiteRepository) GetOrCreateMilestone(ctx context.Context, m core.Milestone) (core.Milestone, bool, error) {
	if err := m.Validate(); err != nil {
		return core.Milestone{}, false, err
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO milestones (project_id, task, name, cost_per_hour, sold_hours)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(project_id, task) DO NOTHING`,
		m.ProjectID, m.Task, string(m.Name), m.CostPerHour.String(), m.SoldHours.String())
	if err != nil {
		return core.Milestone{}, false, fmt.Errorf("insert milestone: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.Milestone{}, false, fmt.Errorf("rows affected: %w", err)
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT id, project_id, task, name, cost_per_hour, sold_hours
		FROM milestones WHERE project_id = ? AND task = ?`, m.ProjectID, m.Task)
	stored, err := scanMilestone(row)
	if err != nil {
		return core.Milestone{}, false, err
	}
	return stored, n > 0, nil
}

func (r *SQLiteRepository) ListMilestones(ctx context.Context, projectID int64) ([]core.Milestone, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, task, name, cost_per_hour, sold_hours
		FROM milestones WHERE project_id = ? ORDER BY task`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list milestones: %w", err)
	}
	defer rows.Close()

	var milestones []core.Milestone
	for rows.Next() {
		m, err := scanMilestone(rows)
		if err != nil {
			return nil, err
		}
		milestones = append(milestones, m)
	}
	return milestones, rows.Err()
}

// UpdateMilestone rewrites a milestone's budget fields.
func (r *SQLiteRepository) UpdateMilestone(ctx context.Context, m core.Milestone) error {
	if err := m.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE milestones SET task = ?, name = ?, cost_per_hour = ?, sold_hours = ?
		WHERE id = ?`,
		m.Task, string(m.Name), m.CostPerHour.String(), m.SoldHours.String(), m.ID)
	if err != nil {
		return fmt.Errorf("update milestone %d: %w", m.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("milestone %d: %w", m.ID, ErrNotFound)
	}
	return nil
}

//
// record inserts (importer dedup)
//

// InsertExpenditureItem inserts unless the trans id exists. INSERT OR IGNORE
// makes check-and-insert one atomic statement.
func (r *SQLiteRepository) InsertExpenditureItem(ctx context.Context, item core.ExpenditureItem) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO expenditure_items (
			trans_id, project_id, task, expnd_type, item_date, employee_supplier,
			quantity, uom, proj_func_burdened_cost, project_burdened_cost,
			accrued_revenue, bill_amount, comment
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.TransID, item.ProjectID, item.Task, item.ExpndType,
		item.ItemDate.Format(dateLayout), item.EmployeeSupplier,
		item.Quantity.String(), item.UOM,
		item.ProjFuncBurdenedCost.String(), item.ProjectBurdenedCost.String(),
		item.AccruedRevenue.String(), item.BillAmount.String(), item.Comment)
	if err != nil {
		return false, fmt.Errorf("insert expenditure item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// InsertTimecardItem inserts unless the timecard id exists.
func (r *SQLiteRepository) InsertTimecardItem(ctx context.Context, item core.TimecardItem) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO timecard_items (
			timecard_id, project_id, milestone_id, start_date, name,
			total_hours, deliver_location, team, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.TimecardID, item.ProjectID, item.MilestoneID,
		item.StartDate.Format(dateLayout), item.Name,
		item.TotalHours.String(), item.DeliverLocation, item.Team, item.Notes)
	if err != nil {
		return false, fmt.Errorf("insert timecard item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

//
// record queries (aggregation inputs)
//

// ExpenditureFilter scopes an expenditure query. Zero values mean no filter.
type ExpenditureFilter struct {
	ProjectID int64
	OnlyHours bool
	Year      int
	Month     time.Month
}

func (r *SQLiteRepository) ListExpenditureItems(ctx context.Context, f ExpenditureFilter) ([]core.ExpenditureItem, error) {
	query := `
		SELECT trans_id, project_id, task, expnd_type, item_date, employee_supplier,
		       quantity, uom, proj_func_burdened_cost, project_burdened_cost,
		       accrued_revenue, bill_amount, comment
		FROM expenditure_items WHERE 1=1`
	var args []any
	if f.ProjectID != 0 {
		query += " AND project_id = ?"
		args = append(args, f.ProjectID)
	}
	if f.OnlyHours {
		query += " AND uom = ?"
		args = append(args, core.UOMHours)
	}
	if f.Year != 0 {
		query += " AND strftime('%Y-%m', item_date) = ?"
		args = append(args, fmt.Sprintf("%04d-%02d", f.Year, f.Month))
	}
	query += " ORDER BY item_date, trans_id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenditure items: %w", err)
	}
	defer rows.Close()

	var items []core.ExpenditureItem
	for rows.Next() {
		item, err := scanExpenditureItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// TimecardFilter scopes a timecard query. Zero values mean no filter; GroupID
// selects every project in the group.
type TimecardFilter struct {
	ProjectID int64
	GroupID   int64
	Year      int
	Month     time.Month
}

func (r *SQLiteRepository) ListTimecardItems(ctx context.Context, f TimecardFilter) ([]core.TimecardItem, error) {
	query := `
		SELECT timecard_id, project_id, milestone_id, start_date, name,
		       total_hours, deliver_location, team, notes
		FROM timecard_items WHERE 1=1`
	var args []any
	if f.ProjectID != 0 {
		query += " AND project_id = ?"
		args = append(args, f.ProjectID)
	}
	if f.GroupID != 0 {
		query += " AND project_id IN (SELECT oracle_id FROM projects WHERE project_group_id = ?)"
		args = append(args, f.GroupID)
	}
	if f.Year != 0 {
		query += " AND strftime('%Y-%m', start_date) = ?"
		args = append(args, fmt.Sprintf("%04d-%02d", f.Year, f.Month))
	}
	query += " ORDER BY start_date, timecard_id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list timecard items: %w", err)
	}
	defer rows.Close()

	var items []core.TimecardItem
	for rows.Next() {
		item, err := scanTimecardItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

//
// scan helpers
//

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(s scanner) (core.Project, error) {
	var (
		p                       core.Project
		sold, start, end, ptype string
		groupID                 sql.NullInt64
	)
	if err := s.Scan(&p.OracleID, &p.Name, &sold, &start, &end, &ptype, &groupID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Project{}, err
		}
		return core.Project{}, fmt.Errorf("scan project: %w", err)
	}
	var err error
	if p.SoldHours, err = decimal.NewFromString(sold); err != nil {
		return core.Project{}, fmt.Errorf("parse sold hours %q: %w", sold, err)
	}
	if p.StartDate, err = time.Parse(dateLayout, start); err != nil {
		return core.Project{}, fmt.Errorf("parse start date %q: %w", start, err)
	}
	if p.EndDate, err = time.Parse(dateLayout, end); err != nil {
		return core.Project{}, fmt.Errorf("parse end date %q: %w", end, err)
	}
	p.Type = core.ProjectType(ptype)
	if groupID.Valid {
		p.GroupID = &groupID.Int64
	}
	return p, nil
}

func scanMilestone(s scanner) (core.Milestone, error) {
	var (
		m          core.Milestone
		name       string
		cost, sold string
	)
	if err := s.Scan(&m.ID, &m.ProjectID, &m.Task, &name, &cost, &sold); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Milestone{}, fmt.Errorf("milestone: %w", ErrNotFound)
		}
		return core.Milestone{}, fmt.Errorf("scan milestone: %w", err)
	}
	m.Name = core.TaskType(name)
	var err error
	if m.CostPerHour, err = decimal.NewFromString(cost); err != nil {
		return core.Milestone{}, fmt.Errorf("parse cost per hour %q: %w", cost, err)
	}
	if m.SoldHours, err = decimal.NewFromString(sold); err != nil {
		return core.Milestone{}, fmt.Errorf("parse sold hours %q: %w", sold, err)
	}
	return m, nil
}

func scanExpenditureItem(s scanner) (core.ExpenditureItem, error) {
	var (
		item                   core.ExpenditureItem
		itemDate               string
		qty, pfbc, pbc, ar, ba string
	)
	if err := s.Scan(&item.TransID, &item.ProjectID, &item.Task, &item.ExpndType,
		&itemDate, &item.EmployeeSupplier, &qty, &item.UOM,
		&pfbc, &pbc, &ar, &ba, &item.Comment); err != nil {
		return core.ExpenditureItem{}, fmt.Errorf("scan expenditure item: %w", err)
	}
	var err error
	if item.ItemDate, err = time.Parse(dateLayout, itemDate); err != nil {
		return core.ExpenditureItem{}, fmt.Errorf("parse item date %q: %w", itemDate, err)
	}
	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&item.Quantity, qty},
		{&item.ProjFuncBurdenedCost, pfbc},
		{&item.ProjectBurdenedCost, pbc},
		{&item.AccruedRevenue, ar},
		{&item.BillAmount, ba},
	} {
		if *f.dst, err = decimal.NewFromString(f.src); err != nil {
			return core.ExpenditureItem{}, fmt.Errorf("parse decimal %q: %w", f.src, err)
		}
	}
	return item, nil
}

func scanTimecardItem(s scanner) (core.TimecardItem, error) {
	var (
		item      core.TimecardItem
		startDate string
		hoursStr  string
	)
	if err := s.Scan(&item.TimecardID, &item.ProjectID, &item.MilestoneID,
		&startDate, &item.Name, &hoursStr, &item.DeliverLocation,
		&item.Team, &item.Notes); err != nil {
		return core.TimecardItem{}, fmt.Errorf("scan timecard item: %w", err)
	}
	var err error
	if item.StartDate, err = time.Parse(dateLayout, startDate); err != nil {
		return core.TimecardItem{}, fmt.Errorf("parse start date %q: %w", startDate, err)
	}
	if item.TotalHours, err = decimal.NewFromString(hoursStr); err != nil {
		return core.TimecardItem{}, fmt.Errorf("parse total hours %q: %w", hoursStr, err)
	}
	return item, nil
}
