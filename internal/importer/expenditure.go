package importer

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"vmb/internal/core"
	"vmb/internal/tabular"
)

// expenditureDateFormat matches the Oracle export, e.g. "05-Jan-2024".
const expenditureDateFormat = "02-Jan-2006"

// ImportExpenditures imports every table of the source. Rows whose trans id
// already exists are skipped silently; a date or key parse failure aborts the
// whole batch.
func (im *Importer) ImportExpenditures(ctx context.Context, src tabular.Source) (Result, error) {
	tables, err := src.Tables(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("read tables: %w", err)
	}

	res := Result{FilesSeen: countFiles(tables)}
	slog.DebugContext(ctx, "found files for expenditure import", "files", len(tables))

	for _, table := range tables {
		for i := 0; i < table.NumRows(); i++ {
			if err := im.importExpenditureRow(ctx, table.Row(i), &res); err != nil {
				return res, fmt.Errorf("%s row %d: %w", table.Name, i+1, err)
			}
		}
	}
	return res, nil
}

func (im *Importer) importExpenditureRow(ctx context.Context, row tabular.Row, res *Result) error {
	transID, err := strconv.ParseInt(row.Get("Trans Id"), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid trans id %q: %w", row.Get("Trans Id"), err)
	}

	oracleID, err := strconv.ParseInt(row.Get("Project"), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid project id %q: %w", row.Get("Project"), err)
	}
	project, created, err := im.resolveProject(ctx, oracleID, row.Get("Project"))
	if err != nil {
		return fmt.Errorf("resolve project %d: %w", oracleID, err)
	}
	if created {
		res.ProjectsCreated++
		slog.InfoContext(ctx, "created placeholder project", "oracle_id", oracleID)
	}
	res.touchProject(project.OracleID)

	itemDate, err := time.Parse(expenditureDateFormat, row.Get("Item Date"))
	if err != nil {
		return fmt.Errorf("parse item date %q: %w", row.Get("Item Date"), err)
	}

	item := core.ExpenditureItem{
		TransID:              transID,
		ProjectID:            project.OracleID,
		Task:                 row.Get("Task"),
		ExpndType:            row.Get("Expnd Type"),
		ItemDate:             itemDate,
		EmployeeSupplier:     row.Get("Employee/Supplier"),
		Quantity:             parseAmount(row.Get("Quantity")),
		UOM:                  row.Get("UOM"),
		ProjFuncBurdenedCost: parseAmount(row.Get("Proj Func Burdened Cost")),
		ProjectBurdenedCost:  parseAmount(row.Get("Project Burdened Cost")),
		AccruedRevenue:       parseAmount(row.Get("Accrued Revenue")),
		BillAmount:           parseAmount(row.Get("Bill Amount")),
		Comment:              row.Get("Comment"),
	}

	inserted, err := im.store.InsertExpenditureItem(ctx, item)
	if err != nil {
		return fmt.Errorf("insert trans id %d: %w", transID, err)
	}
	if !inserted {
		slog.DebugContext(ctx, "trans id already existing, skipping", "trans_id", transID)
		return nil
	}
	res.RecordsCreated++
	return nil
}
