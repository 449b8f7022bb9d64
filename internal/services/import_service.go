package services

import (
	"context"
	"fmt"
	"log/slog"

	"vmb/internal/amqp"
	"vmb/internal/importer"
	"vmb/internal/storage"
	"vmb/internal/tabular"
)

// ImportService orchestrates spreadsheet imports across SQLite and AMQP.
type ImportService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
	importer   *importer.Importer
}

func NewImportService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *ImportService {
	return &ImportService{
		storage:    storage,
		amqpClient: amqpClient,
		importer:   importer.New(storage),
	}
}

// ImportExpenditures runs an expenditure import and announces the result.
func (s *ImportService) ImportExpenditures(ctx context.Context, src tabular.Source) (importer.Result, error) {
	res, err := s.importer.ImportExpenditures(ctx, src)
	if err != nil {
		return res, fmt.Errorf("import expenditures: %w", err)
	}

	s.publishCompleted(ctx, amqp.KindExpenditures, res)
	return res, nil
}

// ImportTimecards runs a timecard import and announces the result.
func (s *ImportService) ImportTimecards(ctx context.Context, src tabular.Source) (importer.Result, error) {
	res, err := s.importer.ImportTimecards(ctx, src)
	if err != nil {
		return res, fmt.Errorf("import timecards: %w", err)
	}

	s.publishCompleted(ctx, amqp.KindTimecards, res)
	return res, nil
}

// publishCompleted is best effort: the records are already committed, so a
// missing broker must not fail the import.
func (s *ImportService) publishCompleted(ctx context.Context, kind string, res importer.Result) {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping import completed message", "kind", kind)
		return
	}

	msg := amqp.NewImportCompletedMessage(kind, res.FilesSeen, res.RecordsCreated, res.ProjectIDs)
	if err := s.amqpClient.PublishImportCompleted(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish import completed message",
			"kind", kind, "error", err)
	}
}

// Close closes both storage and AMQP connections.
func (s *ImportService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close import service: %v", errs)
	}

	return nil
}
