package usecase

import (
	"errors"

	"faqbot/internal/dataset"
	"faqbot/internal/notify"
)

// DataSource exposes the dataset store's admin operations.
// *dataset.Store satisfies it.
type DataSource interface {
	Snapshot() *dataset.Snapshot
	Reload() (*dataset.Snapshot, error)
	Status() dataset.Status
}

// DataSourceService serves the admin surface: data-source status,
// manual refresh, and per-category counts.
type DataSourceService struct {
	source   DataSource
	notifier notify.Notifier
}

// NewDataSourceService wires the admin surface.
func NewDataSourceService(source DataSource, notifier notify.Notifier) (*DataSourceService, error) {
	if source == nil {
		return nil, errors.New("usecase: data source must not be nil")
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &DataSourceService{source: source, notifier: notifier}, nil
}

// Status reports the loaded data source.
func (s *DataSourceService) Status() dataset.Status {
	return s.source.Status()
}

// Refresh re-reads the data file. On failure the previous snapshot
// keeps serving and the failure is raised as an alert.
func (s *DataSourceService) Refresh() (dataset.Status, error) {
	status := s.source.Status()
	snap, err := s.source.Reload()
	if err != nil {
		s.notifier.Notify(notify.DatasetEvent{Path: status.Path, Err: err})
		return dataset.Status{}, newError(ErrorDataset, "dataset_reload_error", err)
	}
	s.notifier.Notify(notify.DatasetEvent{Path: status.Path, Entries: snap.Len()})
	return s.source.Status(), nil
}

// CategorySummary reports per-category entry counts.
func (s *DataSourceService) CategorySummary() map[string]dataset.CategoryStats {
	return s.source.Snapshot().Summary()
}
