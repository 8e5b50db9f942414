package plot

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Filter narrows a plot listing. Zero-valued fields are ignored; the rest
// combine with logical AND.
type Filter struct {
	// Work matches the work field exactly.
	Work string
	// Status matches the status field exactly.
	Status string
	// Query is a case-insensitive substring match against title or summary.
	Query string
}

// Repository defines persistence operations for plots.
type Repository interface {
	List(ctx context.Context, filter Filter) ([]Plot, error)
	GetByID(ctx context.Context, id int64) (*Plot, error)
	Create(ctx context.Context, plot *Plot) error
	Save(ctx context.Context, plot *Plot) error
	Delete(ctx context.Context, plot *Plot) error
}

// GormRepository persists plots using a Gorm database connection.
type GormRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewRepository constructs a Gorm-backed repository implementation.
func NewRepository(db *gorm.DB, logger *logrus.Logger) (*GormRepository, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	return &GormRepository{db: db, logger: logger}, nil
}

var _ Repository = (*GormRepository)(nil)

type predicate struct {
	clause string
	args   []any
}

// List returns every plot matching the filter, ordered ascending by id.
// An empty result is a valid outcome, not an error.
func (r *GormRepository) List(ctx context.Context, filter Filter) ([]Plot, error) {
	predicates := make([]predicate, 0, 3)

	if filter.Work != "" {
		predicates = append(predicates, predicate{clause: "work = ?", args: []any{filter.Work}})
	}

	if filter.Status != "" {
		predicates = append(predicates, predicate{clause: "status = ?", args: []any{filter.Status}})
	}

	if filter.Query != "" {
		like := "%" + strings.ToLower(filter.Query) + "%"
		predicates = append(predicates, predicate{
			clause: "LOWER(title) LIKE ? OR LOWER(summary) LIKE ?",
			args:   []any{like, like},
		})
	}

	query := r.db.WithContext(ctx).Model(&Plot{})
	for _, p := range predicates {
		query = query.Where(p.clause, p.args...)
	}

	var plots []Plot
	if err := query.Order("id ASC").Find(&plots).Error; err != nil {
		r.logError(nil, err, "listing plots")
		return nil, eris.Wrap(err, "listing plots")
	}

	return plots, nil
}

// GetByID returns the plot for the provided id or nil when not found.
func (r *GormRepository) GetByID(ctx context.Context, id int64) (*Plot, error) {
	var plot Plot
	err := r.db.WithContext(ctx).First(&plot, "id = ?", id).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"plot_id": id}, err, "fetching plot by id")
		return nil, eris.Wrapf(err, "fetching plot by id: %d", id)
	}

	return &plot, nil
}

// Create inserts the plot, letting the store assign its id.
func (r *GormRepository) Create(ctx context.Context, plot *Plot) error {
	if plot == nil {
		return eris.New("plot is nil")
	}

	if err := r.db.WithContext(ctx).Create(plot).Error; err != nil {
		r.logError(logrus.Fields{"title": plot.Title}, err, "creating plot")
		return eris.Wrap(err, "creating plot")
	}

	return nil
}

// Save writes every column of an already-persisted plot.
func (r *GormRepository) Save(ctx context.Context, plot *Plot) error {
	if plot == nil {
		return eris.New("plot is nil")
	}
	if plot.ID == 0 {
		return eris.New("plot id is required")
	}

	if err := r.db.WithContext(ctx).Save(plot).Error; err != nil {
		r.logError(logrus.Fields{"plot_id": plot.ID}, err, "saving plot")
		return eris.Wrapf(err, "saving plot: %d", plot.ID)
	}

	return nil
}

// Delete removes the plot row permanently.
func (r *GormRepository) Delete(ctx context.Context, plot *Plot) error {
	if plot == nil {
		return eris.New("plot is nil")
	}
	if plot.ID == 0 {
		return eris.New("plot id is required")
	}

	if err := r.db.WithContext(ctx).Delete(plot).Error; err != nil {
		r.logError(logrus.Fields{"plot_id": plot.ID}, err, "deleting plot")
		return eris.Wrapf(err, "deleting plot: %d", plot.ID)
	}

	return nil
}

func (r *GormRepository) logError(fields logrus.Fields, err error, message string) {
	if r.logger == nil {
		return
	}

	entry := r.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}
