package plot

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Migrate ensures the plots table exists, creating it when absent. Existing
// tables are never dropped or altered destructively.
func Migrate(ctx context.Context, db *gorm.DB, logger *logrus.Logger) error {
	if db == nil {
		return eris.New("gorm DB is required")
	}

	logFields := logrus.Fields{"component": "plot.migrate"}
	if logger != nil {
		logger.WithFields(logFields).Info("applying plot schema")
	}

	if err := db.WithContext(ctx).AutoMigrate(&Plot{}); err != nil {
		if logger != nil {
			logger.WithFields(logFields).WithField("error", err.Error()).Error("plot schema migration failed")
		}
		return eris.Wrap(err, "auto migrating plot schema")
	}

	if logger != nil {
		logger.WithFields(logFields).Info("plot schema migration complete")
	}

	return nil
}
