package telemetry

import (
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/gorm"
)

// RegisterDBTracing attaches the otelgorm plugin so every query becomes a
// child span of the calling operation. Query variables are excluded from
// span attributes; settlement rows carry customer data.
func RegisterDBTracing(db *gorm.DB, dbName string, enabled bool) error {
	if !enabled {
		return nil
	}

	plugin := otelgorm.NewPlugin(
		otelgorm.WithDBName(dbName),
		otelgorm.WithoutQueryVariables(),
	)
	return db.Use(plugin)
}
