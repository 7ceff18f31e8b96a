package telemetry

import (
	"time"

	"github.com/estudiomd/backoffice/internal/infrastructure/config"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultSlowQueryThreshold = 200 * time.Millisecond

// GormPlugins returns the plugins to pass to the database constructor:
// otelgorm spans plus a slow query logger. Nothing is returned when database
// tracing is disabled.
func GormPlugins(cfg config.TelemetryConfig, driver string, logger *zap.Logger) []gorm.Plugin {
	if !cfg.Enabled || !cfg.DBTraceEnabled {
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(driver)}
	if !cfg.DBLogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}

	thresh := cfg.DBSlowQueryThresh
	if thresh <= 0 {
		thresh = defaultSlowQueryThreshold
	}
	return []gorm.Plugin{
		otelgorm.NewPlugin(opts...),
		&SlowQueryPlugin{threshold: thresh, logger: logger},
	}
}

// SlowQueryPlugin warns about statements slower than threshold
type SlowQueryPlugin struct {
	threshold time.Duration
	logger    *zap.Logger
}

// NewSlowQueryPlugin creates the plugin
func NewSlowQueryPlugin(threshold time.Duration, logger *zap.Logger) *SlowQueryPlugin {
	return &SlowQueryPlugin{threshold: threshold, logger: logger}
}

const startedAtKey = "backoffice:started_at"

func (p *SlowQueryPlugin) Name() string {
	return "backoffice:slow_query"
}

func (p *SlowQueryPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	for _, reg := range []struct {
		before, after func(name string, fn func(*gorm.DB)) error
	}{
		{cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	} {
		if err := reg.before("backoffice:slow_query_start", p.start); err != nil {
			return err
		}
		if err := reg.after("backoffice:slow_query_check", p.check); err != nil {
			return err
		}
	}
	return nil
}

func (p *SlowQueryPlugin) start(db *gorm.DB) {
	db.InstanceSet(startedAtKey, time.Now())
}

func (p *SlowQueryPlugin) check(db *gorm.DB) {
	v, ok := db.InstanceGet(startedAtKey)
	if !ok {
		return
	}
	started, ok := v.(time.Time)
	if !ok {
		return
	}
	if took := time.Since(started); took >= p.threshold {
		p.logger.Warn("Slow query",
			zap.String("table", db.Statement.Table),
			zap.Duration("duration", took),
			zap.Duration("threshold", p.threshold),
			zap.Int64("rows", db.Statement.RowsAffected),
		)
	}
}

var _ gorm.Plugin = (*SlowQueryPlugin)(nil)
