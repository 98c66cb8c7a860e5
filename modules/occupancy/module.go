package occupancy

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/audit"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/infrastructure/persistence"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/presentation/controllers"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/services"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/pkg/application"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/pkg/configuration"
)

type ModuleOptions struct {
	// Repository overrides the Postgres store built from the application pool.
	Repository     services.Repository
	ServiceOptions []services.Option
}

func NewModule(opts *ModuleOptions) application.Module {
	if opts == nil {
		opts = &ModuleOptions{}
	}
	return &Module{options: opts}
}

type Module struct {
	options *ModuleOptions
}

func (m *Module) Register(app application.Application) error {
	repo := m.options.Repository
	if repo == nil {
		pool := app.DB()
		if pool == nil {
			return errors.New("no repository configured and no database pool available")
		}
		repo = persistence.NewPostgresRepository(pool)
	}

	bus := app.EventPublisher()
	logger := app.Logger()
	bus.Subscribe(func(e audit.Entry) {
		logger.WithFields(logrus.Fields{
			"audit-id":  e.ID,
			"operation": string(e.Operation),
			"target":    string(e.Target),
		}).Info(e.Description)
	})

	opts := append([]services.Option{services.WithEventBus(bus)}, m.options.ServiceOptions...)
	app.RegisterServices(
		services.NewOccupancyService(repo, opts...),
	)
	app.RegisterControllers(
		controllers.NewOccupancyAPIController(app),
	)
	return nil
}

func (m *Module) Name() string {
	return "occupancy"
}

// ServiceOptions translates the occupancy section of the configuration.
func ServiceOptions(conf *configuration.Configuration) ([]services.Option, error) {
	policy, err := services.ParseConflictPolicy(conf.Occupancy.ConflictPolicy)
	if err != nil {
		return nil, err
	}
	return []services.Option{
		services.WithConflictPolicy(policy),
		services.WithMaxBatchSize(conf.Occupancy.MaxBatchSize),
		services.WithAuditPaging(conf.Occupancy.AuditPageSize, conf.Occupancy.AuditMaxPageSize),
	}, nil
}
