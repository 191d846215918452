package resident

import (
	"github.com/lingkodlabs/lingkod/internal/resident/repository"
	"github.com/lingkodlabs/lingkod/internal/resident/service"
	"go.uber.org/fx"
)

var Module = fx.Module("resident.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
