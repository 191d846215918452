package official

import (
	"github.com/lingkodlabs/lingkod/internal/official/repository"
	"github.com/lingkodlabs/lingkod/internal/official/service"
	"go.uber.org/fx"
)

var Module = fx.Module("official.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
