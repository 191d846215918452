package attachment

import (
	"github.com/lingkodlabs/lingkod/internal/attachment/repository"
	"github.com/lingkodlabs/lingkod/internal/attachment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("attachment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
