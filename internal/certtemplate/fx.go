package certtemplate

import (
	"github.com/lingkodlabs/lingkod/internal/certtemplate/repository"
	"github.com/lingkodlabs/lingkod/internal/certtemplate/service"
	"go.uber.org/fx"
)

var Module = fx.Module("certtemplate.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
