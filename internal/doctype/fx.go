package doctype

import (
	"github.com/lingkodlabs/lingkod/internal/doctype/repository"
	"github.com/lingkodlabs/lingkod/internal/doctype/service"
	"go.uber.org/fx"
)

var Module = fx.Module("doctype.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
