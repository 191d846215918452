package sequence

import (
	"github.com/lingkodlabs/lingkod/internal/sequence/service"
	"go.uber.org/fx"
)

var Module = fx.Module("sequence.service",
	fx.Provide(service.NewService),
)
