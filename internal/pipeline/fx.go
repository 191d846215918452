package pipeline

import (
	certdomain "github.com/lingkodlabs/lingkod/internal/certificate/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("pipeline",
	fx.Provide(
		NewGenerator,
		func(g *Generator) certdomain.Generator { return g },
	),
)
