package providers

import (
	"github.com/lingkodlabs/lingkod/internal/config"
	"github.com/lingkodlabs/lingkod/internal/providers/pdf"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	fx.Provide(func(cfg config.Config) pdf.Provider {
		return pdf.New(cfg.BarangayName, cfg.CityProvince)
	}),
)
