package migration

import (
	attachmentdomain "github.com/lingkodlabs/lingkod/internal/attachment/domain"
	certdomain "github.com/lingkodlabs/lingkod/internal/certificate/domain"
	certtemplatedomain "github.com/lingkodlabs/lingkod/internal/certtemplate/domain"
	"github.com/lingkodlabs/lingkod/internal/config"
	doctypedomain "github.com/lingkodlabs/lingkod/internal/doctype/domain"
	officialdomain "github.com/lingkodlabs/lingkod/internal/official/domain"
	residentdomain "github.com/lingkodlabs/lingkod/internal/resident/domain"
	"github.com/lingkodlabs/lingkod/internal/seed"
	sequencedomain "github.com/lingkodlabs/lingkod/internal/sequence/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// sqlite and mysql deployments are schema-managed by gorm. The
			// uniqueness invariants (control_number, one artifact per type
			// per request, natural keys) come from the model index tags, so
			// this path enforces the same constraints as the SQL migrations.
			if err := conn.AutoMigrate(
				&doctypedomain.DocumentType{},
				&residentdomain.Resident{},
				&officialdomain.Official{},
				&certdomain.StatusRecord{},
				&certtemplatedomain.Template{},
				&certdomain.Request{},
				&attachmentdomain.Attachment{},
				&sequencedomain.ControlNumberCounter{},
			); err != nil {
				return err
			}
		}

		if err := seed.EnsureStatusVocabulary(conn); err != nil {
			return err
		}
		return seed.EnsureDefaultDocumentTypes(conn)
	}),
)
