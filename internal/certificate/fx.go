package certificate

import (
	"context"
	"fmt"
	"strings"

	"github.com/lingkodlabs/lingkod/internal/certificate/domain"
	"github.com/lingkodlabs/lingkod/internal/certificate/repository"
	"github.com/lingkodlabs/lingkod/internal/certificate/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("certificate.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Invoke(validateStatusVocabulary),
)

// validateStatusVocabulary fails startup when the certificate_statuses seed
// does not cover the lifecycle. A request row referencing a missing status
// would otherwise surface much later as an opaque lookup error.
func validateStatusVocabulary(log *zap.Logger, db *gorm.DB, repo domain.Repository) error {
	names, err := repo.ListStatusNames(context.Background(), db)
	if err != nil {
		return fmt.Errorf("load certificate statuses: %w", err)
	}

	seen := make(map[domain.Status]bool, len(names))
	for _, name := range names {
		status, err := domain.ParseStatus(name)
		if err != nil {
			log.Warn("unknown certificate status in vocabulary", zap.String("name", name))
			continue
		}
		seen[status] = true
	}

	missing := make([]string, 0)
	for _, status := range domain.AllStatuses() {
		if !seen[status] {
			missing = append(missing, string(status))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("certificate status vocabulary incomplete, missing: %s", strings.Join(missing, ", "))
	}
	return nil
}
