package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	RoleResident = "role:resident"
	RoleStaff    = "role:staff"
	RoleCaptain  = "role:captain"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, accountID string, object string, action string) error {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject := fmt.Sprintf("account:%s", accountID)
	roleName, err := s.roleForAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if err := s.ensureGrouping(subject, roleName); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Warn("authorization denied",
			zap.String("account_id", accountID),
			zap.String("role", roleName),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) roleForAccount(ctx context.Context, accountID string) (string, error) {
	var official struct {
		Position string `gorm:"column:position"`
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT position
		 FROM officials
		 WHERE account_id = ? AND active = ?
		 LIMIT 1`,
		accountID,
		true,
	).Scan(&official).Error; err != nil {
		return "", err
	}
	if position := strings.TrimSpace(official.Position); position != "" {
		if strings.EqualFold(position, "Barangay Captain") {
			return RoleCaptain, nil
		}
		return RoleStaff, nil
	}

	var resident struct {
		Verified *bool `gorm:"column:verified"`
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT verified
		 FROM residents
		 WHERE account_id = ?
		 LIMIT 1`,
		accountID,
	).Scan(&resident).Error; err != nil {
		return "", err
	}
	if resident.Verified == nil {
		return "", ErrForbidden
	}
	return RoleResident, nil
}

func (s *ServiceImpl) ensureGrouping(subject string, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		{RoleResident, ObjectCertificate, ActionCertificateSubmit},
		{RoleResident, ObjectCertificate, ActionCertificateView},
		{RoleResident, ObjectAttachment, ActionAttachmentDownload},
		{RoleResident, ObjectDocumentType, ActionDocumentTypeView},

		{RoleStaff, ObjectCertificate, ActionCertificateView},
		{RoleStaff, ObjectCertificate, ActionCertificateViewAll},
		{RoleStaff, ObjectCertificate, ActionCertificateDecide},
		{RoleStaff, ObjectCertificate, ActionCertificateRelease},
		{RoleStaff, ObjectCertificate, ActionCertificateRegenerate},
		{RoleStaff, ObjectAttachment, ActionAttachmentDownload},
		{RoleStaff, ObjectTemplate, ActionTemplateView},
		{RoleStaff, ObjectDocumentType, ActionDocumentTypeView},

		{RoleCaptain, ObjectCertificate, ActionCertificateView},
		{RoleCaptain, ObjectCertificate, ActionCertificateViewAll},
		{RoleCaptain, ObjectCertificate, ActionCertificateDecide},
		{RoleCaptain, ObjectCertificate, ActionCertificateRelease},
		{RoleCaptain, ObjectCertificate, ActionCertificateRegenerate},
		{RoleCaptain, ObjectAttachment, ActionAttachmentDownload},
		{RoleCaptain, ObjectTemplate, ActionTemplateUpload},
		{RoleCaptain, ObjectTemplate, ActionTemplateView},
		{RoleCaptain, ObjectDocumentType, ActionDocumentTypeView},
	}

	for _, policy := range policies {
		if len(policy) < 3 {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
