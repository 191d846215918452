package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// IssuancePolicy carries the tunable issuance knobs that operators may change
// without a redeploy. The partition-key choice intentionally stays here: the
// observed behavior shares one counter across document types per month, and
// whether that is intended is an open stakeholder question.
type IssuancePolicy struct {
	// PerDocumentType switches the control-number partition key from
	// "YYYY-MM" to "TYPE:YYYY-MM".
	PerDocumentType bool `mapstructure:"perDocumentType"`

	// RequireAttachmentOnRelease refuses Release for requests whose
	// generated artifact is missing. Off by default to keep the
	// manual/offline issuance path working.
	RequireAttachmentOnRelease bool `mapstructure:"requireAttachmentOnRelease"`

	// ConversionTimeoutSeconds bounds a single converter invocation.
	ConversionTimeoutSeconds int `mapstructure:"conversionTimeoutSeconds"`

	// ConverterWarmupSeconds is the grace period after spawning the
	// converter daemon before it is checked for liveness.
	ConverterWarmupSeconds int `mapstructure:"converterWarmupSeconds"`
}

func DefaultIssuancePolicy() IssuancePolicy {
	return IssuancePolicy{
		PerDocumentType:            false,
		RequireAttachmentOnRelease: false,
		ConversionTimeoutSeconds:   45,
		ConverterWarmupSeconds:     3,
	}
}

func (p IssuancePolicy) ConversionTimeout() time.Duration {
	return time.Duration(p.ConversionTimeoutSeconds) * time.Second
}

func (p IssuancePolicy) ConverterWarmup() time.Duration {
	return time.Duration(p.ConverterWarmupSeconds) * time.Second
}

// IssuancePolicyHolder exposes the current policy and hot-reloads it when the
// backing file changes. Readers always see a complete, validated snapshot.
type IssuancePolicyHolder struct {
	current atomic.Value // holds IssuancePolicy
}

func NewIssuancePolicyHolder() (*IssuancePolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("issuance")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/lingkod")
	v.AddConfigPath(".")

	v.SetEnvPrefix("LINGKOD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultIssuancePolicy()
	v.SetDefault("issuance.perDocumentType", defaults.PerDocumentType)
	v.SetDefault("issuance.requireAttachmentOnRelease", defaults.RequireAttachmentOnRelease)
	v.SetDefault("issuance.conversionTimeoutSeconds", defaults.ConversionTimeoutSeconds)
	v.SetDefault("issuance.converterWarmupSeconds", defaults.ConverterWarmupSeconds)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var policy IssuancePolicy
	if err := v.UnmarshalKey("issuance", &policy); err != nil {
		return nil, err
	}
	if err := validateIssuancePolicy(policy); err != nil {
		return nil, err
	}

	holder := &IssuancePolicyHolder{}
	holder.current.Store(policy)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated IssuancePolicy
		if err := v.UnmarshalKey("issuance", &updated); err != nil {
			log.Printf("[issuance-policy] reload failed: %v", err)
			return
		}
		if err := validateIssuancePolicy(updated); err != nil {
			log.Printf("[issuance-policy] invalid policy ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[issuance-policy] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticIssuancePolicyHolder returns a holder pinned to one policy, with
// no file watching. Used by tests and embedded tooling.
func NewStaticIssuancePolicyHolder(policy IssuancePolicy) *IssuancePolicyHolder {
	holder := &IssuancePolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func (h *IssuancePolicyHolder) Get() IssuancePolicy {
	return h.current.Load().(IssuancePolicy)
}

func validateIssuancePolicy(p IssuancePolicy) error {
	if p.ConversionTimeoutSeconds <= 0 {
		return errors.New("issuance.conversionTimeoutSeconds must be positive")
	}
	if p.ConverterWarmupSeconds < 0 {
		return errors.New("issuance.converterWarmupSeconds cannot be negative")
	}
	return nil
}
