package config

import "fmt"

// Validate checks cfg's fields are internally consistent, adapted from the
// teacher's ValidateConfig (config/validate.go).
func Validate(cfg Config) error {
	if cfg.ListenAddress == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if cfg.DataDir == "" {
		return fmt.Errorf("data directory must not be empty")
	}
	if cfg.RateLimit.WindowSeconds <= 0 {
		return fmt.Errorf("rate_limit: window_seconds must be positive")
	}
	if cfg.RateLimit.MaxRequests <= 0 {
		return fmt.Errorf("rate_limit: max_requests must be positive")
	}
	if cfg.Scheduler.BatchSize <= 0 {
		return fmt.Errorf("scheduler: batch_size must be positive")
	}
	if cfg.Scheduler.ProcessingCap <= 0 {
		return fmt.Errorf("scheduler: processing_cap must be positive")
	}
	if cfg.Scheduler.PeriodMillis <= 0 {
		return fmt.Errorf("scheduler: period_millis must be positive")
	}
	if len(cfg.SystemInit.AdminUsers) > 0 {
		if err := validateSystemInit(cfg.SystemInit); err != nil {
			return err
		}
	}
	return nil
}

func validateSystemInit(init SystemInit) error {
	for i, admin := range init.AdminUsers {
		if admin.Name == "" {
			return fmt.Errorf("system_init: admin user %d missing name", i)
		}
		if len(admin.Identities) == 0 {
			return fmt.Errorf("system_init: admin user %q has no identities", admin.Name)
		}
	}
	if len(init.DisasterRecoveryCommittee) > 0 {
		if init.DisasterRecoveryQuorum == 0 || int(init.DisasterRecoveryQuorum) > len(init.DisasterRecoveryCommittee) {
			return fmt.Errorf("system_init: disaster recovery quorum must be between 1 and the committee size")
		}
	}
	return nil
}
