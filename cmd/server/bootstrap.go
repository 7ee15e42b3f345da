package main

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/rodetes-party/rodetes/internal/config"
	"github.com/rodetes-party/rodetes/internal/model"
	"github.com/rodetes-party/rodetes/internal/store"
	"github.com/rodetes-party/rodetes/internal/utils"
)

// bootstrapAdmin creates the ADMIN_EMAIL account on first start.  An
// existing account is left alone, password included.
func bootstrapAdmin(ctx context.Context, st store.Store, cfg config.Config, log logrus.FieldLogger) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}
	_, err := st.Users().GetByEmail(ctx, cfg.AdminEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	hash, err := utils.HashPassword(cfg.AdminPassword, cfg.BcryptCost)
	if err != nil {
		return err
	}
	id, err := st.Users().Create(ctx, cfg.AdminEmail, hash, model.RoleAdmin)
	if err != nil {
		return err
	}
	log.WithField("user_id", id).WithField("email", cfg.AdminEmail).Info("admin account created")
	return nil
}
