package app

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/otpgate/internal/identity"
	"github.com/shandysiswandi/otpgate/internal/notification"
	"github.com/shandysiswandi/otpgate/internal/notification/inbound"
)

// initModules starts notification first so identity can deliver through it
// in direct mode.
func (a *App) initModules() {
	var gateway *inbound.Gateway
	if a.config.GetBool("modules.notification.enabled") {
		gw, err := notification.New(notification.Dependency{
			Ctx:         a.ctx,
			DBConn:      a.dbConn,
			Messaging:   a.messaging,
			Idempotency: a.idemp,
			Config:      a.config,
			Instrument:  a.ins,
			UUID:        a.uuid,
			Clock:       a.clock,
			Goroutine:   a.goroutine,
			Validator:   a.validator,
			Mail:        a.mail,
			SMS:         a.sms,
		})
		if err != nil {
			slog.Error("failed to init module notification", "error", err)
			os.Exit(1)
		}
		gateway = gw
	}

	if a.config.GetBool("modules.identity.enabled") {
		dep := identity.Dependency{
			Ctx:         a.ctx,
			DBConn:      a.dbConn,
			CacheConn:   a.cacheConn,
			Goroutine:   a.goroutine,
			Enforcer:    a.casbin,
			Router:      a.router,
			Limiter:     a.limiter,
			Idempotency: a.idemp,
			Messaging:   a.messaging,
			Config:      a.config,
			Instrument:  a.ins,
			UID:         a.uid,
			UUID:        a.uuid,
			HMAC:        a.hmac,
			Password:    a.password,
			Clock:       a.clock,
			Validator:   a.validator,
			JWT:         a.jwt,
		}
		// a typed nil would pass the nil check inside identity
		if gateway != nil {
			dep.Notification = gateway
		}

		if err := identity.New(dep); err != nil {
			slog.Error("failed to init module identity", "error", err)
			os.Exit(1)
		}
	}
}
