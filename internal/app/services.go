package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"dawnlamp/internal/ble"
	"dawnlamp/internal/clock"
	"dawnlamp/internal/config"
	"dawnlamp/internal/curve"
	"dawnlamp/internal/db"
	"dawnlamp/internal/device"
	"dawnlamp/internal/journal"
	"dawnlamp/internal/settings"
	"dawnlamp/internal/status"
	"dawnlamp/internal/telemetry"
)

// Services holds the wired service set. Construction resolves every
// dependency; Start only launches the goroutines.
type Services struct {
	cfg    *config.Config
	BootID string

	DB      *db.DB
	Journal *journal.Journal
	Clock   *clock.Clock

	Hardware device.Hardware

	Stack        ble.Stack
	Session      *ble.Session
	Curve        curve.Curve
	Telemetry    telemetry.Publisher
	Orchestrator *device.Orchestrator
	Status       *status.Server

	wg sync.WaitGroup
}

// NewServices builds every service in dependency order.
func NewServices(cfg *config.Config) (*Services, error) {
	s := &Services{cfg: cfg, BootID: uuid.NewString()}

	database, err := db.Open(cfg.DB.Path)
	if err != nil {
		return nil, err
	}
	s.DB = database

	s.Journal = journal.New(database.DB, s.BootID)
	s.Clock = clock.New()

	s.Hardware, err = openHardware(cfg.Hardware)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.Curve = curve.LoadOrBuiltin(context.Background(), cfg.Curve.Script)

	s.Telemetry = telemetry.Publisher(telemetry.Nop{})
	if cfg.Telemetry.Broker != "" {
		pub, err := telemetry.NewRealPublisher(
			cfg.Telemetry.Broker,
			cfg.Telemetry.DeviceID,
			"dawnlampd-"+s.BootID,
			cfg.Telemetry.Timeout.Duration(),
		)
		if err != nil {
			// Telemetry is best-effort; a dead broker must not stop the lamp.
			log.Warn().Err(err).Msg("telemetry disabled, broker unreachable")
		} else {
			s.Telemetry = pub
		}
	}

	store := settings.NewSQLiteStore(database.DB)
	s.Orchestrator, err = device.New(
		device.Config{
			PollInterval:   cfg.Device.PollInterval.Duration(),
			ShowTimeWindow: cfg.Device.ShowTimeWindow.Duration(),
			BootID:         s.BootID,
		},
		s.Clock,
		store,
		s.Hardware,
		s.Curve,
		s.Telemetry,
		s.Journal,
	)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.Stack, err = ble.NewStack()
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Session = ble.NewSession(s.Stack, s.Orchestrator, ble.Config{
		DeviceName:          cfg.BLE.DeviceName,
		RetryDisconnect:     cfg.BLE.RetryDisconnect.Duration(),
		RetryStop:           cfg.BLE.RetryStop.Duration(),
		RetryStart:          cfg.BLE.RetryStart.Duration(),
		SelfHealTick:        cfg.BLE.SelfHealTick.Duration(),
		BatteryNotifyPeriod: cfg.BLE.BatteryNotifyPeriod.Duration(),
	})
	s.Orchestrator.AttachSession(s.Session)

	if cfg.Status.Listen != "" {
		s.Status = status.NewServer(cfg.Status.Listen, s.Orchestrator, s.Session, s.Journal)
	}

	return s, nil
}

// Start launches the background services.
func (s *Services) Start(ctx context.Context) error {
	retention := time.Duration(s.cfg.Journal.RetentionDays) * 24 * time.Hour
	if purged, err := s.Journal.DeleteOlderThan(retention); err != nil {
		log.Warn().Err(err).Msg("journal purge failed")
	} else if purged > 0 {
		log.Info().Int64("entries", purged).Msg("journal purged")
	}

	s.run(func() error { return s.Session.Run(ctx) }, "ble session")
	s.run(func() error { return s.Orchestrator.Run(ctx) }, "device loop")
	if s.Status != nil {
		s.run(func() error { return s.Status.Run(ctx, s.cfg.ShutdownTimeout.Duration()) }, "status server")
	}

	s.Session.RequestAdvertising()
	return nil
}

func (s *Services) run(fn func() error, name string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := fn(); err != nil {
			log.Error().Err(err).Str("service", name).Msg("service exited with error")
		}
	}()
}

// Stop waits for the service goroutines, then releases resources.
// Start's context must already be cancelled.
func (s *Services) Stop() error {
	s.wg.Wait()
	s.Close()
	return nil
}

// Close releases resources in reverse construction order. Safe on a
// partially constructed set.
func (s *Services) Close() {
	if s.Telemetry != nil {
		if err := s.Telemetry.Close(); err != nil {
			log.Warn().Err(err).Msg("telemetry close failed")
		}
	}
	if s.Curve != nil {
		curve.Close(s.Curve)
	}
	closeHardware(s.Hardware)
	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			log.Warn().Err(err).Msg("database close failed")
		}
	}
}

func closeHardware(h device.Hardware) {
	if h.Button != nil {
		if err := h.Button.Close(); err != nil {
			log.Warn().Err(err).Msg("button close failed")
		}
	}
	if h.Battery != nil {
		if err := h.Battery.Close(); err != nil {
			log.Warn().Err(err).Msg("battery close failed")
		}
	}
	if h.Light != nil {
		if err := h.Light.Close(); err != nil {
			log.Warn().Err(err).Msg("light close failed")
		}
	}
	if h.Display != nil {
		if err := h.Display.Close(); err != nil {
			log.Warn().Err(err).Msg("display close failed")
		}
	}
}
