//go:build linux

package hw

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/warthog618/go-gpiocdev"
)

// RealBattery samples the battery through an IIO ADC behind a switched
// divider. The enable line is high only for the duration of one reading
// and is restored low on every path.
type RealBattery struct {
	cfg    BatteryConfig
	enable *gpiocdev.Line
}

func NewRealBattery(cfg BatteryConfig) (*RealBattery, error) {
	cfg = cfg.withDefaults()
	if cfg.RawPath == "" {
		return nil, fmt.Errorf("battery raw path not configured")
	}
	line, err := gpiocdev.RequestLine(cfg.Chip, cfg.EnableLine, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("request battery enable line %s:%d: %w", cfg.Chip, cfg.EnableLine, err)
	}
	return &RealBattery{cfg: cfg, enable: line}, nil
}

func (b *RealBattery) ReadPercent(ctx context.Context) (int, error) {
	if err := b.enable.SetValue(1); err != nil {
		return 0, fmt.Errorf("enable battery divider: %w", err)
	}
	defer func() {
		if err := b.enable.SetValue(0); err != nil {
			log.Warn().Err(err).Msg("failed to disable battery divider")
		}
	}()

	if err := sleepCtx(ctx, b.cfg.SettleTime); err != nil {
		return 0, err
	}

	sum := 0
	for i := 0; i < b.cfg.Samples; i++ {
		if i > 0 {
			if err := sleepCtx(ctx, b.cfg.SampleGap); err != nil {
				return 0, err
			}
		}
		raw, err := readRawAttr(b.cfg.RawPath)
		if err != nil {
			return 0, err
		}
		sum += raw
	}

	padMV := sum / b.cfg.Samples * b.cfg.VrefMillivolt / b.cfg.RawFull
	battMV := scaleDivider(padMV, b.cfg.DividerTop, b.cfg.DividerBottom)
	return percentFromMillivolt(battMV, b.cfg.EmptyMillivolt, b.cfg.FullMillivolt), nil
}

func (b *RealBattery) Close() error {
	_ = b.enable.SetValue(0)
	return b.enable.Close()
}

func readRawAttr(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read adc: %w", err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse adc value: %w", err)
	}
	return v, nil
}
