package ble

import (
	"bytes"
	"strings"
	"testing"
)

func TestAdvertisingData(t *testing.T) {
	tests := []struct {
		name     string
		services []uint16
		want     []byte
	}{
		{
			name: "flags_only",
			want: []byte{0x02, 0x01, 0x06},
		},
		{
			name:     "single_service",
			services: []uint16{0xFF10},
			want:     []byte{0x02, 0x01, 0x06, 0x03, 0x03, 0x10, 0xFF},
		},
		{
			name:     "two_services",
			services: []uint16{0xFF10, 0x180F},
			want:     []byte{0x02, 0x01, 0x06, 0x05, 0x03, 0x10, 0xFF, 0x0F, 0x18},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AdvertisingData(tt.services...)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("AdvertisingData(%v) = % X, want % X", tt.services, got, tt.want)
			}
			if len(got) > maxAdvLen {
				t.Errorf("block length %d exceeds %d", len(got), maxAdvLen)
			}
		})
	}
}

func TestScanResponse(t *testing.T) {
	t.Run("complete_name", func(t *testing.T) {
		got := ScanResponse("dawnlamp")
		want := append([]byte{0x09, adTypeCompleteName}, "dawnlamp"...)
		if !bytes.Equal(got, want) {
			t.Errorf("ScanResponse = % X, want % X", got, want)
		}
	})

	t.Run("widest_complete_name", func(t *testing.T) {
		name := strings.Repeat("x", maxAdvLen-2)
		got := ScanResponse(name)
		if len(got) != maxAdvLen {
			t.Fatalf("block length = %d, want %d", len(got), maxAdvLen)
		}
		if got[1] != adTypeCompleteName {
			t.Errorf("ad type = %#x, want complete name", got[1])
		}
	})

	t.Run("truncated_to_shortened_name", func(t *testing.T) {
		got := ScanResponse(strings.Repeat("y", 40))
		if len(got) != maxAdvLen {
			t.Fatalf("block length = %d, want %d", len(got), maxAdvLen)
		}
		if got[1] != adTypeShortenedName {
			t.Errorf("ad type = %#x, want shortened name", got[1])
		}
		if want := strings.Repeat("y", maxAdvLen-2); string(got[2:]) != want {
			t.Errorf("name body = %q, want %q", got[2:], want)
		}
	})
}

func TestParseAdvertisingData(t *testing.T) {
	t.Run("round_trip", func(t *testing.T) {
		services, err := ParseAdvertisingData(AdvertisingData(0xFF10, 0x180F))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(services) != 2 || services[0] != 0xFF10 || services[1] != 0x180F {
			t.Errorf("services = %#x, want [0xFF10 0x180F]", services)
		}
	})

	t.Run("no_service_list", func(t *testing.T) {
		services, err := ParseAdvertisingData(AdvertisingData())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(services) != 0 {
			t.Errorf("services = %#x, want none", services)
		}
	})

	t.Run("zero_length_structure", func(t *testing.T) {
		if _, err := ParseAdvertisingData([]byte{0x00}); err == nil {
			t.Error("expected error for zero-length structure")
		}
	})

	t.Run("truncated_structure", func(t *testing.T) {
		if _, err := ParseAdvertisingData([]byte{0x05, 0x03, 0x10}); err == nil {
			t.Error("expected error for truncated structure")
		}
	})

	t.Run("odd_uuid_list", func(t *testing.T) {
		if _, err := ParseAdvertisingData([]byte{0x02, 0x03, 0x10}); err == nil {
			t.Error("expected error for odd uuid list")
		}
	})
}

func TestParseScanResponse(t *testing.T) {
	t.Run("round_trip", func(t *testing.T) {
		name, err := ParseScanResponse(ScanResponse("dawnlamp"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if name != "dawnlamp" {
			t.Errorf("name = %q, want %q", name, "dawnlamp")
		}
	})

	t.Run("shortened_name", func(t *testing.T) {
		name, err := ParseScanResponse(ScanResponse(strings.Repeat("y", 40)))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if want := strings.Repeat("y", maxAdvLen-2); name != want {
			t.Errorf("name = %q, want %q", name, want)
		}
	})

	t.Run("name_after_other_structures", func(t *testing.T) {
		block := append(AdvertisingData(0xFF10), ScanResponse("lamp")...)
		name, err := ParseScanResponse(block)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if name != "lamp" {
			t.Errorf("name = %q, want %q", name, "lamp")
		}
	})

	t.Run("no_name", func(t *testing.T) {
		if _, err := ParseScanResponse(AdvertisingData(0xFF10)); err == nil {
			t.Error("expected error for block without a name")
		}
	})
}
