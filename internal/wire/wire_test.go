package wire

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

func TestDecodeAlarm(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		want    Alarm
		wantErr error
	}{
		// === Exact five-digit ASCII ===
		{
			name:    "ascii5/enabled",
			payload: []byte("07301"),
			want:    Alarm{Hour: 7, Minute: 30, Enabled: true},
		},
		{
			name:    "ascii5/disabled",
			payload: []byte("23590"),
			want:    Alarm{Hour: 23, Minute: 59, Enabled: false},
		},
		{
			name:    "ascii5/midnight",
			payload: []byte("00001"),
			want:    Alarm{Hour: 0, Minute: 0, Enabled: true},
		},
		{
			name:    "ascii5/hour_out_of_range",
			payload: []byte("24001"),
			wantErr: ErrOutOfRange,
		},
		{
			name:    "ascii5/minute_out_of_range",
			payload: []byte("23601"),
			wantErr: ErrOutOfRange,
		},

		// === Four-digit compat form ===
		{
			name:    "ascii4/enable_defaults_on",
			payload: []byte("0730"),
			want:    Alarm{Hour: 7, Minute: 30, Enabled: true},
		},
		{
			name:    "ascii4/hour_out_of_range",
			payload: []byte("2500"),
			wantErr: ErrOutOfRange,
		},

		// === Trimmed ASCII ===
		{
			name:    "trimmed/five_digits_crlf",
			payload: []byte("07301\r\n"),
			want:    Alarm{Hour: 7, Minute: 30, Enabled: true},
		},
		{
			name:    "trimmed/four_digits_nul_padded",
			payload: []byte("0730\x00"),
			want:    Alarm{Hour: 7, Minute: 30, Enabled: true},
		},
		{
			name:    "trimmed/leading_space",
			payload: []byte(" 1045"),
			want:    Alarm{Hour: 10, Minute: 45, Enabled: true},
		},
		{
			name:    "trimmed/three_digits_zero_padded",
			payload: []byte("730"),
			want:    Alarm{Hour: 7, Minute: 30, Enabled: true},
		},
		{
			name:    "trimmed/single_digit",
			payload: []byte("5\n"),
			want:    Alarm{Hour: 0, Minute: 5, Enabled: true},
		},
		{
			name:    "trimmed/padded_minute_out_of_range",
			payload: []byte("073\n"),
			wantErr: ErrOutOfRange,
		},
		{
			name:    "trimmed/five_digits_bad_flag",
			payload: []byte("07302\n"),
			wantErr: ErrBadEncoding,
		},

		// === Packed BCD ===
		{
			name:    "bcd/valid_time",
			payload: []byte{0x07, 0x30},
			want:    Alarm{Hour: 7, Minute: 30, Enabled: true},
		},
		{
			name:    "bcd/late_evening",
			payload: []byte{0x23, 0x59},
			want:    Alarm{Hour: 23, Minute: 59, Enabled: true},
		},
		{
			name:    "bcd/bad_nibble_no_le_rescue",
			payload: []byte{0x4A, 0x21}, // nibble A breaks BCD; LE 0x214A too large
			wantErr: ErrBadEncoding,
		},
		{
			// A linefeed byte counts as padding, so this is ASCII "0", not
			// the start of a binary form.
			name:    "trimmed/linefeed_then_digit",
			payload: []byte{0x0A, 0x30},
			want:    Alarm{Hour: 0, Minute: 0, Enabled: true},
		},

		// === Little-endian binary ===
		{
			name:    "le16/valid",
			payload: []byte{0x2D, 0x05}, // 0x052D = 1325
			want:    Alarm{Hour: 13, Minute: 25, Enabled: true},
		},
		{
			// Nibbles 3,5,0,5 are all BCD, but "3505" is no clock time, so
			// the pair falls through to the little-endian strategy and
			// decodes by its integer value.
			name:    "le16/valid_bcd_falls_through",
			payload: []byte{0x35, 0x05}, // 0x0535 = 1333
			want:    Alarm{Hour: 13, Minute: 33, Enabled: true},
		},
		{
			name:    "le16/invalid_bcd_falls_through",
			payload: []byte{0x41, 0x08}, // BCD "4108" is no time; LE 0x0841 = 2113
			want:    Alarm{Hour: 21, Minute: 13, Enabled: true},
		},
		{
			name:    "le32/minute_invalid",
			payload: []byte{0x3A, 0x02, 0x00, 0x00}, // 570 would be 05:70
			wantErr: ErrBadEncoding,
		},
		{
			name:    "le32/morning",
			payload: []byte{0xDA, 0x02, 0x00, 0x00}, // 730
			want:    Alarm{Hour: 7, Minute: 30, Enabled: true},
		},
		{
			name:    "le16/too_large",
			payload: []byte{0xFF, 0xFF},
			wantErr: ErrBadEncoding,
		},

		// === Rejects ===
		{
			name:    "reject/empty",
			payload: nil,
			wantErr: ErrBadEncoding,
		},
		{
			name:    "reject/three_non_digit_bytes",
			payload: []byte{0x01, 0x02, 0x03},
			wantErr: ErrBadEncoding,
		},
		{
			name:    "reject/letters",
			payload: []byte("07h30"),
			wantErr: ErrBadEncoding,
		},
		{
			name:    "reject/too_long",
			payload: []byte("073015999"),
			wantErr: ErrBadEncoding,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeAlarm(tt.payload)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("DecodeAlarm(%q) error = %v, want %v", tt.payload, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeAlarm(%q) unexpected error: %v", tt.payload, err)
			}
			if got != tt.want {
				t.Errorf("DecodeAlarm(%q) = %+v, want %+v", tt.payload, got, tt.want)
			}
		})
	}
}

func TestAlarmDigitsRoundTrip(t *testing.T) {
	// Every valid five-digit payload must decode and re-encode to itself.
	for hour := 0; hour < 24; hour++ {
		for _, minute := range []int{0, 9, 30, 59} {
			for _, enabled := range []byte{'0', '1'} {
				payload := fmt.Appendf(nil, "%02d%02d%c", hour, minute, enabled)
				a, err := DecodeAlarm(payload)
				if err != nil {
					t.Fatalf("DecodeAlarm(%q) unexpected error: %v", payload, err)
				}
				if got := a.Digits(); !bytes.Equal(got, payload) {
					t.Fatalf("Digits() = %q after decoding %q", got, payload)
				}
			}
		}
	}
}

func TestAlarmBCDMatchesASCII(t *testing.T) {
	// A valid packed-BCD payload and the ASCII spelling of the same digits
	// must decode to the same alarm.
	for hour := 0; hour < 24; hour++ {
		for _, minute := range []int{0, 5, 18, 59} {
			bcd := []byte{byte(hour/10)<<4 | byte(hour%10), byte(minute/10)<<4 | byte(minute%10)}
			ascii := fmt.Appendf(nil, "%02d%02d", hour, minute)

			fromBCD, err := DecodeAlarm(bcd)
			if err != nil {
				t.Fatalf("DecodeAlarm(% X) unexpected error: %v", bcd, err)
			}
			fromASCII, err := DecodeAlarm(ascii)
			if err != nil {
				t.Fatalf("DecodeAlarm(%q) unexpected error: %v", ascii, err)
			}
			if fromBCD != fromASCII {
				t.Fatalf("BCD % X decoded to %+v, ASCII %q to %+v", bcd, fromBCD, ascii, fromASCII)
			}
		}
	}
}

func TestDecodeClock(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		want    Clock
		wantErr error
	}{
		{
			name:    "ascii6/valid",
			payload: []byte("134059"),
			want:    Clock{Hour: 13, Minute: 40, Second: 59},
		},
		{
			name:    "ascii6/midnight",
			payload: []byte("000000"),
			want:    Clock{},
		},
		{
			name:    "trimmed/newline",
			payload: []byte("134059\n"),
			want:    Clock{Hour: 13, Minute: 40, Second: 59},
		},
		{
			name:    "bcd/valid",
			payload: []byte{0x13, 0x40, 0x59},
			want:    Clock{Hour: 13, Minute: 40, Second: 59},
		},
		{
			name:    "le32/second_invalid",
			payload: []byte{0x47, 0x0D, 0x02, 0x00}, // 134471 would be 13:44:71
			wantErr: ErrBadEncoding,
		},
		{
			name:    "le32/afternoon",
			payload: []byte{0x3B, 0x0D, 0x02, 0x00}, // 134459
			want:    Clock{Hour: 13, Minute: 44, Second: 59},
		},
		{
			name:    "le16/valid",
			payload: []byte{0x0E, 0x17}, // 0x170E = 5902 -> 00:59:02
			want:    Clock{Hour: 0, Minute: 59, Second: 2},
		},
		{
			name:    "ascii6/hour_out_of_range",
			payload: []byte("240000"),
			wantErr: ErrOutOfRange,
		},
		{
			name:    "ascii6/second_out_of_range",
			payload: []byte("126060"),
			wantErr: ErrOutOfRange,
		},
		{
			name:    "reject/five_digits",
			payload: []byte("12345"),
			wantErr: ErrBadEncoding,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeClock(tt.payload)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("DecodeClock(%q) error = %v, want %v", tt.payload, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeClock(%q) unexpected error: %v", tt.payload, err)
			}
			if got != tt.want {
				t.Errorf("DecodeClock(%q) = %+v, want %+v", tt.payload, got, tt.want)
			}
		})
	}
}

func TestDecodeByte(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		lo, hi  uint8
		want    uint8
		wantErr error
	}{
		{
			name:    "raw/in_range",
			payload: []byte{50},
			lo:      0, hi: 100,
			want: 50,
		},
		{
			name:    "raw/at_upper_bound",
			payload: []byte{100},
			lo:      0, hi: 100,
			want: 100,
		},
		{
			name:    "raw/above_range",
			payload: []byte{101},
			lo:      0, hi: 100,
			wantErr: ErrOutOfRange,
		},
		{
			name:    "raw/below_range",
			payload: []byte{0},
			lo:      1, hi: 60,
			wantErr: ErrOutOfRange,
		},
		{
			name:    "ascii/two_digits",
			payload: []byte("42"),
			lo:      0, hi: 100,
			want: 42,
		},
		{
			name:    "ascii/three_digits_newline",
			payload: []byte("100\n"),
			lo:      0, hi: 100,
			want: 100,
		},
		{
			name:    "ascii/overflows_byte",
			payload: []byte("999"),
			lo:      0, hi: 100,
			wantErr: ErrOutOfRange,
		},
		{
			name:    "reject/not_digits",
			payload: []byte("5x"),
			lo:      0, hi: 100,
			wantErr: ErrBadEncoding,
		},
		{
			name:    "reject/empty",
			payload: nil,
			lo:      0, hi: 100,
			wantErr: ErrBadEncoding,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeByte(tt.payload, tt.lo, tt.hi)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("DecodeByte(%q) error = %v, want %v", tt.payload, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeByte(%q) unexpected error: %v", tt.payload, err)
			}
			if got != tt.want {
				t.Errorf("DecodeByte(%q) = %d, want %d", tt.payload, got, tt.want)
			}
		})
	}
}
