// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cs1237

import (
	"errors"
	"testing"
)

func TestConfig_encode(t *testing.T) {
	for _, tt := range []struct {
		cfg  Config
		want byte
	}{
		{Config{Gain1, Rate10, ChannelA}, 0x00},
		{Config{Gain1, Rate10, ChannelTemperature}, 0x02},
		{Config{Gain128, Rate10, ChannelA}, 0x0C},
		{Config{Gain64, Rate40, ChannelA}, 0x18},
		{Config{Gain2, Rate640, ChannelShort}, 0x27},
		{Config{Gain128, Rate1280, ChannelTemperature}, 0x3E},
	} {
		got, err := tt.cfg.encode()
		if err != nil {
			t.Fatalf("encode(%+v): %v", tt.cfg, err)
		}
		if got != tt.want {
			t.Errorf("encode(%+v) = %#02x, want %#02x", tt.cfg, got, tt.want)
		}
		back, err := decodeConfig(got)
		if err != nil {
			t.Fatalf("decodeConfig(%#02x): %v", got, err)
		}
		if back != tt.cfg {
			t.Errorf("decodeConfig(%#02x) = %+v, want %+v", got, back, tt.cfg)
		}
	}
}

func TestConfig_encode_invalid(t *testing.T) {
	for _, tt := range []struct {
		cfg   Config
		param string
	}{
		{Config{Gain(3), Rate10, ChannelA}, "gain"},
		{Config{Gain1, Rate(50), ChannelA}, "rate"},
		{Config{Gain1, Rate10, Channel(4)}, "channel"},
	} {
		_, err := tt.cfg.encode()
		var ipe *InvalidParameterError
		if !errors.As(err, &ipe) {
			t.Fatalf("encode(%+v) error = %v, want *InvalidParameterError", tt.cfg, err)
		}
		if ipe.Param != tt.param {
			t.Errorf("Param = %q, want %q", ipe.Param, tt.param)
		}
	}
}

func TestConfig_decode_full_domain(t *testing.T) {
	// Every valid triple must survive the register byte and back.
	for _, g := range []Gain{Gain1, Gain2, Gain64, Gain128} {
		for _, r := range []Rate{Rate10, Rate40, Rate640, Rate1280} {
			for ch := ChannelA; ch <= ChannelShort; ch++ {
				cfg := Config{Gain: g, Rate: r, Channel: ch}
				b, err := cfg.encode()
				if err != nil {
					t.Fatal(err)
				}
				back, err := decodeConfig(b)
				if err != nil {
					t.Fatal(err)
				}
				if back != cfg {
					t.Fatalf("round trip %+v -> %#02x -> %+v", cfg, b, back)
				}
			}
		}
	}
}

func TestConfig_strings(t *testing.T) {
	cfg := Config{Gain: Gain64, Rate: Rate40, Channel: ChannelTemperature}
	if s := cfg.String(); s != "gain=64x rate=40Hz channel=temperature" {
		t.Fatal(s)
	}
	if s := Channel(7).String(); s != "Channel(7)" {
		t.Fatal(s)
	}
}

func TestErrors_strings(t *testing.T) {
	if s := (&TimeoutError{Op: "read"}).Error(); s != "cs1237: read: sensor timeout" {
		t.Fatal(s)
	}
	if s := (&InvalidParameterError{Param: "gain", Value: 3}).Error(); s != "cs1237: invalid gain 3" {
		t.Fatal(s)
	}
	if s := (&ProtocolError{Config: 0xFF}).Error(); s != "cs1237: undecodable configuration byte 0xff" {
		t.Fatal(s)
	}
}
