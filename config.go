// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cs1237

import "fmt"

// Gain is the programmable gain of the analog front end.
type Gain uint8

const (
	Gain1   Gain = 1
	Gain2   Gain = 2
	Gain64  Gain = 64
	Gain128 Gain = 128
)

func (g Gain) String() string {
	return fmt.Sprintf("%dx", uint8(g))
}

// code returns the 2-bit register field for the gain.
func (g Gain) code() (byte, error) {
	switch g {
	case Gain1:
		return 0, nil
	case Gain2:
		return 1, nil
	case Gain64:
		return 2, nil
	case Gain128:
		return 3, nil
	}
	return 0, &InvalidParameterError{Param: "gain", Value: int(g)}
}

func gainFromCode(c byte) (Gain, bool) {
	switch c {
	case 0:
		return Gain1, true
	case 1:
		return Gain2, true
	case 2:
		return Gain64, true
	case 3:
		return Gain128, true
	}
	return 0, false
}

// Rate is the conversion rate in samples per second.
type Rate uint16

const (
	Rate10   Rate = 10
	Rate40   Rate = 40
	Rate640  Rate = 640
	Rate1280 Rate = 1280
)

func (r Rate) String() string {
	return fmt.Sprintf("%dHz", uint16(r))
}

// code returns the 2-bit register field for the rate.
func (r Rate) code() (byte, error) {
	switch r {
	case Rate10:
		return 0, nil
	case Rate40:
		return 1, nil
	case Rate640:
		return 2, nil
	case Rate1280:
		return 3, nil
	}
	return 0, &InvalidParameterError{Param: "rate", Value: int(r)}
}

func rateFromCode(c byte) (Rate, bool) {
	switch c {
	case 0:
		return Rate10, true
	case 1:
		return Rate40, true
	case 2:
		return Rate640, true
	case 3:
		return Rate1280, true
	}
	return 0, false
}

// Channel selects the conversion input.
type Channel uint8

const (
	// ChannelA is the external differential input pair.
	ChannelA Channel = 0
	// ChannelReserved is unused on the CS1237; the CS1238 routes its second
	// input pair here.
	ChannelReserved Channel = 1
	// ChannelTemperature is the internal temperature sensor.
	ChannelTemperature Channel = 2
	// ChannelShort shorts the inputs internally, for offset measurement.
	ChannelShort Channel = 3
)

func (ch Channel) String() string {
	switch ch {
	case ChannelA:
		return "A"
	case ChannelReserved:
		return "reserved"
	case ChannelTemperature:
		return "temperature"
	case ChannelShort:
		return "short"
	}
	return fmt.Sprintf("Channel(%d)", uint8(ch))
}

// Config holds the three programmable settings of the device. It maps to a
// single register byte laid out as rate<<4 | gain<<2 | channel; the top two
// bits are reserved.
type Config struct {
	Gain    Gain
	Rate    Rate
	Channel Channel
}

func (c Config) String() string {
	return fmt.Sprintf("gain=%s rate=%s channel=%s", c.Gain, c.Rate, c.Channel)
}

// encode validates every field and packs the register byte.
func (c Config) encode() (byte, error) {
	g, err := c.Gain.code()
	if err != nil {
		return 0, err
	}
	r, err := c.Rate.code()
	if err != nil {
		return 0, err
	}
	if c.Channel > ChannelShort {
		return 0, &InvalidParameterError{Param: "channel", Value: int(c.Channel)}
	}
	return r<<4 | g<<2 | byte(c.Channel), nil
}

// decodeConfig is the inverse of encode. A code that does not map back to a
// known gain or rate means the byte did not come from a validated write.
func decodeConfig(b byte) (Config, error) {
	g, ok := gainFromCode(b >> 2 & 0x03)
	if !ok {
		return Config{}, &ProtocolError{Config: b}
	}
	r, ok := rateFromCode(b >> 4 & 0x03)
	if !ok {
		return Config{}, &ProtocolError{Config: b}
	}
	return Config{Gain: g, Rate: r, Channel: Channel(b & 0x03)}, nil
}

// A ConfigOption adjusts a single setting in a Configure call; settings
// without an option keep their current value.
type ConfigOption func(*Config)

// WithGain selects the analog gain.
func WithGain(g Gain) ConfigOption {
	return func(c *Config) { c.Gain = g }
}

// WithRate selects the conversion rate.
func WithRate(r Rate) ConfigOption {
	return func(c *Config) { c.Rate = r }
}

// WithChannel selects the conversion input.
func WithChannel(ch Channel) ConfigOption {
	return func(c *Config) { c.Channel = ch }
}
