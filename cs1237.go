// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cs1237

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// Opts holds the configuration options for the driver.
type Opts struct {
	// Gain, Rate and Channel form the initial device configuration, written
	// during New. A zero Gain or Rate falls back to the DefaultOpts value;
	// the zero Channel is channel A.
	Gain    Gain
	Rate    Rate
	Channel Channel
	// Timeout bounds the wait for the data-ready signal of a single
	// conversion. At the slowest rate a conversion takes up to 100ms, so
	// the default of 500ms leaves ample margin.
	Timeout time.Duration
	// PollInterval is the sleep between data-ready polls when edge
	// detection is off. Default is 100µs.
	PollInterval time.Duration
	// EdgeDetection selects the interrupt-driven wait strategy: the data
	// line is armed for a falling edge and the read blocks on it instead of
	// polling the level.
	EdgeDetection bool
	// ClockPulse is the minimum clock high and low time. The device needs
	// at least 455ns; the default is 1µs.
	ClockPulse time.Duration
	// Sequencer, when set, offloads whole frames and buffered acquisition
	// to an autonomous engine instead of bit-banging them on the calling
	// goroutine.
	Sequencer Sequencer
}

// DefaultOpts matches the device's power-on configuration.
var DefaultOpts = Opts{
	Gain:         Gain128,
	Rate:         Rate10,
	Channel:      ChannelA,
	Timeout:      500 * time.Millisecond,
	PollInterval: 100 * time.Microsecond,
	ClockPulse:   time.Microsecond,
}

// Calibration pairs a raw reading of the temperature channel with the
// ambient temperature in °C it was taken at.
type Calibration struct {
	Value int32
	TempC float64
}

// defaultCalibration is a typical die; calibrate for real measurements.
var defaultCalibration = Calibration{Value: 769000, TempC: 20}

// New returns a handle to a CS1237 wired to the given clock and data pins
// and writes the initial configuration. The Opts can be nil.
func New(clk gpio.PinOut, data gpio.PinIO, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	o := *opts
	if o.Gain == 0 {
		o.Gain = DefaultOpts.Gain
	}
	if o.Rate == 0 {
		o.Rate = DefaultOpts.Rate
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultOpts.Timeout
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultOpts.PollInterval
	}
	if o.ClockPulse <= 0 {
		o.ClockPulse = DefaultOpts.ClockPulse
	}

	d := &Dev{
		opts: o,
		w:    &wire{clk: clk, data: data, pulse: o.ClockPulse},
		ref:  defaultCalibration,
	}
	if o.EdgeDetection {
		d.trig = edgeTrigger{}
	} else {
		d.trig = pollTrigger{interval: o.PollInterval}
	}
	d.engine = o.Sequencer
	if d.engine == nil {
		d.engine = &softEngine{w: d.w, trig: d.trig, timeout: o.Timeout}
	}

	if err := clk.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("cs1237: %w", err)
	}
	if err := data.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("cs1237: %w", err)
	}
	if _, err := d.configure(Config{Gain: o.Gain, Rate: o.Rate, Channel: o.Channel}); err != nil {
		return nil, err
	}
	return d, nil
}

// Dev is a handle to a CS1237 on a clock/data pin pair. A Dev owns its pin
// pair exclusively; the protocol is strictly half-duplex and operations are
// serialized, no two frames are ever in flight at once.
type Dev struct {
	opts   Opts
	w      *wire
	trig   trigger
	engine Sequencer

	mu   sync.Mutex
	cfg  Config // last configuration written to the device
	ref  Calibration
	stop chan struct{}
	wg   sync.WaitGroup
}

func (d *Dev) String() string {
	return fmt.Sprintf("CS1237{%s, %s}", d.w.clk, d.w.data)
}

// Read waits for the next conversion and returns its sign-extended 24-bit
// value. It fails with *TimeoutError if the device does not signal a result
// within Opts.Timeout; the session is drained so the next call starts from
// a clean state.
func (d *Dev) Read() (int32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, _, err := d.read()
	return v, err
}

// read runs one data frame and returns the sample and the raw status bits.
func (d *Dev) read() (int32, byte, error) {
	words, err := d.engine.RunFrame(ModeData, 0, d.opts.Timeout)
	if err != nil {
		return 0, 0, err
	}
	raw := words[0]
	return signExtend24(int32(raw >> rawDataShift & 0xFFFFFF)), byte(raw >> rawStatusShift & 0x03), nil
}

// ReadBuffered arms continuous acquisition into buf and returns without
// blocking. The engine stores one conversion per slot with no per-sample
// CPU work; after the single completion event a deferred pass sign-extends
// the buffer and marks the session complete. The device is busy until the
// session ends; buf must not be read before then.
//
// The wait budget scales with the buffer length and the configured rate. On
// timeout the engine is halted, the partial data is discarded and the
// session ends with *TimeoutError.
func (d *Dev) ReadBuffered(buf []int32) (*Acquisition, error) {
	if len(buf) == 0 {
		return nil, &InvalidParameterError{Param: "buffer length", Value: 0}
	}
	d.mu.Lock()
	acq := &Acquisition{buf: buf, done: make(chan struct{})}
	events, err := d.engine.StartAcquisition(buf)
	if err != nil {
		d.mu.Unlock()
		return nil, err
	}
	budget := 2*time.Duration(len(buf))*(time.Second/time.Duration(d.cfg.Rate)) + d.opts.Timeout
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.mu.Unlock()
		select {
		case err := <-events:
			acq.finish(err)
		case <-time.After(budget):
			d.engine.Halt()
			acq.finish(&TimeoutError{Op: "read-buffered"})
		}
	}()
	return acq, nil
}

// Configure updates the device configuration. Settings without an option
// keep their current value; every provided value is validated before any
// bus traffic. The pending conversion is drained before the new byte is
// written and its value returned, the last sample taken under the old
// configuration. The stored configuration becomes authoritative only once
// the device byte is written.
func (d *Dev) Configure(opts ...ConfigOption) (int32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cfg := d.cfg
	for _, o := range opts {
		o(&cfg)
	}
	return d.configure(cfg)
}

func (d *Dev) configure(cfg Config) (int32, error) {
	b, err := cfg.encode()
	if err != nil {
		return 0, err
	}
	drained, err := d.writeConfig(b)
	if err != nil {
		return 0, err
	}
	d.cfg = cfg
	return drained, nil
}

// writeConfig runs a write-configuration frame and returns the drained
// sample.
func (d *Dev) writeConfig(b byte) (int32, error) {
	word := uint32(cmdWriteConfig)<<25 | uint32(b)<<16
	words, err := d.engine.RunFrame(ModeWriteConfig, word, d.opts.Timeout)
	if err != nil {
		return 0, err
	}
	return signExtend24(int32(words[0] >> rawDataShift & 0xFFFFFF)), nil
}

// readConfigFrame runs a read-configuration frame and returns the decoded
// configuration and the drained sample.
func (d *Dev) readConfigFrame() (Config, int32, error) {
	words, err := d.engine.RunFrame(ModeReadConfig, uint32(cmdReadConfig)<<25, d.opts.Timeout)
	if err != nil {
		return Config{}, 0, err
	}
	if len(words) < 2 {
		return Config{}, 0, &ProtocolError{}
	}
	cfg, err := decodeConfig(byte(words[1]))
	if err != nil {
		return Config{}, 0, err
	}
	return cfg, signExtend24(int32(words[0] >> rawDataShift & 0xFFFFFF)), nil
}

// Config reads the configuration register back from the device and decodes
// it. A byte that does not decode fails with *ProtocolError.
func (d *Dev) Config() (Config, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cfg, _, err := d.readConfigFrame()
	return cfg, err
}

// ConfigStatus drains one conversion and returns the configuration write
// status bit. The device only refreshes the status at a conversion
// boundary, which is why the drain comes first.
func (d *Dev) ConfigStatus() (byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, status, err := d.read()
	if err != nil {
		return 0, err
	}
	return status >> 1, nil
}

// Ready reports whether a conversion result is waiting to be clocked out.
func (d *Dev) Ready() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.w.data.Read() == gpio.Low
}

// tempConfig is gain 1, 10Hz, temperature channel; encoded byte 0x02.
var tempConfig = Config{Gain: Gain1, Rate: Rate10, Channel: ChannelTemperature}

// temperatureRaw reads one sample from the temperature channel, switching
// the configuration over and back if needed. The restore is always a full
// configuration write, one extra device cycle, because anything less could
// silently leave the device on the wrong channel.
func (d *Dev) temperatureRaw() (int32, error) {
	cfg, value, err := d.readConfigFrame()
	if err != nil {
		return 0, err
	}
	if cfg == tempConfig {
		return value, nil
	}
	enc, err := tempConfig.encode()
	if err != nil {
		return 0, err
	}
	if _, err := d.writeConfig(enc); err != nil {
		return 0, err
	}
	prev, err := cfg.encode()
	if err != nil {
		return 0, err
	}
	// Restoring the previous configuration drains the conversion started on
	// the temperature channel; that drained value is the reading.
	value, err = d.writeConfig(prev)
	if err != nil {
		return 0, err
	}
	return value, nil
}

// Calibrate takes a reference reading from the temperature channel and
// stores it together with the known ambient temperature in °C. The device
// configuration is restored afterwards.
func (d *Dev) Calibrate(tempC float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	value, err := d.temperatureRaw()
	if err != nil {
		return err
	}
	d.ref = Calibration{Value: value, TempC: tempC}
	return nil
}

// SetCalibration stores a previously determined reference pair directly,
// without touching the device.
func (d *Dev) SetCalibration(c Calibration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ref = c
}

// Temperature returns the die temperature in °C, derived from the
// temperature channel and the calibration reference.
func (d *Dev) Temperature() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	value, err := d.temperatureRaw()
	if err != nil {
		return 0, err
	}
	return float64(value)/float64(d.ref.Value)*(273.15+d.ref.TempC) - 273.15, nil
}

// PowerDown puts the device into its low-power state. The device powers
// down once the clock line is held high for more than 100µs; the line stays
// high until PowerUp.
func (d *Dev) PowerDown() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.w.clkOut(gpio.Low)
	d.w.clkOut(gpio.High)
	return d.w.takeErr()
}

// PowerUp pulls the clock line low again. The device resumes converting;
// the first result is ready after one conversion period.
func (d *Dev) PowerUp() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.w.clkOut(gpio.Low)
	return d.w.takeErr()
}

// Sense implements physic.SenseEnv. It measures the die temperature;
// pressure and humidity stay zero.
func (d *Dev) Sense(e *physic.Env) error {
	t, err := d.Temperature()
	if err != nil {
		return err
	}
	e.Temperature = physic.Temperature(t*float64(physic.Kelvin)) + physic.ZeroCelsius
	return nil
}

// SenseContinuous implements physic.SenseEnv. It returns a channel that
// receives a measurement every interval until Halt is called.
func (d *Dev) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		return nil, fmt.Errorf("cs1237: already sensing continuously")
	}
	sensing := make(chan physic.Env)
	d.stop = make(chan struct{})
	stop := d.stop
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer close(sensing)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				var e physic.Env
				if err := d.Sense(&e); err == nil {
					select {
					case sensing <- e:
					case <-stop:
						return
					}
				}
			}
		}
	}()
	return sensing, nil
}

// Precision implements physic.SenseEnv.
func (d *Dev) Precision(e *physic.Env) {
	e.Temperature = 10 * physic.MilliKelvin
}

// Halt implements conn.Resource. It aborts an active buffered acquisition
// and stops continuous sensing.
func (d *Dev) Halt() error {
	d.engine.Halt()
	d.mu.Lock()
	if d.stop != nil {
		close(d.stop)
		d.stop = nil
	}
	d.mu.Unlock()
	d.wg.Wait()
	return nil
}

var _ conn.Resource = &Dev{}
var _ physic.SenseEnv = &Dev{}
