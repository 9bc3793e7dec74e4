// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"flag"
	"log"
	"time"

	"github.com/sensorforge/cs1237"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

func main() {
	clkFlag := flag.String("clk", "GPIO5", "Name of the clock pin")
	dataFlag := flag.String("data", "GPIO6", "Name of the data pin")
	gain := flag.Uint("gain", 128, "Gain (1, 2, 64 or 128)")
	rate := flag.Uint("rate", 10, "Sample rate in Hz (10, 40, 640 or 1280)")
	temp := flag.Bool("temp", false, "Read the die temperature instead of channel A")
	edge := flag.Bool("edge", false, "Use edge-triggered data-ready detection")
	interval := flag.Duration("interval", time.Second, "Time between readings")
	flag.Parse()

	_, err := host.Init()
	if err != nil {
		log.Fatal(err)
	}

	clk := gpioreg.ByName(*clkFlag)
	if clk == nil {
		log.Fatalf("no pin named %q", *clkFlag)
	}
	data := gpioreg.ByName(*dataFlag)
	if data == nil {
		log.Fatalf("no pin named %q", *dataFlag)
	}

	opts := cs1237.DefaultOpts
	opts.Gain = cs1237.Gain(*gain)
	opts.Rate = cs1237.Rate(*rate)
	opts.EdgeDetection = *edge

	dev, err := cs1237.New(clk, data, &opts)
	if err != nil {
		log.Fatal(err)
	}

	ticker := time.NewTicker(*interval)
	for {
		if *temp {
			t, err := dev.Temperature()
			if err != nil {
				log.Print(err)
			} else {
				log.Printf("Temperature: %.2f°C", t)
			}
		} else {
			v, err := dev.Read()
			if err != nil {
				log.Print(err)
			} else {
				log.Printf("Value: %d", v)
			}
		}

		<-ticker.C
	}
}
