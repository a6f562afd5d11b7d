//go:build rp2040

package main

import (
	"machine"
	"strconv"
	"time"

	"mousebot/core"
	"mousebot/interp"
	"mousebot/protocol"
)

var (
	inputBuffer *protocol.FifoBuffer
	ctrl        *core.ControlCore
	console     *interp.Interpreter
	ticker      tickTimer
	adcDriver   *RpAdcDriver

	// Debug counters, reported on the debug UART when they change
	msgerrors    uint32
	reported     counters
	nextReportAt uint32
)

// boardConfig is the stock robot on the Pico carrier: 3.3 V ADC behind a
// multiplexer and a 1:3 battery divider.
func boardConfig() core.Config {
	cfg := core.DefaultConfig()
	cfg.ADCReference = 3.3
	cfg.ADCFullScale = 4096
	cfg.BatteryDivider = 3
	return cfg
}

// usbWriter sends interpreter output straight to USB.
type usbWriter struct{}

func (usbWriter) Write(p []byte) (int, error) {
	written := 0
	for written < len(p) {
		n, err := USBWriteBytes(p[written:])
		if err != nil || n == 0 {
			msgerrors++
			return written, err
		}
		written += n
	}
	return written, nil
}

func main() {
	// Disable the watchdog on boot to clear any previous state
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		return
	}

	InitUSB()
	InitDebugUART()
	core.SetDebugWriter(DebugPrintln)
	core.SetDebugEnabled(debugEnabled)
	InitClock()

	adcDriver = NewRPAdcDriver()
	hw := core.Hardware{
		GPIO:  NewRPGPIODriver(),
		PWM:   NewRP2040PWMDriver(),
		ADC:   adcDriver,
		Ticks: &ticker,
	}
	var err error
	ctrl, err = core.NewControlCore(boardConfig(), hw)
	if err == nil {
		err = ctrl.Start()
	}
	if err != nil {
		// Nothing can run without the core; report and idle.
		for {
			DebugPrintln("startup failed: " + err.Error())
			time.Sleep(time.Second)
		}
	}

	inputBuffer = protocol.NewFifoBuffer(256)
	console = interp.New(ctrl, usbWriter{})
	go usbReaderLoop()

	for {
		// Recover from panics in the main loop to prevent a firmware crash
		func() {
			defer func() {
				if r := recover(); r != nil {
					msgerrors++
					inputBuffer.Reset()
					ctrl.StopAll()
				}
			}()

			now := GetHardwareTime()
			ticker.poll(now)
			adcDriver.poll()
			inputBuffer.Drain(feed)
			if int32(now-nextReportAt) >= 0 {
				nextReportAt = now + reportInterval
				reportCounters()
			}
		}()

		// Yield to the USB reader
		time.Sleep(10 * time.Microsecond)
	}
}

func feed(c byte) { console.Feed(c) }

const reportInterval = core.TimerFreq // once a second

type counters struct {
	usbErrors uint32
	lateTicks uint32
	rxDropped uint32
}

// reportCounters prints the error counters that changed since last time.
func reportCounters() {
	now := counters{
		usbErrors: msgerrors,
		lateTicks: ticker.late,
		rxDropped: inputBuffer.Dropped(),
	}
	if now == reported {
		return
	}
	reported = now
	DebugPrintln("usb errors=" + strconv.FormatUint(uint64(now.usbErrors), 10) +
		" late ticks=" + strconv.FormatUint(uint64(now.lateTicks), 10) +
		" rx dropped=" + strconv.FormatUint(uint64(now.rxDropped), 10))
}

// usbReaderLoop runs in a goroutine to continuously read USB data
func usbReaderLoop() {
	// Recover from panics to prevent a firmware crash
	defer func() {
		if r := recover(); r != nil {
			msgerrors++
			time.Sleep(100 * time.Millisecond)
			go usbReaderLoop()
		}
	}()

	for {
		if USBAvailable() > 0 {
			data, err := USBRead()
			if err != nil {
				msgerrors++
				time.Sleep(time.Millisecond)
				continue
			}
			if !inputBuffer.WriteByte(data) {
				// Buffer full
				msgerrors++
			}
		}
		// Yield to avoid a busy loop
		time.Sleep(100 * time.Microsecond)
	}
}
