package app

import (
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/rotary_encoder/internal/config"
	"github.com/relabs-tech/rotary_encoder/internal/encoder"
)

// DisplayData holds the latest sample for display
type DisplayData struct {
	mu     sync.RWMutex
	sample encoder.Sample
	have   bool
}

func (d *DisplayData) set(s encoder.Sample) {
	d.mu.Lock()
	d.sample = s
	d.have = true
	d.mu.Unlock()
}

func (d *DisplayData) get() (encoder.Sample, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.sample, d.have
}

// RunDisplay shows the encoder readings from MQTT on an SSD1306 OLED.
func RunDisplay() error {
	cfg := config.Get()

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open(cfg.DisplayI2CBus)
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("display: initialized on %s", bus)

	if err := dev.Draw(dev.Bounds(), renderSplash(), image.Point{}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	data := &DisplayData{}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDDisplay)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	log.Printf("display: connected to MQTT broker at %s", cfg.MQTTBroker)

	if err := subscribeSamples(client, cfg.TopicEncoder, "display", data.set); err != nil {
		return fmt.Errorf("failed to subscribe for display: %w", err)
	}

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")

	for range ticker.C {
		s, have := data.get()
		if err := dev.Draw(dev.Bounds(), renderEncoderFrame(s, have), image.Point{}); err != nil {
			log.Printf("display: error updating display: %v", err)
		}
	}

	return nil
}

func newFrame() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, drawer
}

func drawLine(d *font.Drawer, x, y int, s string) {
	d.Dot = fixed.P(x, y)
	d.DrawString(s)
}

// renderEncoderFrame lays out angle, turns and RPM on a 128x64 frame.
func renderEncoderFrame(s encoder.Sample, have bool) *image1bit.VerticalLSB {
	img, drawer := newFrame()

	if !have {
		drawLine(drawer, 0, 26, "Encoder")
		drawLine(drawer, 0, 39, "Waiting...")
		return img
	}

	drawLine(drawer, 0, 13, fmt.Sprintf("Ang: %6.1f deg", s.AngleDeg))
	drawLine(drawer, 0, 26, fmt.Sprintf("Trn: %9.2f", s.Turns))
	drawLine(drawer, 0, 39, fmt.Sprintf("RPM: %8.1f", s.RPM))
	drawLine(drawer, 0, 52, fmt.Sprintf("Cnt: %5d", s.Count))
	return img
}

func renderSplash() *image1bit.VerticalLSB {
	img, drawer := newFrame()
	drawLine(drawer, 25, 26, "MT6701")
	drawLine(drawer, 10, 43, "Rotary Pi")
	return img
}
