package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate(t *testing.T) {
	tests := map[string]string{
		"Wireless Headphones Pro":  "wireless-headphones-pro",
		"  Smart Watch  Series 5 ": "smart-watch-series-5",
		"Çocuk & Bebek":            "cocuk-and-bebek",
		"USB-C Cable (2m)":         "usb-c-cable-2m",
		"Café Crème":               "cafe-creme",
		"!!!":                      "",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, Generate(in))
		})
	}
}
