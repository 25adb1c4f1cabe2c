// ABOUTME: Build identity constants
// ABOUTME: Reported in logs and the websocket hello frame
package version

const (
	Version      = "0.1.0"
	Product      = "rhythm-go"
	Manufacturer = "Virgo DTX"
)
