// Package level maps device readings onto the 0..12 ring levels.
package level

// Max is the number of LEDs a full level lights.
const Max = 12

// FromRSSI maps a Wi-Fi signal strength in dBm to a level. Anything at or
// above -30dBm is full scale and anything at or below -90dBm still shows one
// LED, so a connected device never looks dark.
func FromRSSI(dbm int) int {
	switch {
	case dbm >= -30:
		return Max
	case dbm <= -90:
		return 1
	}
	return (dbm+90)/5 + 1
}

// FromVolume maps a 0..100 volume to a level.
func FromVolume(pct int) int {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return pct * Max / 100
}
