//go:build !windows

package surface

import "fyne.io/fyne/v2"

func applyNativeOpacity(fyne.Window, uint8) {}
