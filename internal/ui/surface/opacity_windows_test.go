//go:build windows

package surface

import "testing"

func TestExStyleIndexSignExtends(t *testing.T) {
	if got, want := uintptr(gwlExStyle), ^uintptr(19); got != want {
		t.Fatalf("GWL_EXSTYLE index = %#x, want %#x", got, want)
	}
}
