package drivers

import "io"

// mustClose is a test helper that closes and ignores errors
func mustClose(c io.Closer) {
	_ = c.Close()
}
