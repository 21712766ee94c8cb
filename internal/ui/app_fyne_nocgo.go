//go:build fyne && !cgo

package ui

import "fmt"

// Run explains that the Fyne UI needs cgo (OpenGL) and a C toolchain.
func Run(_ string) error {
	return fmt.Errorf("Fyne UI requires cgo (OpenGL). Enable cgo and install a C toolchain, then run: CGO_ENABLED=1 go run -tags fyne ./cmd/nasgame ui [dataDir]")
}
