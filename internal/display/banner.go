// Package display renders the startup banner and human-readable sizes.
package display

import (
	"fmt"
	"io"

	"github.com/backmassage/roflconv/internal/term"
)

const banner = `             __ _
 _ __ ___  / _| | ___ ___  _ ____   __
| '__/ _ \| |_| |/ __/ _ \| '_ \ \ / /
| | | (_) |  _| | (_| (_) | | | \ V /
|_|  \___/|_| |_|\___\___/|_| |_|\_/
`

// PrintBanner writes the ASCII art banner and version line to w; the art is
// magenta when colors are enabled.
func PrintBanner(w io.Writer, version string) {
	fmt.Fprint(w, term.Paint(term.Magenta, banner))
	fmt.Fprintf(w, "replay metadata converter v%s\n\n", version)
}
