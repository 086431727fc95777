package display

import (
	"fmt"
	"io"

	"github.com/backmassage/ogimage/internal/term"
)

const banner = `              _
  ___   __ _ (_)_ __ ___   __ _  __ _  ___
 / _ \ / _` + "`" + ` || | '_ ` + "`" + ` _ \ / _` + "`" + ` |/ _` + "`" + ` |/ _ \
| (_) | (_| || | | | | | | (_| | (_| |  __/
 \___/ \__, ||_|_| |_| |_|\__,_|\__, |\___|
       |___/                    |___/`

// PrintBanner writes the ASCII art banner in magenta when colors are on.
func PrintBanner(w io.Writer) {
	fmt.Fprintln(w, term.Paint(term.Magenta, banner))
}
