package chat

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-isatty"
)

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// 输出到终端时按markdown渲染，否则原样输出
func Render(w io.Writer, answer string) error {
	if isTerminal(w) {
		if styled, err := glamour.Render(answer, "dark"); err == nil {
			_, err = io.WriteString(w, styled)
			return err
		}
	}
	_, err := fmt.Fprintln(w, answer)
	return err
}
