package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/robalobadob/starcipher/internal/cipher"
)

var revealCmd = &cobra.Command{
	Use:   "reveal [text...]",
	Short: "Decode text (shift back 8, then reverse)",
	Long: `Decodes its arguments joined by spaces, or each line of stdin when no
arguments are given.

Example:
  starcipher reveal '!ltzwE ,wttmP'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return transform(cmd, args, cipher.Reveal)
	},
}

var concealCmd = &cobra.Command{
	Use:   "conceal [text...]",
	Short: "Encode text so that reveal recovers it",
	RunE: func(cmd *cobra.Command, args []string) error {
		return transform(cmd, args, cipher.Conceal)
	},
}

func transform(cmd *cobra.Command, args []string, fn func(string) string) error {
	out := cmd.OutOrStdout()
	if len(args) > 0 {
		_, err := fmt.Fprintln(out, fn(strings.Join(args, " ")))
		return err
	}
	return transformLines(cmd.InOrStdin(), out, fn)
}

func transformLines(in io.Reader, out io.Writer, fn func(string) string) error {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if _, err := fmt.Fprintln(out, fn(sc.Text())); err != nil {
			return err
		}
	}
	return sc.Err()
}
