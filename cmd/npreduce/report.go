// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/npreduce/pkg/core/tensors"
	"github.com/gomlx/npreduce/pkg/numpy"
	"github.com/gomlx/npreduce/pkg/support/xslices"
	"github.com/muesli/termenv"
)

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)

	oddRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFF")).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#999")).
			PaddingLeft(1).PaddingRight(1)

	titleStyle = lipgloss.NewStyle().Bold(true).Padding(1, 4, 0, 4)
)

// configureStyle disables colors if requested, or if the output is not a terminal.
func configureStyle(enabled bool) {
	profile := termenv.Ascii
	if enabled {
		profile = termenv.NewOutput(os.Stdout).EnvColorProfile()
	}
	lipgloss.SetColorProfile(profile)
}

func newPlainTable(withHeader bool) *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) (s lipgloss.Style) {
			if withHeader && row == lgtable.HeaderRow {
				return headerRowStyle
			}
			if row%2 == 0 {
				s = oddRowStyle
			} else {
				s = evenRowStyle
			}
			if col == 0 {
				s = s.Align(lipgloss.Right)
			} else {
				s = s.Align(lipgloss.Left)
			}
			return
		})
}

// report writes a summary of the input and the result of the reduction.
func report(w io.Writer, inputName string, input *tensors.Tensor, opts *Options, result *tensors.Tensor, precision int) {
	table := newPlainTable(false)
	table.Row("input", inputName)
	table.Row("shape", input.Shape().String())
	table.Row("elements", humanize.Comma(int64(input.Size())))
	table.Row("bytes", humanize.Bytes(uint64(input.Shape().Memory())))
	table.Row("reduction", opts.String())
	table.Row("precision", numpy.CurrentPrecision().String())
	table.Row("result shape", result.Shape().String())
	_, _ = fmt.Fprintln(w, table.Render())

	_, _ = fmt.Fprintln(w, titleStyle.Render("Result"))
	_, _ = fmt.Fprintln(w, result.Summary(precision))
}

// listReductions writes a table with the available reductions.
func listReductions(w io.Writer) {
	table := newPlainTable(true)
	table.Headers("Reduction", "Description")
	for _, name := range xslices.SortedKeys(reductions) {
		table.Row(name, reductions[name].help)
	}
	_, _ = fmt.Fprintln(w, table.Render())
}
