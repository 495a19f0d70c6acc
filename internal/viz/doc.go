// Package viz renders ensemble snapshots and scans for the terminal.
//
//   - [Canvas]: braille grid with 2x4 dots per cell
//   - [Viewport]: maps world coordinates onto a canvas, y up
//   - [Portrait] and [Bifurcation]: whole-figure helpers used by the CLI
//     and the live view
//   - [Styles]: lipgloss styles built from a [Theme]
package viz
