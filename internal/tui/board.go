package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/undersea/internal/level"
)

const cellWidth = 4

var (
	plainCellStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(cellWidth).
			Align(lipgloss.Center)
	heartCellStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Width(cellWidth).
			Align(lipgloss.Center)
	snakeCellStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("70")).
			Width(cellWidth).
			Align(lipgloss.Center)
	tokenCellStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57")).
			Width(cellWidth).
			Align(lipgloss.Center)
	boardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

// renderBoard draws the board grid with the player token. Cells are numbered
// left to right, top row first.
func renderBoard(board level.Config, playerPos int) string {
	var rows []string
	for r := 0; r < board.Rows; r++ {
		var cells []string
		for c := 0; c < board.Cols; c++ {
			pos := r*board.Cols + c + 1
			if pos > board.BoardSize {
				break
			}
			cells = append(cells, renderCell(board, pos, pos == playerPos))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return boardStyle.Render(strings.Join(rows, "\n"))
}

func renderCell(board level.Config, pos int, hasToken bool) string {
	if hasToken {
		return tokenCellStyle.Render("◉")
	}
	switch {
	case pos == board.BoardSize:
		return heartCellStyle.Render("⚑")
	case board.IsHeart(pos):
		return heartCellStyle.Render("♥")
	case board.IsSnake(pos):
		return snakeCellStyle.Render("~")
	default:
		return plainCellStyle.Render(fmt.Sprintf("%d", pos))
	}
}
