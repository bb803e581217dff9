package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/assetsync/assetsync/internal/version"
)

var (
	// https://github.com/muesli/termenv/blob/master/ansicolors.go
	cyan = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
	gray = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
)

func showHeader() {
	fmt.Println(cyan.Render(version.AppName) + " " + gray.Render(version.Short()))
}
