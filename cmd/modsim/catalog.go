package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/modsim/internal/config"
	"github.com/san-kum/modsim/internal/experiment"
	"github.com/san-kum/modsim/internal/module"
	"github.com/san-kum/modsim/internal/solver"
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	nameStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Width(24)
	kindStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Width(14)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(10)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	outputStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Width(14)
	groupStyle  = lipgloss.NewStyle().MarginBottom(1)
)

func printModules(w io.Writer, reg *experiment.Registry) error {
	var groups []string
	for _, lib := range reg.Libraries() {
		lines := []string{headerStyle.Render("library " + lib.Name())}
		for _, name := range lib.ModuleNames() {
			c, err := lib.Retrieve(name)
			if err != nil {
				return err
			}
			line := nameStyle.Render(name) + kindStyle.Render(c.Kind.String())
			if c.RequiresFixedStep {
				line += dimStyle.Render("fixed step")
			}
			lines = append(lines,
				line,
				labelStyle.Render("  inputs")+strings.Join(c.Inputs, ", "),
				labelStyle.Render("  outputs")+strings.Join(c.Outputs, ", "),
			)
		}
		groups = append(groups, groupStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
	}
	_, err := fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, groups...))
	return err
}

func printQuantities(w io.Writer, reg *experiment.Registry) error {
	lines := []string{headerStyle.Render(
		nameStyle.Render("QUANTITY") + nameStyle.Render("MODULE") + kindStyle.Render("ROLE") + "LIBRARY",
	)}
	for _, q := range reg.Quantities() {
		role := kindStyle.Render(string(q.Role))
		if q.Role == module.RoleOutput {
			role = outputStyle.Render(string(q.Role))
		}
		lines = append(lines, nameStyle.Render(q.Quantity)+nameStyle.Render(q.Module)+role+dimStyle.Render(q.Library))
	}
	_, err := fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, lines...))
	return err
}

func printSolvers(w io.Writer) error {
	lines := []string{headerStyle.Render("solver methods")}
	for _, name := range solver.Names() {
		kind := "fixed step"
		switch {
		case name == solver.MethodAuto:
			kind = "euler for fixed-step systems, rk45 otherwise"
		case solver.IsAdaptive(name):
			kind = "adaptive"
		}
		lines = append(lines, nameStyle.Render(name)+dimStyle.Render(kind))
	}
	_, err := fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, lines...))
	return err
}

func printPresets(w io.Writer, groups []string) error {
	var blocks []string
	for _, group := range groups {
		lines := []string{headerStyle.Render(group)}
		for _, name := range config.ListPresets(group) {
			sc := config.GetPreset(group, name)
			lines = append(lines, nameStyle.Render(group+"/"+name)+dimStyle.Render(sc.Description))
		}
		blocks = append(blocks, groupStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
	}
	_, err := fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, blocks...))
	return err
}

func printFinalRow(w io.Writer, out *experiment.Outcome) {
	last := out.Result.Last()
	lines := []string{headerStyle.Render("final values")}
	for _, name := range out.Result.Columns() {
		lines = append(lines, nameStyle.Render(name)+fmt.Sprintf("%.6g", last[name]))
	}
	if len(out.Metrics) > 0 {
		lines = append(lines, "", headerStyle.Render("metrics"))
		names := make([]string, 0, len(out.Metrics))
		for name := range out.Metrics {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			lines = append(lines, nameStyle.Render(name)+fmt.Sprintf("%.6g", out.Metrics[name]))
		}
	}
	fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, lines...))
}
