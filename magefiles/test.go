//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// cliPkg holds the end-to-end CLI tests.
const cliPkg = modulePath + "/internal/cli"

// Test groups test targets (all, unit, cli, race, cover).
type Test mg.Namespace

// All runs every test.
func (Test) All() error {
	return sh.RunV(binGo, "test", "-v", "./...")
}

// Unit runs the package tests, excluding the CLI end-to-end tests.
func (Test) Unit() error {
	pkgs, err := sh.Output(binGo, "list", "./...")
	if err != nil {
		return err
	}
	var unitPkgs []string
	for pkg := range strings.SplitSeq(pkgs, "\n") {
		if pkg != "" && pkg != cliPkg && !strings.HasSuffix(pkg, "/magefiles") {
			unitPkgs = append(unitPkgs, pkg)
		}
	}
	if len(unitPkgs) == 0 {
		fmt.Println("No unit test packages found.")
		return nil
	}
	args := append([]string{"test", "-v"}, unitPkgs...)
	return sh.RunV(binGo, args...)
}

// Cli runs the CLI end-to-end tests.
func (Test) Cli() error {
	return sh.RunV(binGo, "test", "-v", cliPkg)
}

// Race runs every test with the race detector. The lock and backup
// verification packages exercise concurrent paths.
func (Test) Race() error {
	return sh.RunV(binGo, "test", "-race", "./...")
}

// Cover writes a coverage profile to bin/coverage.out and prints the summary.
func (Test) Cover() error {
	mg.Deps(Build)
	profile := binaryDir + "/coverage.out"
	if err := sh.RunV(binGo, "test", "-coverprofile="+profile, "./..."); err != nil {
		return err
	}
	return sh.RunV(binGo, "tool", "cover", "-func="+profile)
}
