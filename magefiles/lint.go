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

const binLint = "golangci-lint"

// Lint checks formatting, then runs golangci-lint.
func Lint() error {
	mg.Deps(Fmt)
	return sh.RunV(binLint, "run", "./...")
}

// Fmt fails when any source file under the project trees needs gofmt.
func Fmt() error {
	out, err := sh.Output("gofmt", append([]string{"-l"}, sourceDirs...)...)
	if err != nil {
		return err
	}
	if out = strings.TrimSpace(out); out != "" {
		return fmt.Errorf("unformatted files:\n%s", out)
	}
	return nil
}
