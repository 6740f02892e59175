// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build mage

package main

import (
	"fmt"
	"strings"

	"github.com/magefile/mage/sh"
)

const (
	binLint  = "golangci-lint"
	binGofmt = "gofmt"
)

// sourceDirs are the directories holding project Go code.
var sourceDirs = []string{"cmd", "internal", "pkg", "magefiles", "tests"}

// Lint runs golangci-lint after checking formatting.
func Lint() error {
	if err := Fmt(); err != nil {
		return err
	}
	return sh.RunV(binLint, "run", "./...")
}

// Fmt fails if any Go file is not gofmt-clean.
func Fmt() error {
	out, err := sh.Output(binGofmt, append([]string{"-l"}, sourceDirs...)...)
	if err != nil {
		return err
	}
	if files := strings.TrimSpace(out); files != "" {
		return fmt.Errorf("files need gofmt:\n%s", files)
	}
	return nil
}

// Vet runs go vet on every package.
func Vet() error {
	return sh.RunV(binGo, "vet", "./...")
}
