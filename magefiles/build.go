// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build mage

// Package main provides build targets for biblio using Mage.
//
// Usage:
//
//	mage build             Compile biblio to bin/
//	mage install           Install biblio to GOPATH/bin
//	mage clean             Remove build artifacts
//	mage lint              Check gofmt, then run golangci-lint
//	mage fmt               List files that are not gofmt-clean
//	mage vet               Run go vet
//	mage test:all          Run unit and integration tests
//	mage test:unit         Run package tests only
//	mage test:integration  Build, then run tests/integration
//	mage test:race         Run package tests with the race detector
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "biblio"
	binaryDir  = "bin"
	cmdDir     = "./cmd/biblio"
)

// Build compiles the biblio binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV(binGo, "build", "-v", "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Clean removes build artifacts and the default data directory.
func Clean() error {
	for _, dir := range []string{binaryDir, ".biblio-db"} {
		if err := os.RemoveAll(dir); err != nil {
			return err
		}
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}
