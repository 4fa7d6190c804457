// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package process

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/photoszzt/vscode-tlaplus/services/tla/fault"
)

// javaHomeEnvVars is the default probe order.
var javaHomeEnvVars = []string{
	"JAVA_HOME",
	"JDK_HOME",
	"JAVA_HOME_21_ARM64",
	"JAVA_HOME_17_ARM64",
	"JAVA_HOME_11_ARM64",
	"JAVA_HOME_21_X64",
	"JAVA_HOME_17_X64",
	"JAVA_HOME_11_X64",
	"JAVA_HOME_8_X64",
}

// javaCommand returns the executable name for goos.
func javaCommand(goos string) string {
	if goos == "windows" {
		return "java.exe"
	}
	return "java"
}

// envJavaVars returns javaHomeEnvVars reordered for the platform.
func envJavaVars(goos, goarch string) []string {
	if goos != "darwin" || goarch != "arm64" {
		return javaHomeEnvVars
	}
	arm := make([]string, 0, len(javaHomeEnvVars))
	other := make([]string, 0, len(javaHomeEnvVars))
	for _, v := range javaHomeEnvVars {
		if strings.Contains(v, "ARM64") {
			arm = append(arm, v)
		} else {
			other = append(other, v)
		}
	}
	return append(arm, other...)
}

// javaHomesFromEnv collects distinct, non-empty java homes in probe order.
func javaHomesFromEnv(lookup func(string) (string, bool), goos, goarch string) []string {
	seen := make(map[string]struct{})
	var homes []string
	for _, name := range envJavaVars(goos, goarch) {
		v, ok := lookup(name)
		if !ok || v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		homes = append(homes, v)
	}
	return homes
}

// javaFromHome returns <home>/bin/<java> when it exists as a regular file.
func javaFromHome(home, goos string) (string, bool) {
	candidate := filepath.Join(home, "bin", javaCommand(goos))
	info, err := os.Stat(candidate)
	if err != nil || info.IsDir() {
		return "", false
	}
	return candidate, true
}

// findJava resolves the java executable.
//
// Description:
//
//	Tries the explicit override, then environment homes, then falls back
//	to the bare command name so exec resolves it via PATH.
//
// Errors:
//
//	fault KindJavaNotFound when an explicit override has no executable.
func (r *Runner) findJava(override string) (string, error) {
	if override != "" {
		if p, ok := javaFromHome(override, r.goos); ok {
			return p, nil
		}
		return "", fault.Newf(fault.KindJavaNotFound,
			"Java executable not found in %q. Ensure Java is installed in this directory, or use --java-home to specify a different location",
			override).WithContext("javaHome", override)
	}

	for _, home := range javaHomesFromEnv(r.lookupEnv, r.goos, r.goarch) {
		if p, ok := javaFromHome(home, r.goos); ok {
			return p, nil
		}
	}
	return javaCommand(r.goos), nil
}
