// Package lib bundles the C headers that ship with the compiler so that
// #include <stdio.h> resolves without an on-disk installation.
package lib

import "embed"

//go:embed include/*.h
var Headers embed.FS

// IncludeDir is the root of the embedded header tree.
const IncludeDir = "include"
