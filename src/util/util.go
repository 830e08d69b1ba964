/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-6 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package util holds small, dependency-free helpers shared across packages
// that would otherwise each reinvent them (spec calls these out only
// implicitly, as every component needs to turn a Java-internal class name
// into a host path and back).
package util

import (
	"os"
	"strings"
)

// ConvertToPlatformPathSeparators turns a Java-internal class name such as
// "java/lang/String" into a path using the host's separator, so that it can
// be joined onto a classpath directory and opened.
func ConvertToPlatformPathSeparators(name string) string {
	if os.PathSeparator == '/' {
		return name
	}
	return strings.ReplaceAll(name, "/", string(os.PathSeparator))
}

// ConvertClassFilenameToInternalFormat strips a .class suffix and turns
// platform separators into '/', returning the java/lang/String-style
// internal class name.
func ConvertClassFilenameToInternalFormat(filename string) string {
	name := strings.TrimSuffix(filename, ".class")
	return strings.ReplaceAll(name, string(os.PathSeparator), "/")
}

// ConvertInternalClassNameToFilename is the inverse of
// ConvertClassFilenameToInternalFormat: it appends ".class" to a platform
// path built from a java/lang/String-style internal class name.
func ConvertInternalClassNameToFilename(name string) string {
	return ConvertToPlatformPathSeparators(name) + ".class"
}
