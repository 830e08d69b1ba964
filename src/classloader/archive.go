/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-6 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classloader

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/edsrzf/mmap-go"
)

// Archive is a memory-mapped JAR file (spec §6, "class/jar/jmod path"):
// mmap-go hands back the file's bytes without a full read/copy, which
// matters for the large jar files a JVM classpath routinely carries.
type Archive struct {
	path    string
	mapping mmap.MMap
	zr      *zip.Reader
}

// loadClassResult mirrors what a classpath lookup reports: whether the
// class member was present in this archive and, if so, its raw bytes.
type loadClassResult struct {
	Success bool
	Data    *[]byte
}

// NewJarFile memory-maps fileName and opens it as a zip archive. The
// mapping is kept for the Archive's lifetime; Close should be called when
// the owning classloader is discarded (not currently done anywhere, since
// jacobin classloaders live for the process's lifetime).
func NewJarFile(fileName string) (*Archive, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, fmt.Errorf("NewJarFile: %w", err)
	}
	defer f.Close()

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("NewJarFile: mmap of %s failed: %w", fileName, err)
	}

	zr, err := zip.NewReader(bytes.NewReader(m), int64(len(m)))
	if err != nil {
		_ = m.Unmap()
		return nil, fmt.Errorf("NewJarFile: %s is not a valid JAR/zip: %w", fileName, err)
	}

	return &Archive{path: fileName, mapping: m, zr: zr}, nil
}

// Close releases the archive's memory mapping.
func (a *Archive) Close() error {
	if a.mapping == nil {
		return nil
	}
	return a.mapping.Unmap()
}

// loadClass reads the named class's bytes out of the archive. filename is
// given in the same form LoadClassFromFile accepts: a bare or
// platform-separated class name, with or without a ".class" suffix.
func (a *Archive) loadClass(filename string) (*loadClassResult, error) {
	member := strings.ReplaceAll(filename, "\\", "/")
	if !strings.HasSuffix(member, ".class") {
		member += ".class"
	}
	member = strings.TrimPrefix(member, "/")

	rc, err := a.zr.Open(member)
	if err != nil {
		return &loadClassResult{Success: false}, nil
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("loadClass: reading %s from %s: %w", member, a.path, err)
	}
	return &loadClassResult{Success: true, Data: &data}, nil
}

// getMainClass reads the Main-Class attribute out of the JAR's manifest.
func (a *Archive) getMainClass() string {
	rc, err := a.zr.Open("META-INF/MANIFEST.MF")
	if err != nil {
		return ""
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r\n")
		if strings.HasPrefix(line, "Main-Class:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "Main-Class:"))
		}
	}
	return ""
}
