/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-6 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classloader

// jmod.go is the external collaborator that answers "which .jmod module
// ships this class, and what are its raw bytes" (spec §1, "Parsed class
// files and raw bytecode enter the system...from the filesystem or a jmod
// archive"). A .jmod file is a zip archive with a 4-byte "JM" + version
// header prepended before the zip's own local-file-header magic, and every
// class entry lives under a "classes/" prefix inside it (JDK jmod format).
// We reuse Archive's mmap-based zip reader (archive.go) for the body.

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"jacobin/globals"
	"jacobin/trace"

	"github.com/edsrzf/mmap-go"
)

// jmodHeaderSize is the length of the "JM" + 2-byte version prefix that a
// .jmod file carries before its embedded zip body begins.
const jmodHeaderSize = 4

var (
	jmodMapLock sync.RWMutex
	jmodMap     map[string]string // internal class name -> jmod file name, e.g. "java.base.jmod"

	jmodArchives   = map[string]*Archive{}
	jmodArchiveMu  sync.Mutex
	baseJmodBytes  []byte
	baseJmodLoaded bool
)

// JmodMapInit builds the class-name-to-jmod-file index: it checks that
// $JAVA_HOME/jmods can be listed and records every class in java.base.jmod
// as belonging to that file. Classes in other jmod files are not indexed,
// and JmodMapFetch does no directory scan of its own, so it returns "" for
// them.
func JmodMapInit() {
	jmodMapLock.Lock()
	jmodMap = make(map[string]string)
	jmodMapLock.Unlock()

	global := globals.GetGlobalRef()
	jmodDir := filepath.Join(global.JavaHome, "jmods")
	entries, err := os.ReadDir(jmodDir)
	if err != nil {
		if globals.TraceCloadi {
			trace.Trace("JmodMapInit: cannot read " + jmodDir + ": " + err.Error())
		}
		return
	}

	baseJmodPath := filepath.Join(jmodDir, "java.base.jmod")
	archive, err := openJmod(baseJmodPath)
	if err != nil {
		if globals.TraceCloadi {
			trace.Trace("JmodMapInit: " + err.Error())
		}
		return
	}

	jmodMapLock.Lock()
	for _, f := range archive.zr.File {
		if !strings.HasPrefix(f.Name, "classes/") || !strings.HasSuffix(f.Name, ".class") {
			continue
		}
		className := strings.TrimSuffix(strings.TrimPrefix(f.Name, "classes/"), ".class")
		jmodMap[className] = "java.base.jmod"
	}
	jmodMapLock.Unlock()

	if globals.TraceCloadi {
		trace.Trace(fmt.Sprintf("JmodMapInit: indexed %d jmod files under %s", len(entries), jmodDir))
	}
}

// JmodMapFetch returns the jmod file name that owns className, or "" if
// the class isn't known to come from a jmod (e.g. it's an application
// class living on the classpath).
func JmodMapFetch(className string) string {
	jmodMapLock.RLock()
	defer jmodMapLock.RUnlock()
	if jmodMap == nil {
		return ""
	}
	return jmodMap[className]
}

// GetBaseJmodBytes reads java.base.jmod into memory once and caches its
// bytes (nil if the file cannot be read). GetClassBytes and WalkBaseJmod do
// not use these bytes; they go through the mapping jmodArchiveFor keeps.
func GetBaseJmodBytes() []byte {
	jmodArchiveMu.Lock()
	defer jmodArchiveMu.Unlock()
	if baseJmodLoaded {
		return baseJmodBytes
	}

	global := globals.GetGlobalRef()
	path := filepath.Join(global.JavaHome, "jmods", "java.base.jmod")
	data, err := os.ReadFile(path)
	if err != nil {
		if globals.TraceCloadi {
			trace.Trace("GetBaseJmodBytes: " + err.Error())
		}
		baseJmodLoaded = true
		return nil
	}
	baseJmodBytes = data
	baseJmodLoaded = true
	return baseJmodBytes
}

// GetClassBytes returns the raw .class bytes for className out of the
// named jmod file, mapping the jmod on first use and reusing the mapping
// on subsequent lookups.
func GetClassBytes(jmodFileName, className string) ([]byte, error) {
	archive, err := jmodArchiveFor(jmodFileName)
	if err != nil {
		return nil, err
	}

	member := "classes/" + className + ".class"
	rc, err := archive.zr.Open(member)
	if err != nil {
		return nil, fmt.Errorf("GetClassBytes: %s not found in %s: %w", className, jmodFileName, err)
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

// WalkBaseJmod loads a subset of java.base.jmod's classes into the
// bootstrap classloader (spec §4.B, LoadBaseClasses). Real JDK images
// restrict this to the ~1400 classes named in lib/classlist rather than all
// 6000+ embedded classes; we load only the top-level classes (names without
// '$') the jmod ships under classes/java/lang and classes/java/io as a
// stand-in for that curated list, since lib/classlist itself is a
// plain-text resource outside the jmod's classes/ tree.
func WalkBaseJmod() error {
	archive, err := jmodArchiveFor("java.base.jmod")
	if err != nil {
		return err
	}

	for _, f := range archive.zr.File {
		if !strings.HasPrefix(f.Name, "classes/java/lang/") && !strings.HasPrefix(f.Name, "classes/java/io/") {
			continue
		}
		if !strings.HasSuffix(f.Name, ".class") || strings.Contains(f.Name, "$") {
			continue
		}
		className := strings.TrimSuffix(strings.TrimPrefix(f.Name, "classes/"), ".class")
		rc, err := f.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		if _, _, err := ParseAndPostClass(&BootstrapCL, className, data); err != nil {
			if globals.TraceCloadi {
				trace.Trace("WalkBaseJmod: " + className + ": " + err.Error())
			}
		}
	}
	return nil
}

func jmodArchiveFor(jmodFileName string) (*Archive, error) {
	jmodArchiveMu.Lock()
	defer jmodArchiveMu.Unlock()
	if a, ok := jmodArchives[jmodFileName]; ok {
		return a, nil
	}

	global := globals.GetGlobalRef()
	path := filepath.Join(global.JavaHome, "jmods", jmodFileName)
	a, err := openJmod(path)
	if err != nil {
		return nil, err
	}
	jmodArchives[jmodFileName] = a
	return a, nil
}

// openJmod maps path and opens the zip body that follows the jmod header.
func openJmod(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("openJmod: %w", err)
	}
	defer f.Close()

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("openJmod: mmap of %s failed: %w", path, err)
	}
	if len(m) < jmodHeaderSize {
		_ = m.Unmap()
		return nil, fmt.Errorf("openJmod: %s is too small to be a jmod file", path)
	}

	body := []byte(m[jmodHeaderSize:])
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		_ = m.Unmap()
		return nil, fmt.Errorf("openJmod: %s: %w", path, err)
	}
	return &Archive{path: path, mapping: m, zr: zr}, nil
}
