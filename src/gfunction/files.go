/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2023-6 by  the Jacobin authors. Consult jacobin.org.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0) All rights reserved.
 */

package gfunction

import (
	"jacobin/excNames"
	"jacobin/object"
)

// Field names used on java.io stream objects to carry their backing OS
// resource (spec §5, "file and network handles... registered with a
// per-VM handle map"). The raw *os.File lives in FileHandle's Fvalue
// directly rather than going through handles.Table, since these objects
// are already scoped and released by their own close() methods; the
// handles package exists for cases (see handles.Table) where the owner
// isn't a single Java object but a frame's try-with-resources set.
const (
	FilePath   = "FilePath"
	FileHandle = "FileHandle"
	FileEOF    = "FileEOF"
)

// trapFunction is the GFunction body for native methods this VM
// deliberately doesn't implement (overloads requiring a Charset/CharsetDecoder,
// which jacobin's I/O layer doesn't model). It reports the gap as an
// exception rather than silently doing nothing.
func trapFunction(params []interface{}) interface{} {
	return getGErrBlk(excNames.UnsupportedOperationException,
		"this native method overload is not implemented")
}

// eofSet records on obj whether its underlying stream has hit end-of-file.
func eofSet(obj *object.Object, eof bool) {
	obj.FieldTable[FileEOF] = object.Field{Ftype: "Z", Fvalue: eof}
}
