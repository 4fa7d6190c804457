// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package fault

// Kind is the taxonomy code attached to every adapter failure.
//
// The string values are stable wire codes; they appear in HTTP error
// bodies and CLI output.
type Kind string

const (
	// Java runtime
	KindJavaNotFound    Kind = "JAVA_NOT_FOUND"
	KindJavaSpawnFailed Kind = "JAVA_SPAWN_FAILED"
	KindJavaTimeout     Kind = "JAVA_TIMEOUT"

	// File system
	KindFileNotFound      Kind = "FILE_NOT_FOUND"
	KindAccessDenied      Kind = "FILE_ACCESS_DENIED"
	KindPathTraversal     Kind = "FILE_PATH_TRAVERSAL"
	KindIOError           Kind = "FILE_IO_ERROR"
	KindFileBusy          Kind = "FILE_BUSY"
	KindArchiveCorrupted  Kind = "JAR_CORRUPTED"
	KindEntryNotFound     Kind = "JAR_ENTRY_NOT_FOUND"
	KindInvalidURI        Kind = "JAR_INVALID_URI"
	KindExtractionFailed  Kind = "JAR_EXTRACTION_FAILED"
	KindArchiveLocked     Kind = "JAR_LOCKED"
	KindSyntaxError       Kind = "PARSE_SYNTAX_ERROR"
	KindMalformedXML      Kind = "PARSE_XML_MALFORMED"
	KindProcessSpawn      Kind = "PROCESS_SPAWN_FAILED"
	KindProcessTimeout    Kind = "PROCESS_TIMEOUT"
	KindToolsNotFound     Kind = "CONFIG_TOOLS_NOT_FOUND"
	KindInvalidConfigPath Kind = "CONFIG_INVALID_PATH"
)

// retryable is the static retry table. Every Kind has an entry.
var retryable = map[Kind]bool{
	KindJavaNotFound:      false,
	KindJavaSpawnFailed:   true,
	KindJavaTimeout:       false,
	KindFileNotFound:      false,
	KindAccessDenied:      false,
	KindPathTraversal:     false,
	KindIOError:           true,
	KindFileBusy:          true,
	KindArchiveCorrupted:  false,
	KindEntryNotFound:     false,
	KindInvalidURI:        false,
	KindExtractionFailed:  true,
	KindArchiveLocked:     true,
	KindSyntaxError:       false,
	KindMalformedXML:      false,
	KindProcessSpawn:      true,
	KindProcessTimeout:    false,
	KindToolsNotFound:     false,
	KindInvalidConfigPath: false,
}

// Kinds returns every kind in declaration order.
func Kinds() []Kind {
	return []Kind{
		KindJavaNotFound, KindJavaSpawnFailed, KindJavaTimeout,
		KindFileNotFound, KindAccessDenied, KindPathTraversal, KindIOError, KindFileBusy,
		KindArchiveCorrupted, KindEntryNotFound, KindInvalidURI, KindExtractionFailed, KindArchiveLocked,
		KindSyntaxError, KindMalformedXML,
		KindProcessSpawn, KindProcessTimeout,
		KindToolsNotFound, KindInvalidConfigPath,
	}
}

// IsRetryable reports whether failures of kind k are transient.
//
// Unknown kinds are permanent.
func IsRetryable(k Kind) bool {
	return retryable[k]
}

// Valid reports whether k belongs to the taxonomy.
func (k Kind) Valid() bool {
	_, ok := retryable[k]
	return ok
}

// String returns the wire code.
func (k Kind) String() string {
	return string(k)
}
