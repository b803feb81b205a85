//go:build cgo && (android || ios)

// Build as shared library: libfieldsync.so (Android) / fieldsync.framework (iOS)
package main

/*
#include <stdlib.h>
*/
import "C"
import "unsafe"

// Every returned string is allocated with malloc and must be released
// with FreeString.

//export FieldsyncInit
func FieldsyncInit(request *C.char) *C.char {
	return C.CString(core.init(C.GoString(request)))
}

//export FieldsyncShutdown
func FieldsyncShutdown() *C.char {
	return C.CString(core.shutdown())
}

//export FieldsyncEnqueue
func FieldsyncEnqueue(request *C.char) *C.char {
	return C.CString(core.enqueue(C.GoString(request)))
}

//export FieldsyncGetQueue
func FieldsyncGetQueue() *C.char {
	return C.CString(core.getQueue())
}

//export FieldsyncGetItem
func FieldsyncGetItem(id *C.char) *C.char {
	return C.CString(core.getItem(C.GoString(id)))
}

//export FieldsyncGetStats
func FieldsyncGetStats() *C.char {
	return C.CString(core.getStats())
}

//export FieldsyncStatus
func FieldsyncStatus() *C.char {
	return C.CString(core.status())
}

//export FieldsyncRetryItem
func FieldsyncRetryItem(id *C.char) *C.char {
	return C.CString(core.retryItem(C.GoString(id)))
}

//export FieldsyncRetryAllFailed
func FieldsyncRetryAllFailed() *C.char {
	return C.CString(core.retryAllFailed())
}

//export FieldsyncRemoveItem
func FieldsyncRemoveItem(id *C.char) *C.char {
	return C.CString(core.removeItem(C.GoString(id)))
}

//export FieldsyncClearOldItems
func FieldsyncClearOldItems(maxAgeSeconds C.longlong) *C.char {
	return C.CString(core.clearOldItems(int64(maxAgeSeconds)))
}

//export FieldsyncProcessQueue
func FieldsyncProcessQueue() *C.char {
	return C.CString(core.processQueue())
}

//export FieldsyncSetOnline
func FieldsyncSetOnline(online C.int) *C.char {
	return C.CString(core.setOnline(online != 0))
}

//export FieldsyncPollEvents
func FieldsyncPollEvents() *C.char {
	return C.CString(core.pollEvents())
}

//export FieldsyncMetrics
func FieldsyncMetrics() *C.char {
	return C.CString(core.metrics())
}

//export GetLastError
func GetLastError() *C.char {
	return C.CString(core.lastError())
}

//export FreeString
func FreeString(s *C.char) {
	if s != nil {
		C.free(unsafe.Pointer(s))
	}
}
