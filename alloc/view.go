package alloc

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/modern-go/reflect2"
)

// ViewAs points the pointer that out references at the base of buf, so a
// typed value can be laid directly over file-backed bytes. out must be a
// pointer to a pointer; the pointee type must fit in buf. Writes through the
// resulting pointer land in the allocation and therefore in its backing
// file.
//
//	var hdr *Header
//	if err := alloc.ViewAs(buf, &hdr); err != nil { ... }
//	hdr.Count = 7
//
// The view aliases buf and is invalidated by whatever invalidates buf
// (Grow, Shrink, Deallocate).
func ViewAs(buf []byte, out interface{}) error {
	t := reflect2.TypeOf(out).Type1()
	if t.Kind() != reflect.Ptr || t.Elem().Kind() != reflect.Ptr {
		return fmt.Errorf("alloc: view target must be a pointer to a pointer, got %s", t)
	}
	viewed := t.Elem().Elem()
	if need := int(viewed.Size()); need > len(buf) {
		return fmt.Errorf("alloc: view of %s needs %d bytes, allocation has %d", viewed, need, len(buf))
	}
	*(*unsafe.Pointer)(reflect2.PtrOf(out)) = unsafe.Pointer(unsafe.SliceData(buf))
	return nil
}
