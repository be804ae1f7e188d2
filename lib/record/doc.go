// Package record defines records and the operations that can be applied to
// them in a single atomic Operate call.
//
// A record is a key plus a set of named bins. Bin values follow the value
// model of package cdt, so a bin can hold a scalar, a list or a map.
//
// Operations form a closed set of types (Get, Put, ListAppend, ListGetBy,
// ListRemoveBy, MapPut, MapGetBy, ...). Each carries exactly the fields its
// kind needs, so invalid combinations can not be expressed. Operate applies a
// sequence of operations to a copy of the record and only hands the copy back
// if every operation succeeded:
//
//	out, results, err := record.Operate(key, rec, []record.Operation{
//		record.ListRemoveBy{Bin: "l", Selector: cdt.IndexRange(2, 2), Return: cdt.ReturnValue},
//		record.ListSize{Bin: "l"},
//	})
//
// The package also contains the binary encodings of records and operations
// (codec.go), the JSON descriptors accepted on the command line
// (descriptor.go) and a registry for user defined functions used by batch
// apply (udf.go).
package record
