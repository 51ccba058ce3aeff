package record

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"reflect"
)

// PayloadCodec converts a fixed-size payload value to and from the bytes
// stored in the record.
type PayloadCodec[T any] interface {
	Size() int
	MarshalPayload(v T) ([]byte, error)
	UnmarshalPayload(data []byte) (T, error)
}

// BinaryPayload stores a fixed-size value with encoding/binary in
// little-endian order. T must have a fixed encoded size: numbers, bools,
// arrays and structs of those with exported fields.
type BinaryPayload[T any] struct {
	size int
}

// NewBinaryPayload returns the codec for T, or an error when T has no fixed
// encoded size or holds unexported fields, which encoding/binary can write
// but not read back.
func NewBinaryPayload[T any]() (BinaryPayload[T], error) {
	var zero T
	size := binary.Size(zero)
	if size <= 0 {
		return BinaryPayload[T]{}, fmt.Errorf("record: %T has no fixed binary size", zero)
	}
	if err := checkExported(reflect.TypeOf(zero), fmt.Sprintf("%T", zero)); err != nil {
		return BinaryPayload[T]{}, err
	}
	return BinaryPayload[T]{size: size}, nil
}

// checkExported rejects unexported struct fields anywhere in t. Blank fields
// are padding and are skipped by encoding/binary.
func checkExported(t reflect.Type, path string) error {
	switch t.Kind() {
	case reflect.Array:
		return checkExported(t.Elem(), path+"[]")
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.Name == "_" {
				continue
			}
			if !f.IsExported() {
				return fmt.Errorf("record: %s.%s is unexported and cannot be decoded", path, f.Name)
			}
			if err := checkExported(f.Type, path+"."+f.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

// Size returns the encoded size of T
func (p BinaryPayload[T]) Size() int { return p.size }

// MarshalPayload encodes v
func (p BinaryPayload[T]) MarshalPayload(v T) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, p.size))
	if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalPayload decodes data into a T
func (p BinaryPayload[T]) UnmarshalPayload(data []byte) (T, error) {
	var v T
	if len(data) != p.size {
		return v, fmt.Errorf("record: payload is %d bytes, want %d", len(data), p.size)
	}
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &v); err != nil {
		return v, err
	}
	return v, nil
}

// BytesPayload stores raw bytes in a payload of N bytes. Shorter values are
// zero padded.
type BytesPayload struct {
	N int
}

// Size returns N
func (p BytesPayload) Size() int { return p.N }

// MarshalPayload pads v to N bytes
func (p BytesPayload) MarshalPayload(v []byte) ([]byte, error) {
	if len(v) > p.N {
		return nil, fmt.Errorf("record: payload is %d bytes, limit %d", len(v), p.N)
	}
	out := make([]byte, p.N)
	copy(out, v)
	return out, nil
}

// UnmarshalPayload returns a copy of data
func (p BytesPayload) UnmarshalPayload(data []byte) ([]byte, error) {
	if len(data) != p.N {
		return nil, fmt.Errorf("record: payload is %d bytes, want %d", len(data), p.N)
	}
	return append([]byte(nil), data...), nil
}
