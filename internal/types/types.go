// Package types models BAML static types. Types are interned: structurally
// equal descriptors share one TypeID, so identity comparison is type equality.
package types

import "fmt"

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// Kind enumerates all supported kinds of types.
type Kind uint8

const (
	KindInvalid Kind = iota
	// KindUnknown is the element type of an empty literal; it unifies with anything.
	KindUnknown
	KindNull
	KindInt
	KindFloat
	KindBool
	KindString
	KindList
	KindMap
	KindOptional
	KindUnion
	KindClass
	KindEnum
	KindMedia
	KindArrow
	// KindTop accepts every value.
	KindTop
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindUnknown:
		return "unknown"
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindOptional:
		return "optional"
	case KindUnion:
		return "union"
	case KindClass:
		return "class"
	case KindEnum:
		return "enum"
	case KindMedia:
		return "media"
	case KindArrow:
		return "arrow"
	case KindTop:
		return "top"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Media kinds carried in Type.Name for KindMedia.
const (
	MediaImage = "image"
	MediaAudio = "audio"
	MediaVideo = "video"
	MediaPDF   = "pdf"
)

// Type is a compact descriptor for any supported type.
type Type struct {
	Kind Kind
	Elem TypeID // list element, optional inner, map value, arrow result
	Key  TypeID // map key
	Name string // class/enum name, media kind
	// Members holds union members or arrow parameters.
	Members []TypeID
}

// Builtins stores TypeIDs for primitive types.
type Builtins struct {
	Invalid TypeID
	Unknown TypeID
	Null    TypeID
	Int     TypeID
	Float   TypeID
	Bool    TypeID
	String  TypeID
	Top     TypeID
}
