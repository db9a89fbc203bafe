package csg

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"strconv"
	"strings"
)

// FaceMode is the addressing scheme of a FaceID.
type FaceMode uint8

const (
	FaceModeInvalid FaceMode = iota
	FaceModeBits
	FaceModeIndex
)

const (
	FaceBitsNone uint32 = 0
	FaceBitsAny  uint32 = 0x7FFFFFFF

	FaceIndexNone int32 = -1
	FaceIndexAny  int32 = math.MaxInt32

	PartNone int32 = -1
	PartAny  int32 = math.MaxInt32

	// FirstPart and SecondPart index the operands of a boolean composite.
	FirstPart  int32 = 0
	SecondPart int32 = 1
)

// MaxPartDepth is the maximum nesting of composites a FaceID can record.
const MaxPartDepth = 16

// FaceID identifies a face of a shape, optionally prefixed by the stack of part
// indices leading to it through nested composites. FaceID is a comparable value
// type; PrependPart and InheritParts return modified copies.
//
// The zero value is the invalid face, which masks treat as "any face".
type FaceID struct {
	mode   FaceMode
	bits   uint32
	index  int32
	nparts uint8
	parts  [MaxPartDepth]int32
}

// FaceInvalid returns the invalid face identifier.
func FaceInvalid() FaceID { return FaceID{} }

// FaceBits returns a bits-mode identifier.
func FaceBits(b uint32) FaceID {
	var f FaceID
	f.SetFaceBits(b)
	return f
}

// FaceIndex returns an index-mode identifier.
func FaceIndex(i int32) FaceID {
	var f FaceID
	f.SetFaceIndex(i)
	return f
}

// AnyFaceBits returns a bits-mode wildcard.
func AnyFaceBits() FaceID { return FaceBits(FaceBitsAny) }

// AnyFaceIndex returns an index-mode wildcard.
func AnyFaceIndex() FaceID { return FaceIndex(FaceIndexAny) }

func (f FaceID) Mode() FaceMode { return f.mode }

// IsValid reports whether an addressing mode is set.
func (f FaceID) IsValid() bool { return f.mode != FaceModeInvalid }

// IsOK reports whether f is valid, resolves to a face and has no NONE parts.
func (f FaceID) IsOK() bool {
	switch f.mode {
	case FaceModeBits:
		if f.bits == FaceBitsNone {
			return false
		}
	case FaceModeIndex:
		if f.index == FaceIndexNone {
			return false
		}
	default:
		return false
	}
	for _, p := range f.Parts() {
		if p == PartNone {
			return false
		}
	}
	return true
}

// IsAny reports whether f is a wildcard over faces and every part.
func (f FaceID) IsAny() bool {
	for _, p := range f.Parts() {
		if p != PartAny {
			return false
		}
	}
	switch f.mode {
	case FaceModeBits:
		return f.bits == FaceBitsAny
	case FaceModeIndex:
		return f.index == FaceIndexAny
	}
	return f.nparts > 0
}

// SetFaceBits sets bits mode with mask b.
func (f *FaceID) SetFaceBits(b uint32) {
	f.mode = FaceModeBits
	f.bits = b
	f.index = FaceIndexNone
}

// SetFaceBit sets bits mode with a single bit. It panics if bit is not a power of two.
func (f *FaceID) SetFaceBit(bit uint32) {
	if bits.OnesCount32(bit) != 1 {
		panic("face bit must have exactly one bit set: " + strconv.FormatUint(uint64(bit), 2))
	}
	f.SetFaceBits(bit)
}

// SetFaceIndex sets index mode.
func (f *FaceID) SetFaceIndex(i int32) {
	f.mode = FaceModeIndex
	f.index = i
	f.bits = FaceBitsNone
}

func (f FaceID) Bits() uint32 { return f.bits }
func (f FaceID) Index() int32 { return f.index }

// HasFaceBit reports whether f is in bits mode and shares a bit with mask.
func (f FaceID) HasFaceBit(mask uint32) bool {
	return f.mode == FaceModeBits && f.bits&mask != 0
}

// Depth returns the number of part indices.
func (f FaceID) Depth() int { return int(f.nparts) }

// Part returns the part index at depth. It returns PartNone when depth is out of range.
func (f FaceID) Part(depth int) int32 {
	if depth < 0 || depth >= int(f.nparts) {
		return PartNone
	}
	return f.parts[depth]
}

// Parts returns the part stack, outermost first.
func (f FaceID) Parts() []int32 { return f.parts[:f.nparts] }

// AppendPart pushes part at the back of the stack.
func (f *FaceID) AppendPart(part int32) {
	if int(f.nparts) == MaxPartDepth {
		panic("face identifier part stack overflow")
	}
	f.parts[f.nparts] = part
	f.nparts++
}

// PrependPart returns a copy of f with part pushed at the front of the stack.
func (f FaceID) PrependPart(part int32) FaceID {
	if int(f.nparts) == MaxPartDepth {
		panic("face identifier part stack overflow")
	}
	copy(f.parts[1:f.nparts+1], f.parts[:f.nparts])
	f.parts[0] = part
	f.nparts++
	return f
}

// MatchPart reports whether the part at depth matches value. A stored or
// queried PartAny matches anything, a queried PartNone matches nothing.
func (f FaceID) MatchPart(depth int, value int32) bool {
	if depth < 0 || depth >= int(f.nparts) || value == PartNone {
		return false
	}
	stored := f.parts[depth]
	return stored == PartAny || value == PartAny || stored == value
}

// CanInheritParts reports whether depth parts can be stripped from f.
func (f FaceID) CanInheritParts(depth int) bool {
	return depth >= 0 && int(f.nparts) >= depth
}

// InheritParts returns a copy of f without its first depth parts.
func (f FaceID) InheritParts(depth int) FaceID {
	if !f.CanInheritParts(depth) {
		panic("cannot inherit " + strconv.Itoa(depth) + " parts from " + f.String())
	}
	out := f
	out.nparts = 0
	out.parts = [MaxPartDepth]int32{}
	for _, p := range f.parts[depth:f.nparts] {
		out.AppendPart(p)
	}
	return out
}

// Match reports whether f and other designate the same face, honoring wildcards.
func (f FaceID) Match(other FaceID) bool {
	if f.nparts != other.nparts || f.mode != other.mode {
		return false
	}
	for i := 0; i < int(f.nparts); i++ {
		if !f.MatchPart(i, other.parts[i]) {
			return false
		}
	}
	switch f.mode {
	case FaceModeBits:
		return f.bits&other.bits != 0
	case FaceModeIndex:
		return f.index == other.index || f.index == FaceIndexAny || other.index == FaceIndexAny
	}
	return true
}

// allowsBit reports whether f used as a mask permits the face with bit.
// The invalid face permits everything.
func (f FaceID) allowsBit(bit uint32) bool {
	switch f.mode {
	case FaceModeInvalid:
		return true
	case FaceModeBits:
		return f.bits&bit != 0
	case FaceModeIndex:
		return f.index == FaceIndexAny
	}
	return false
}

// allowsIndex is the index mode counterpart of allowsBit.
func (f FaceID) allowsIndex(i int32) bool {
	switch f.mode {
	case FaceModeInvalid:
		return true
	case FaceModeIndex:
		return f.index == i || f.index == FaceIndexAny
	case FaceModeBits:
		return f.bits == FaceBitsAny
	}
	return false
}

// String formats f as [parts=0.1:bits=101], [index=2] or [!] for the invalid face.
func (f FaceID) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	if f.nparts > 0 {
		sb.WriteString("parts=")
		for i, p := range f.Parts() {
			if i > 0 {
				sb.WriteByte('.')
			}
			sb.WriteString(formatPart(p))
		}
		sb.WriteByte(':')
	}
	switch f.mode {
	case FaceModeBits:
		sb.WriteString("bits=")
		switch f.bits {
		case FaceBitsAny:
			sb.WriteByte('*')
		case FaceBitsNone:
			sb.WriteByte('-')
		default:
			sb.WriteString(strconv.FormatUint(uint64(f.bits), 2))
		}
	case FaceModeIndex:
		sb.WriteString("index=")
		switch f.index {
		case FaceIndexAny:
			sb.WriteByte('*')
		case FaceIndexNone:
			sb.WriteByte('-')
		default:
			sb.WriteString(strconv.Itoa(int(f.index)))
		}
	default:
		sb.WriteByte('!')
	}
	sb.WriteByte(']')
	return sb.String()
}

func formatPart(p int32) string {
	switch p {
	case PartAny:
		return "*"
	case PartNone:
		return "-"
	}
	return strconv.Itoa(int(p))
}

var errFaceSyntax = errors.New("invalid face identifier syntax")

// ParseFaceID parses the format produced by FaceID.String.
func ParseFaceID(s string) (FaceID, error) {
	var f FaceID
	s = strings.TrimSpace(s)
	if len(s) < 3 || s[0] != '[' || s[len(s)-1] != ']' {
		return f, fmt.Errorf("%w: %q", errFaceSyntax, s)
	}
	body := s[1 : len(s)-1]
	if rest, ok := strings.CutPrefix(body, "parts="); ok {
		partStr, tail, found := strings.Cut(rest, ":")
		if !found {
			return FaceID{}, fmt.Errorf("%w: missing ':' after parts in %q", errFaceSyntax, s)
		}
		for _, ps := range strings.Split(partStr, ".") {
			p, err := parsePart(ps)
			if err != nil {
				return FaceID{}, fmt.Errorf("%w: %q: %v", errFaceSyntax, s, err)
			}
			if int(f.nparts) == MaxPartDepth {
				return FaceID{}, fmt.Errorf("%w: more than %d parts in %q", errFaceSyntax, MaxPartDepth, s)
			}
			f.AppendPart(p)
		}
		body = tail
	}
	switch {
	case body == "!":
		return f, nil
	case strings.HasPrefix(body, "bits="):
		v := body[len("bits="):]
		switch v {
		case "*":
			f.SetFaceBits(FaceBitsAny)
		case "-":
			f.SetFaceBits(FaceBitsNone)
		default:
			b, err := strconv.ParseUint(v, 2, 31)
			if err != nil {
				return FaceID{}, fmt.Errorf("%w: %q: %v", errFaceSyntax, s, err)
			}
			f.SetFaceBits(uint32(b))
		}
	case strings.HasPrefix(body, "index="):
		v := body[len("index="):]
		switch v {
		case "*":
			f.SetFaceIndex(FaceIndexAny)
		case "-":
			f.SetFaceIndex(FaceIndexNone)
		default:
			i, err := strconv.ParseInt(v, 10, 32)
			if err != nil || i < 0 {
				return FaceID{}, fmt.Errorf("%w: bad index in %q", errFaceSyntax, s)
			}
			f.SetFaceIndex(int32(i))
		}
	default:
		return FaceID{}, fmt.Errorf("%w: %q", errFaceSyntax, s)
	}
	return f, nil
}

func parsePart(s string) (int32, error) {
	switch s {
	case "*":
		return PartAny, nil
	case "-":
		return PartNone, nil
	}
	i, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, err
	}
	if i < 0 {
		return 0, errors.New("negative part index")
	}
	return int32(i), nil
}
