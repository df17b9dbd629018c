// Package classfiletest builds synthetic class-file images for tests.
package classfiletest

import (
	"encoding/binary"
	"math"

	"github.com/dhamidi/poolscan/classfile"
)

// Builder assembles a class file whose constant pool holds exactly the
// entries added to it. Index-valued entries are not checked for validity.
type Builder struct {
	major, minor uint16
	pool         []byte
	slots        int
	count        *uint16
	tail         []byte
}

func NewBuilder() *Builder {
	return &Builder{
		major: 52,
		// access_flags, this_class, super_class and empty
		// interfaces/fields/methods/attributes tables.
		tail: make([]byte, 14),
	}
}

func (b *Builder) Version(major, minor uint16) *Builder {
	b.major, b.minor = major, minor
	return b
}

// Count overrides the constant_pool_count written to the header.
func (b *Builder) Count(n uint16) *Builder {
	b.count = &n
	return b
}

// Tail replaces the bytes written after the constant pool.
func (b *Builder) Tail(tail []byte) *Builder {
	b.tail = tail
	return b
}

// Slots returns the next free constant pool index.
func (b *Builder) Slots() int {
	return b.slots + 1
}

func (b *Builder) u1(v uint8) {
	b.pool = append(b.pool, v)
}

func (b *Builder) u2(v uint16) {
	b.pool = binary.BigEndian.AppendUint16(b.pool, v)
}

func (b *Builder) u4(v uint32) {
	b.pool = binary.BigEndian.AppendUint32(b.pool, v)
}

func (b *Builder) entry(tag classfile.ConstantTag) {
	b.u1(uint8(tag))
	b.slots++
	if tag.IsWide() {
		b.slots++
	}
}

func (b *Builder) Utf8(s string) *Builder {
	return b.Utf8Bytes([]byte(s))
}

func (b *Builder) Utf8Bytes(p []byte) *Builder {
	b.entry(classfile.ConstantUtf8)
	b.u2(uint16(len(p)))
	b.pool = append(b.pool, p...)
	return b
}

func (b *Builder) Integer(v int32) *Builder {
	b.entry(classfile.ConstantInteger)
	b.u4(uint32(v))
	return b
}

func (b *Builder) Float(v float32) *Builder {
	b.entry(classfile.ConstantFloat)
	b.u4(math.Float32bits(v))
	return b
}

func (b *Builder) Long(v int64) *Builder {
	b.entry(classfile.ConstantLong)
	b.u4(uint32(uint64(v) >> 32))
	b.u4(uint32(v))
	return b
}

func (b *Builder) Double(v float64) *Builder {
	bits := math.Float64bits(v)
	b.entry(classfile.ConstantDouble)
	b.u4(uint32(bits >> 32))
	b.u4(uint32(bits))
	return b
}

func (b *Builder) Class(nameIndex uint16) *Builder {
	b.entry(classfile.ConstantClass)
	b.u2(nameIndex)
	return b
}

func (b *Builder) StringRef(stringIndex uint16) *Builder {
	b.entry(classfile.ConstantString)
	b.u2(stringIndex)
	return b
}

func (b *Builder) Fieldref(classIndex, nameAndTypeIndex uint16) *Builder {
	return b.ref(classfile.ConstantFieldref, classIndex, nameAndTypeIndex)
}

func (b *Builder) Methodref(classIndex, nameAndTypeIndex uint16) *Builder {
	return b.ref(classfile.ConstantMethodref, classIndex, nameAndTypeIndex)
}

func (b *Builder) InterfaceMethodref(classIndex, nameAndTypeIndex uint16) *Builder {
	return b.ref(classfile.ConstantInterfaceMethodref, classIndex, nameAndTypeIndex)
}

func (b *Builder) NameAndType(nameIndex, descriptorIndex uint16) *Builder {
	return b.ref(classfile.ConstantNameAndType, nameIndex, descriptorIndex)
}

func (b *Builder) Dynamic(bootstrapIndex, nameAndTypeIndex uint16) *Builder {
	return b.ref(classfile.ConstantDynamic, bootstrapIndex, nameAndTypeIndex)
}

func (b *Builder) InvokeDynamic(bootstrapIndex, nameAndTypeIndex uint16) *Builder {
	return b.ref(classfile.ConstantInvokeDynamic, bootstrapIndex, nameAndTypeIndex)
}

func (b *Builder) ref(tag classfile.ConstantTag, first, second uint16) *Builder {
	b.entry(tag)
	b.u2(first)
	b.u2(second)
	return b
}

func (b *Builder) MethodHandle(kind uint8, referenceIndex uint16) *Builder {
	b.entry(classfile.ConstantMethodHandle)
	b.u1(kind)
	b.u2(referenceIndex)
	return b
}

func (b *Builder) MethodType(descriptorIndex uint16) *Builder {
	b.entry(classfile.ConstantMethodType)
	b.u2(descriptorIndex)
	return b
}

func (b *Builder) Module(nameIndex uint16) *Builder {
	b.entry(classfile.ConstantModule)
	b.u2(nameIndex)
	return b
}

func (b *Builder) Package(nameIndex uint16) *Builder {
	b.entry(classfile.ConstantPackage)
	b.u2(nameIndex)
	return b
}

// Raw appends an arbitrary tag byte and payload as one slot.
func (b *Builder) Raw(tag uint8, payload ...byte) *Builder {
	b.u1(tag)
	b.slots++
	b.pool = append(b.pool, payload...)
	return b
}

func (b *Builder) Bytes() []byte {
	count := uint16(b.slots + 1)
	if b.count != nil {
		count = *b.count
	}
	out := make([]byte, 0, 10+len(b.pool)+len(b.tail))
	out = binary.BigEndian.AppendUint32(out, classfile.Magic)
	out = binary.BigEndian.AppendUint16(out, b.minor)
	out = binary.BigEndian.AppendUint16(out, b.major)
	out = binary.BigEndian.AppendUint16(out, count)
	out = append(out, b.pool...)
	out = append(out, b.tail...)
	return out
}
