package classfile

import "fmt"

const (
	Magic = 0xCAFEBABE
)

// DefaultMaxMajorVersion is the newest class-file major version (Java 24)
// whose constant pool layout the scanner understands.
const DefaultMaxMajorVersion = 68

// headerSize is magic, minor, major and constant_pool_count.
const headerSize = 10

type ConstantTag uint8

const (
	ConstantUtf8               ConstantTag = 1
	ConstantInteger            ConstantTag = 3
	ConstantFloat              ConstantTag = 4
	ConstantLong               ConstantTag = 5
	ConstantDouble             ConstantTag = 6
	ConstantClass              ConstantTag = 7
	ConstantString             ConstantTag = 8
	ConstantFieldref           ConstantTag = 9
	ConstantMethodref          ConstantTag = 10
	ConstantInterfaceMethodref ConstantTag = 11
	ConstantNameAndType        ConstantTag = 12
	ConstantMethodHandle       ConstantTag = 15
	ConstantMethodType         ConstantTag = 16
	ConstantDynamic            ConstantTag = 17
	ConstantInvokeDynamic      ConstantTag = 18
	ConstantModule             ConstantTag = 19
	ConstantPackage            ConstantTag = 20
)

var tagNames = map[ConstantTag]string{
	ConstantUtf8:               "Utf8",
	ConstantInteger:            "Integer",
	ConstantFloat:              "Float",
	ConstantLong:               "Long",
	ConstantDouble:             "Double",
	ConstantClass:              "Class",
	ConstantString:             "String",
	ConstantFieldref:           "Fieldref",
	ConstantMethodref:          "Methodref",
	ConstantInterfaceMethodref: "InterfaceMethodref",
	ConstantNameAndType:        "NameAndType",
	ConstantMethodHandle:       "MethodHandle",
	ConstantMethodType:         "MethodType",
	ConstantDynamic:            "Dynamic",
	ConstantInvokeDynamic:      "InvokeDynamic",
	ConstantModule:             "Module",
	ConstantPackage:            "Package",
}

func (t ConstantTag) String() string {
	if name, ok := tagNames[t]; ok {
		return "CONSTANT_" + name
	}
	return fmt.Sprintf("ConstantTag(%d)", uint8(t))
}

// payloadSize returns the number of bytes a fixed-size entry occupies after
// its tag byte. Utf8 is variable and reported as not fixed.
func payloadSize(t ConstantTag) (size int, fixed bool) {
	switch t {
	case ConstantFieldref, ConstantMethodref, ConstantInterfaceMethodref,
		ConstantInteger, ConstantFloat, ConstantNameAndType,
		ConstantDynamic, ConstantInvokeDynamic:
		return 4, true
	case ConstantLong, ConstantDouble:
		return 8, true
	case ConstantMethodHandle:
		return 3, true
	case ConstantClass, ConstantString, ConstantMethodType,
		ConstantModule, ConstantPackage:
		return 2, true
	}
	return 0, false
}

// IsWide reports whether the entry occupies two constant pool slots.
func (t ConstantTag) IsWide() bool {
	return t == ConstantLong || t == ConstantDouble
}

// JavaVersion names the Java release that emits the given class-file major
// version.
func JavaVersion(major uint16) string {
	switch {
	case major >= 49:
		return fmt.Sprintf("Java %d", major-44)
	case major >= 45 && major <= 48:
		return fmt.Sprintf("JDK 1.%d", major-44)
	}
	return fmt.Sprintf("unknown (major %d)", major)
}
