package classfile

import "strings"

func InternalToSourceName(name string) string {
	return strings.ReplaceAll(name, "/", ".")
}

func SourceToInternalName(name string) string {
	return strings.ReplaceAll(name, ".", "/")
}

// ClassDescriptor returns the field descriptor form of an internal class
// name, as it appears inside field and method descriptors.
func ClassDescriptor(internalName string) string {
	return "L" + internalName + ";"
}
