package classfile

import "errors"

var (
	// ErrTruncated means a read needed bytes beyond the end of the buffer.
	ErrTruncated = errors.New("class file truncated")

	// ErrUnknownTag means the pool holds a tag with no known entry size, so
	// no later offset can be trusted.
	ErrUnknownTag = errors.New("unknown constant pool tag")
)
