package types

import "fmt"

type ElementType int32

const (
	ElementTypeDirectory ElementType = iota
	ElementTypeFile
	ElementTypeSymLink
)

func (et ElementType) String() string {
	switch et {
	case ElementTypeDirectory:
		return "Directory"
	case ElementTypeFile:
		return "File"
	case ElementTypeSymLink:
		return "SymLink"
	default:
		return fmt.Sprintf("ElementType(%d)", int32(et))
	}
}

func (et ElementType) MarshalJSON() ([]byte, error) {
	s := et.String()
	out := make([]byte, len(s)+2)
	out[0] = '"'
	out[len(out)-1] = '"'
	copy(out[1:], s)
	return out, nil
}

func (et *ElementType) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf(
			"unmarshaling element type `%s`: %w",
			data,
			InvalidElementTypeErr,
		)
	}
	parsed, err := ParseElementType(string(data[1 : len(data)-1]))
	if err != nil {
		return fmt.Errorf("unmarshaling element type: %w", err)
	}
	*et = parsed
	return nil
}

// ParseElementType accepts the String() form or the short forms `file`,
// `dir` and `directory` (case-sensitive).
func ParseElementType(s string) (ElementType, error) {
	switch s {
	case "Directory", "directory", "dir":
		return ElementTypeDirectory, nil
	case "File", "file":
		return ElementTypeFile, nil
	case "SymLink", "symlink":
		return ElementTypeSymLink, nil
	default:
		return 0, fmt.Errorf(
			"parsing element type `%s`: %w",
			s,
			InvalidElementTypeErr,
		)
	}
}

// Validate reports whether the engine can create elements of this type.
// Symbolic links are declared but not implemented.
func (et ElementType) Validate() error {
	if et != ElementTypeDirectory && et != ElementTypeFile {
		return fmt.Errorf(
			"validating element type `%s`: %w",
			et,
			InvalidElementTypeErr,
		)
	}
	return nil
}
