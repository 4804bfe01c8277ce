package types

type ConstError string

func (err ConstError) Error() string { return string(err) }

const (
	InvalidPathErr     ConstError = "invalid path"
	NotFoundErr        ConstError = "not found"
	NotADirErr         ConstError = "not a directory"
	NotAFileErr        ConstError = "not a file"
	AlreadyExistsErr   ConstError = "already exists"
	DeviceExhaustedErr ConstError = "device exhausted"
	IOFailureErr       ConstError = "i/o failure"

	InvalidHandleErr      ConstError = "invalid handle"
	NameTooLongErr        ConstError = "name too long"
	InvalidNameErr        ConstError = "invalid name"
	InvalidElementTypeErr ConstError = "invalid element type"
	ReservedBlockErr      ConstError = "reserved block"
	BlockOutOfRangeErr    ConstError = "block out of range"
	DeviceExistsErr       ConstError = "device already exists"
	NotMountedErr         ConstError = "device not mounted"
	RootRemovalErr        ConstError = "cannot remove root"
	NoRootErr             ConstError = "no root directory"
	UnformattedErr        ConstError = "device not formatted"
)
