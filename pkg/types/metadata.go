package types

import "time"

type Metadata struct {
	Type        ElementType `json:"type"`
	Owner       int32       `json:"owner"`
	Permissions int32       `json:"permissions"`
	Size        Byte        `json:"size"`
	Created     time.Time   `json:"created"`
	Modified    time.Time   `json:"modified"`
	Accessed    time.Time   `json:"accessed"`
}

// EntryInfo pairs a directory entry's name with its child's metadata.
type EntryInfo struct {
	Name     string   `json:"name"`
	Metadata Metadata `json:"metadata"`
}
