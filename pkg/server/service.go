// Package server exposes the filesystem over HTTP. Clients register a
// session, then open, read, write and close handles within it.
package server

import (
	"errors"
	"strconv"

	"github.com/weberc2/blockfs/pkg/filesystem"
	. "github.com/weberc2/blockfs/pkg/types"
	pz "github.com/weberc2/httpeasy"
)

// MaxReadLength bounds a single read request.
const MaxReadLength Byte = 1 << 20

// FileSystem is the engine surface the transport drives.
type FileSystem interface {
	Open(path string) (filesystem.Handle, error)
	Close(h filesystem.Handle) error
	Add(path string, et ElementType, owner int32, permissions int32) error
	Remove(path string) error
	ListInfo(h filesystem.Handle) ([]EntryInfo, error)
	Read(h filesystem.Handle, offset Byte, buf []byte) (Byte, error)
	Write(h filesystem.Handle, offset Byte, data []byte) (Byte, error)
	Stat(h filesystem.Handle) (Metadata, error)
	Path(h filesystem.Handle) (string, error)
	LastError() string
	FreeSpace() Byte
	FreeBlockCount() Block
}

var _ FileSystem = (*filesystem.FileSystem)(nil)

type Service struct {
	FileSystem FileSystem
	sessions   sessions
}

func (s *Service) Routes() []pz.Route {
	return []pz.Route{
		s.CreateSessionRoute(),
		s.DeleteSessionRoute(),
		s.OpenRoute(),
		s.CloseRoute(),
		s.StatRoute(),
		s.AddRoute(),
		s.RemoveRoute(),
		s.ListRoute(),
		s.ReadRoute(),
		s.WriteRoute(),
		s.LastErrorRoute(),
		s.FreeRoute(),
	}
}

type logging struct {
	Message string `json:"message"`
	Session string `json:"session,omitempty"`
	Path    string `json:"path,omitempty"`
	Handle  string `json:"handle,omitempty"`
	Error   string `json:"error,omitempty"`
}

// fail maps engine errors onto statuses: malformed requests and type
// mismatches are 400, name clashes 409, missing objects, handles and
// sessions 404, anything else 500.
func fail(err error, l *logging) pz.Response {
	l.Error = err.Error()
	body := pz.JSON(struct {
		Error string `json:"error"`
	}{err.Error()})

	switch {
	case errors.Is(err, NotFoundErr),
		errors.Is(err, InvalidHandleErr),
		errors.Is(err, SessionNotFoundErr):
		return pz.NotFound(body, l)
	case errors.Is(err, AlreadyExistsErr):
		return pz.Conflict(body, l)
	case errors.Is(err, InvalidPathErr),
		errors.Is(err, NotADirErr),
		errors.Is(err, NotAFileErr),
		errors.Is(err, NameTooLongErr),
		errors.Is(err, InvalidNameErr),
		errors.Is(err, InvalidElementTypeErr),
		errors.Is(err, RootRemovalErr),
		errors.Is(err, InvalidRequestErr):
		return pz.BadRequest(body, l)
	default:
		return pz.InternalServerError(l)
	}
}

const InvalidRequestErr ConstError = "invalid request"

func parseHandle(s string) (filesystem.Handle, error) {
	h, err := strconv.ParseInt(s, 10, 64)
	if err != nil || h < 0 {
		return filesystem.InvalidHandle, InvalidHandleErr
	}
	return filesystem.Handle(h), nil
}
