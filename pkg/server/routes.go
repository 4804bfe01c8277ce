package server

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/weberc2/blockfs/pkg/filesystem"
	. "github.com/weberc2/blockfs/pkg/types"
	pz "github.com/weberc2/httpeasy"
)

func badJSON(err error, l *logging) pz.Response {
	return fail(fmt.Errorf("parsing request JSON: %v: %w", err, InvalidRequestErr), l)
}

func (s *Service) CreateSessionRoute() pz.Route {
	return pz.Route{
		Path:   "/api/sessions",
		Method: "POST",
		Handler: func(r pz.Request) pz.Response {
			l := logging{Message: "creating session"}
			var payload struct {
				UID int32 `json:"uid"`
			}
			if err := r.JSON(&payload); err != nil {
				return badJSON(err, &l)
			}
			l.Session = s.sessions.create(payload.UID)
			return pz.Created(pz.JSON(struct {
				Session string `json:"session"`
			}{l.Session}), &l)
		},
	}
}

// DeleteSessionRoute closes every handle the session still holds.
func (s *Service) DeleteSessionRoute() pz.Route {
	return pz.Route{
		Path:   "/api/sessions/{session}",
		Method: "DELETE",
		Handler: func(r pz.Request) pz.Response {
			l := logging{Message: "deleting session", Session: r.Vars["session"]}
			handles, err := s.sessions.remove(l.Session)
			if err != nil {
				return fail(err, &l)
			}

			// the session is gone either way, so every handle gets its
			// close; handles whose objects were removed are already invalid
			closed, failed := 0, 0
			var messages []string
			for _, h := range handles {
				err := s.FileSystem.Close(h)
				switch {
				case err == nil:
					closed++
				case errors.Is(err, InvalidHandleErr):
					log.Printf(
						"INFO session `%s`: skipping stale handle `%d`",
						l.Session,
						h,
					)
				default:
					failed++
					messages = append(messages, err.Error())
				}
			}
			l.Error = strings.Join(messages, "; ")
			return pz.Ok(pz.JSON(struct {
				Closed int `json:"closed"`
				Failed int `json:"failed"`
			}{closed, failed}), &l)
		},
	}
}

func (s *Service) OpenRoute() pz.Route {
	return pz.Route{
		Path:   "/api/sessions/{session}/open",
		Method: "POST",
		Handler: func(r pz.Request) pz.Response {
			l := logging{Message: "opening path", Session: r.Vars["session"]}
			var payload struct {
				Path string `json:"path"`
			}
			if err := r.JSON(&payload); err != nil {
				return badJSON(err, &l)
			}
			l.Path = payload.Path
			if _, err := s.sessions.uid(l.Session); err != nil {
				return fail(err, &l)
			}

			h, err := s.FileSystem.Open(payload.Path)
			if err != nil {
				return fail(err, &l)
			}
			if err := s.sessions.acquire(l.Session, h); err != nil {
				// the session vanished after the open; give the reference back
				_ = s.FileSystem.Close(h)
				return fail(err, &l)
			}
			return pz.Ok(pz.JSON(struct {
				Handle filesystem.Handle `json:"handle"`
			}{h}), &l)
		},
	}
}

func (s *Service) CloseRoute() pz.Route {
	return pz.Route{
		Path:   "/api/sessions/{session}/handles/{handle}/close",
		Method: "POST",
		Handler: func(r pz.Request) pz.Response {
			l := logging{
				Message: "closing handle",
				Session: r.Vars["session"],
				Handle:  r.Vars["handle"],
			}
			h, err := parseHandle(l.Handle)
			if err != nil {
				return fail(err, &l)
			}
			if err := s.sessions.release(l.Session, h); err != nil {
				return fail(err, &l)
			}
			if err := s.FileSystem.Close(h); err != nil {
				return fail(err, &l)
			}
			return pz.Ok(pz.String("closed"), &l)
		},
	}
}

// StatRoute reports the path and metadata behind an open handle.
func (s *Service) StatRoute() pz.Route {
	return pz.Route{
		Path:   "/api/sessions/{session}/handles/{handle}",
		Method: "GET",
		Handler: func(r pz.Request) pz.Response {
			l := logging{
				Message: "stating handle",
				Session: r.Vars["session"],
				Handle:  r.Vars["handle"],
			}
			h, err := s.heldHandle(l.Session, l.Handle)
			if err != nil {
				return fail(err, &l)
			}
			path, err := s.FileSystem.Path(h)
			if err != nil {
				return fail(err, &l)
			}
			md, err := s.FileSystem.Stat(h)
			if err != nil {
				return fail(err, &l)
			}
			return pz.Ok(pz.JSON(struct {
				Path     string   `json:"path"`
				Metadata Metadata `json:"metadata"`
			}{path, md}), &l)
		},
	}
}

// AddRoute creates a file or directory owned by the session's uid.
func (s *Service) AddRoute() pz.Route {
	return pz.Route{
		Path:   "/api/sessions/{session}/entries",
		Method: "POST",
		Handler: func(r pz.Request) pz.Response {
			l := logging{Message: "adding entry", Session: r.Vars["session"]}
			var payload struct {
				Path        string      `json:"path"`
				Type        ElementType `json:"type"`
				Permissions int32       `json:"permissions"`
			}
			if err := r.JSON(&payload); err != nil {
				return badJSON(err, &l)
			}
			l.Path = payload.Path
			uid, err := s.sessions.uid(l.Session)
			if err != nil {
				return fail(err, &l)
			}
			if err := s.FileSystem.Add(
				payload.Path,
				payload.Type,
				uid,
				payload.Permissions,
			); err != nil {
				return fail(err, &l)
			}
			return pz.Created(pz.String("created"), &l)
		},
	}
}

func (s *Service) RemoveRoute() pz.Route {
	return pz.Route{
		Path:   "/api/sessions/{session}/remove",
		Method: "POST",
		Handler: func(r pz.Request) pz.Response {
			l := logging{Message: "removing entry", Session: r.Vars["session"]}
			var payload struct {
				Path string `json:"path"`
			}
			if err := r.JSON(&payload); err != nil {
				return badJSON(err, &l)
			}
			l.Path = payload.Path
			if _, err := s.sessions.uid(l.Session); err != nil {
				return fail(err, &l)
			}
			if err := s.FileSystem.Remove(payload.Path); err != nil {
				return fail(err, &l)
			}
			return pz.Ok(pz.String("removed"), &l)
		},
	}
}

func (s *Service) ListRoute() pz.Route {
	return pz.Route{
		Path:   "/api/sessions/{session}/handles/{handle}/entries",
		Method: "GET",
		Handler: func(r pz.Request) pz.Response {
			l := logging{
				Message: "listing directory",
				Session: r.Vars["session"],
				Handle:  r.Vars["handle"],
			}
			h, err := s.heldHandle(l.Session, l.Handle)
			if err != nil {
				return fail(err, &l)
			}
			infos, err := s.FileSystem.ListInfo(h)
			if err != nil {
				return fail(err, &l)
			}
			if infos == nil {
				infos = []EntryInfo{}
			}
			return pz.Ok(pz.JSON(infos), &l)
		},
	}
}

func (s *Service) ReadRoute() pz.Route {
	return pz.Route{
		Path:   "/api/sessions/{session}/handles/{handle}/read",
		Method: "POST",
		Handler: func(r pz.Request) pz.Response {
			l := logging{
				Message: "reading file",
				Session: r.Vars["session"],
				Handle:  r.Vars["handle"],
			}
			var payload struct {
				Offset Byte `json:"offset"`
				Length Byte `json:"length"`
			}
			if err := r.JSON(&payload); err != nil {
				return badJSON(err, &l)
			}
			if payload.Offset < 0 ||
				payload.Length < 0 ||
				payload.Length > MaxReadLength {
				return fail(fmt.Errorf(
					"offset `%d`, length `%d`: %w",
					payload.Offset,
					payload.Length,
					InvalidRequestErr,
				), &l)
			}
			h, err := s.heldHandle(l.Session, l.Handle)
			if err != nil {
				return fail(err, &l)
			}
			buf := make([]byte, payload.Length)
			n, err := s.FileSystem.Read(h, payload.Offset, buf)
			if err != nil {
				return fail(err, &l)
			}
			return pz.Ok(pz.JSON(struct {
				Data []byte `json:"data"`
			}{buf[:n]}), &l)
		},
	}
}

func (s *Service) WriteRoute() pz.Route {
	return pz.Route{
		Path:   "/api/sessions/{session}/handles/{handle}/write",
		Method: "POST",
		Handler: func(r pz.Request) pz.Response {
			l := logging{
				Message: "writing file",
				Session: r.Vars["session"],
				Handle:  r.Vars["handle"],
			}
			var payload struct {
				Offset Byte   `json:"offset"`
				Data   []byte `json:"data"`
			}
			if err := r.JSON(&payload); err != nil {
				return badJSON(err, &l)
			}
			if payload.Offset < 0 {
				return fail(fmt.Errorf(
					"offset `%d`: %w",
					payload.Offset,
					InvalidRequestErr,
				), &l)
			}
			h, err := s.heldHandle(l.Session, l.Handle)
			if err != nil {
				return fail(err, &l)
			}
			n, err := s.FileSystem.Write(h, payload.Offset, payload.Data)
			if err != nil {
				return fail(err, &l)
			}
			return pz.Ok(pz.JSON(struct {
				Written Byte `json:"written"`
			}{n}), &l)
		},
	}
}

func (s *Service) LastErrorRoute() pz.Route {
	return pz.Route{
		Path:   "/api/error",
		Method: "GET",
		Handler: func(r pz.Request) pz.Response {
			return pz.Ok(pz.JSON(struct {
				Error string `json:"error"`
			}{s.FileSystem.LastError()}))
		},
	}
}

func (s *Service) FreeRoute() pz.Route {
	return pz.Route{
		Path:   "/api/free",
		Method: "GET",
		Handler: func(r pz.Request) pz.Response {
			return pz.Ok(pz.JSON(struct {
				Bytes  Byte  `json:"bytes"`
				Blocks Block `json:"blocks"`
			}{s.FileSystem.FreeSpace(), s.FileSystem.FreeBlockCount()}))
		},
	}
}

func (s *Service) heldHandle(session, handle string) (filesystem.Handle, error) {
	h, err := parseHandle(handle)
	if err != nil {
		return filesystem.InvalidHandle, err
	}
	if err := s.sessions.holds(session, h); err != nil {
		return filesystem.InvalidHandle, err
	}
	return h, nil
}
