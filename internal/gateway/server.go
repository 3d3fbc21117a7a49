package gateway

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opline/bomcat/internal/backend"
	"github.com/opline/bomcat/internal/catalog"
)

// Role is a credential's capability level.
type Role string

const (
	// RoleReadOnly may call the read operation list.
	RoleReadOnly Role = "ro"

	// RoleReadWrite may call both lists.
	RoleReadWrite Role = "rw"
)

// User is one gateway credential: a hex-encoded SHA-256 password digest
// and a role. Plaintext passwords are never stored.
type User struct {
	PasswordSHA256 string `yaml:"password_sha256"`
	Role           Role   `yaml:"role"`
}

// HashPassword returns the stored form of a password.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Server serves the gateway protocol over a shared catalog engine. The
// engine serializes its own operations, so any number of connections may
// be served concurrently.
type Server struct {
	eng   *catalog.Engine
	users map[string]User
	log   *zap.Logger
}

// NewServer creates a gateway server. users maps login names to
// credentials; a nil logger disables logging.
func NewServer(eng *catalog.Engine, users map[string]User, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{eng: eng, users: users, log: log}
}

// Serve accepts connections until the listener fails (or is closed) and
// handles each on its own goroutine.
func (s *Server) Serve(l net.Listener) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			return err
		}
		go s.handle(conn)
	}
}

// connState is the per-connection permission state. A connection starts
// unauthenticated and may call nothing until login succeeds.
type connState struct {
	id       string
	authed   bool
	writable bool
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	st := &connState{id: uuid.NewString()}
	log := s.log.With(
		zap.String("conn_id", st.id),
		zap.String("remote", conn.RemoteAddr().String()),
	)
	log.Info("connection accepted")

	for {
		payload, err := ReadFrame(conn)
		if err != nil {
			// Framing failures are the only thing that closes the
			// connection; a clean EOF is the peer hanging up.
			var fe *FramingError
			if errors.As(err, &fe) && fe.Err != nil {
				log.Info("connection closed", zap.Error(fe.Err))
			} else {
				log.Warn("framing failure", zap.Error(err))
			}
			return
		}

		var req Request
		var resp Response
		if err := json.Unmarshal(payload, &req); err != nil {
			resp.Error = &WireError{Code: codeBadRequest, Message: "malformed request: " + err.Error()}
		} else {
			resp = s.dispatch(st, &req)
			if resp.Error != nil {
				log.Debug("operation failed",
					zap.String("op", req.Op),
					zap.String("error_code", resp.Error.Code))
			}
		}

		out, err := json.Marshal(&resp)
		if err != nil {
			log.Error("response marshal failed", zap.Error(err))
			return
		}
		if err := WriteFrame(conn, out); err != nil {
			log.Warn("write failed", zap.Error(err))
			return
		}
	}
}

type loginArgs struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

// dispatch enforces the permission model and routes the call. Every
// failure is in-band; dispatch never closes the connection.
func (s *Server) dispatch(st *connState, req *Request) Response {
	if req.Op == "login" {
		return s.login(st, req.Args)
	}

	if !st.authed {
		return errResponse(&WireError{Code: codeNotAuthenticated, Message: "login required"})
	}
	switch {
	case writeOps[req.Op]:
		if !st.writable {
			return errResponse(&WireError{
				Code:    codeReadOnly,
				Message: "operation " + req.Op + " requires a read-write credential",
			})
		}
	case readOps[req.Op]:
		// allowed
	default:
		return errResponse(&WireError{Code: codeUnknownOperation, Message: "unknown operation " + req.Op})
	}

	return s.call(req.Op, req.Args)
}

func (s *Server) login(st *connState, args json.RawMessage) Response {
	var in loginArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return errResponse(&WireError{Code: codeBadRequest, Message: "malformed login arguments"})
	}
	u, ok := s.users[in.User]
	// Compare even for unknown users so the two rejections are not
	// distinguishable by timing.
	supplied := HashPassword(in.Password)
	stored := u.PasswordSHA256
	if !ok {
		stored = supplied + "x"
	}
	if subtle.ConstantTimeCompare([]byte(supplied), []byte(stored)) != 1 {
		return errResponse(&WireError{Code: codeBadCredentials, Message: "unknown user or wrong password"})
	}

	st.authed = true
	st.writable = u.Role == RoleReadWrite
	return okResponse(map[string]any{"role": u.Role})
}

func errResponse(we *WireError) Response {
	return Response{Error: we}
}

func okResponse(result any) Response {
	raw, err := json.Marshal(result)
	if err != nil {
		return Response{Error: &WireError{Code: codeInternal, Message: err.Error()}}
	}
	return Response{Result: raw}
}

// engineError converts a typed engine failure to its wire form,
// preserving the error code.
func engineError(err error) Response {
	var ie *catalog.InvariantError
	if errors.As(err, &ie) {
		return errResponse(&WireError{Code: string(ie.Code), Message: ie.Message})
	}
	var be *backend.Error
	if errors.As(err, &be) {
		return errResponse(&WireError{Code: string(be.Code), Message: be.Message})
	}
	return errResponse(&WireError{Code: codeInternal, Message: err.Error()})
}
