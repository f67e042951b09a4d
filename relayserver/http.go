package relayserver

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/threshold-network/frost-relay/ciphersuite"
	"github.com/threshold-network/frost-relay/frost"
	"github.com/threshold-network/frost-relay/frosterr"
)

// NewRouter builds the chi router exposing the session-server JSON
// API (spec.md §6): every route but /challenge and /login requires a
// valid Bearer token.
func NewRouter(broker *Broker) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(broker.log))

	r.Post("/challenge", handleChallenge(broker))
	r.Post("/login", handleLogin(broker))

	r.Group(func(r chi.Router) {
		r.Use(bearerAuth)
		r.Post("/logout", handleLogout(broker))
		r.Post("/create_new_session", handleCreateSession(broker))
		r.Post("/send", handleSend(broker))
		r.Post("/receive", handleReceive(broker))
		r.Post("/close_session", handleCloseSession(broker))
		r.Post("/list_sessions", handleListSessions(broker))
	})

	return r
}

type tokenContextKey struct{}

func bearerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		header := req.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, frosterr.New(frosterr.Unauthorized, "missing bearer token"))
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")
		ctx := req.Context()
		req = req.WithContext(withToken(ctx, token))
		next.ServeHTTP(w, req)
	})
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			log.Debug("request", zap.String("method", req.Method), zap.String("path", req.URL.Path))
			next.ServeHTTP(w, req)
		})
	}
}

type errorResponse struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	code, ok := frosterr.CodeOf(err)
	name := "Unknown"
	if ok {
		name = code.String()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Code: name, Msg: err.Error()})
}

func statusFor(err error) int {
	code, ok := frosterr.CodeOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch code {
	case frosterr.Unauthorized, frosterr.UnauthenticatedPeer:
		return http.StatusUnauthorized
	case frosterr.NotFound:
		return http.StatusNotFound
	case frosterr.NotAMember, frosterr.SessionExpired:
		return http.StatusForbidden
	case frosterr.InvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, req *http.Request, v any) bool {
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, frosterr.Wrap(frosterr.InvalidArgument, err, "decode request body"))
		return false
	}
	return true
}

type challengeRequest struct {
	PubKey string `json:"pubkey"`
}

type challengeResponse struct {
	Challenge string `json:"challenge"`
}

func handleChallenge(b *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body challengeRequest
		if !decodeJSON(w, req, &body) {
			return
		}
		nonce, err := b.Challenge(PubKey(body.PubKey))
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, challengeResponse{Challenge: hex.EncodeToString(nonce)})
	}
}

type loginRequest struct {
	PubKey    string `json:"pubkey"`
	Signature string `json:"signature"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
}

// decodeSignature splits a hex-encoded "R || z" blob into its
// Element/Scalar parts, since JSON carries the signature as a single
// opaque field per spec.md §6.
func decodeSignature(suite ciphersuite.Suite, hexBlob string) (frost.Signature, error) {
	raw, err := hex.DecodeString(hexBlob)
	if err != nil {
		return frost.Signature{}, frosterr.Wrap(frosterr.InvalidArgument, err, "decode signature hex")
	}
	elementLen := len(suite.SerializeElement(suite.IdentityElement()))
	if len(raw) <= elementLen {
		return frost.Signature{}, frosterr.New(frosterr.InvalidArgument, "signature blob too short")
	}
	r, err := suite.DeserializeElement(raw[:elementLen])
	if err != nil {
		return frost.Signature{}, frosterr.Wrap(frosterr.InvalidArgument, err, "decode signature R")
	}
	z, err := suite.DeserializeScalar(raw[elementLen:])
	if err != nil {
		return frost.Signature{}, frosterr.Wrap(frosterr.InvalidArgument, err, "decode signature z")
	}
	return frost.Signature{R: r, Z: z}, nil
}

func handleLogin(b *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body loginRequest
		if !decodeJSON(w, req, &body) {
			return
		}
		sig, err := decodeSignature(b.suite, body.Signature)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		token, err := b.Login(PubKey(body.PubKey), sig)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, loginResponse{AccessToken: token})
	}
}

func handleLogout(b *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		token := tokenFrom(req.Context())
		if _, err := b.authenticate(token); err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		b.Logout(token)
		writeJSON(w, struct{}{})
	}
}

type createSessionRequest struct {
	PubKeys           []string `json:"pubkeys"`
	MessageCount      int      `json:"message_count"`
	CoordinatorPubKey string   `json:"coordinator_pubkey"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

func handleCreateSession(b *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body createSessionRequest
		if !decodeJSON(w, req, &body) {
			return
		}
		members := make([]PubKey, len(body.PubKeys))
		for i, p := range body.PubKeys {
			members[i] = PubKey(p)
		}
		id, err := b.CreateSession(tokenFrom(req.Context()), members, PubKey(body.CoordinatorPubKey), body.MessageCount)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, createSessionResponse{SessionID: id})
	}
}

type sendRequest struct {
	SessionID  string   `json:"session_id"`
	Recipients []string `json:"recipients"`
	Msg        string   `json:"msg"`
}

func handleSend(b *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body sendRequest
		if !decodeJSON(w, req, &body) {
			return
		}
		msg, err := hex.DecodeString(body.Msg)
		if err != nil {
			writeError(w, http.StatusBadRequest, frosterr.Wrap(frosterr.InvalidArgument, err, "decode msg hex"))
			return
		}
		recipients := make([]PubKey, len(body.Recipients))
		for i, r := range body.Recipients {
			recipients[i] = PubKey(r)
		}
		if err := b.Send(tokenFrom(req.Context()), body.SessionID, recipients, msg); err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, struct{}{})
	}
}

type receiveRequest struct {
	SessionID string `json:"session_id"`
}

type wireMessage struct {
	Sender string `json:"sender"`
	Msg    string `json:"msg"`
}

type receiveResponse struct {
	Msgs []wireMessage `json:"msgs"`
}

func handleReceive(b *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body receiveRequest
		if !decodeJSON(w, req, &body) {
			return
		}
		msgs, err := b.Receive(tokenFrom(req.Context()), body.SessionID)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		out := make([]wireMessage, len(msgs))
		for i, m := range msgs {
			out[i] = wireMessage{Sender: string(m.Sender), Msg: hex.EncodeToString(m.Msg)}
		}
		writeJSON(w, receiveResponse{Msgs: out})
	}
}

type closeSessionRequest struct {
	SessionID string `json:"session_id"`
}

func handleCloseSession(b *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body closeSessionRequest
		if !decodeJSON(w, req, &body) {
			return
		}
		if err := b.CloseSession(tokenFrom(req.Context()), body.SessionID); err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, struct{}{})
	}
}

type listSessionsResponse struct {
	SessionIDs []string `json:"session_ids"`
}

func handleListSessions(b *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ids, err := b.ListSessions(tokenFrom(req.Context()))
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, listSessionsResponse{SessionIDs: ids})
	}
}
