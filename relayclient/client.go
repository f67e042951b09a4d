// Package relayclient is the HTTP client side of relayserver's JSON
// API (spec.md §6), used by the coordinator and participant
// orchestrators (C9) to drive a real rendezvous session over HTTPS.
// Mirrors relayserver/http.go's request/response shapes independently,
// the way a client and server of the same wire contract normally live
// in separate packages/modules.
package relayclient

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/threshold-network/frost-relay/frosterr"
)

// Client talks to one relayserver instance over HTTPS.
type Client struct {
	baseURL     string
	accessToken string
	http        *http.Client
}

// New builds a Client targeting baseURL (e.g. "https://relay.example").
func New(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: 30 * time.Second}}
}

// SetAccessToken installs the bearer token returned by Login for all
// subsequent authenticated calls.
func (c *Client) SetAccessToken(token string) { c.accessToken = token }

type errorBody struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

func (c *Client) do(path string, reqBody, respBody any, authed bool) error {
	var bodyReader io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return frosterr.Wrap(frosterr.InvalidArgument, err, "encode request body")
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bodyReader)
	if err != nil {
		return frosterr.Wrap(frosterr.NetworkFailure, err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return frosterr.Wrap(frosterr.NetworkFailure, err, "%s", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var e errorBody
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return frosterr.New(codeFromName(e.Code), "%s: %s", path, e.Msg)
	}
	if respBody == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
		return frosterr.Wrap(frosterr.MalformedEncoding, err, "decode %s response", path)
	}
	return nil
}

// codeNames maps every frosterr.Code's String() back onto itself, so
// codeFromName can recover a Code from the server's {"code": "..."}
// response string.
var codeNames = func() map[string]frosterr.Code {
	all := []frosterr.Code{
		frosterr.InvalidThreshold, frosterr.InvalidArgument, frosterr.UnknownIdentifier,
		frosterr.DuplicateIdentifier, frosterr.MalformedEncoding, frosterr.WrongCiphersuite,
		frosterr.NonCanonicalScalar, frosterr.NonCanonicalElement, frosterr.IdentityElement,
		frosterr.InvalidProofOfKnowledge, frosterr.InvalidShare, frosterr.InconsistentPublicKeyPackage,
		frosterr.NonceReuse, frosterr.MissingCommitments, frosterr.InvalidSigningPackage,
		frosterr.InvalidSignatureShare, frosterr.InvalidAggregate, frosterr.Unauthorized,
		frosterr.NotFound, frosterr.NotAMember, frosterr.SessionExpired,
		frosterr.UnauthenticatedPeer, frosterr.NetworkFailure,
	}
	m := make(map[string]frosterr.Code, len(all))
	for _, c := range all {
		m[c.String()] = c
	}
	return m
}()

// codeFromName maps the server's {"code": "..."} string back onto a
// frosterr.Code so callers can branch with frosterr.CodeOf as usual.
func codeFromName(name string) frosterr.Code {
	if code, ok := codeNames[name]; ok {
		return code
	}
	return frosterr.NetworkFailure
}

// Challenge requests a fresh login nonce for pubkey (hex-encoded).
func (c *Client) Challenge(pubkey string) (string, error) {
	var resp struct {
		Challenge string `json:"challenge"`
	}
	err := c.do("/challenge", map[string]string{"pubkey": pubkey}, &resp, false)
	return resp.Challenge, err
}

// Login exchanges a hex-encoded "R || z" Schnorr signature over the
// outstanding challenge for a bearer access token, and installs it on
// the Client.
func (c *Client) Login(pubkey, signatureHex string) (string, error) {
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	err := c.do("/login", map[string]string{"pubkey": pubkey, "signature": signatureHex}, &resp, false)
	if err != nil {
		return "", err
	}
	c.SetAccessToken(resp.AccessToken)
	return resp.AccessToken, nil
}

// Logout revokes the installed access token.
func (c *Client) Logout() error {
	return c.do("/logout", nil, nil, true)
}

// CreateSession opens a new session with the given member pubkeys
// (hex-encoded), returning the new SessionId.
func (c *Client) CreateSession(members []string, coordinatorPubkey string, messageCount int) (string, error) {
	req := map[string]any{
		"pubkeys":            members,
		"message_count":      messageCount,
		"coordinator_pubkey": coordinatorPubkey,
	}
	var resp struct {
		SessionID string `json:"session_id"`
	}
	err := c.do("/create_new_session", req, &resp, true)
	return resp.SessionID, err
}

// Send enqueues hex-encoded msg onto every listed recipient's queue.
func (c *Client) Send(sessionID string, recipients []string, msgHex string) error {
	req := map[string]any{
		"session_id": sessionID,
		"recipients": recipients,
		"msg":        msgHex,
	}
	return c.do("/send", req, nil, true)
}

// ReceivedMessage is one drained queue entry.
type ReceivedMessage struct {
	Sender string `json:"sender"`
	Msg    string `json:"msg"`
}

// Receive drains the caller's queue for sessionID.
func (c *Client) Receive(sessionID string) ([]ReceivedMessage, error) {
	var resp struct {
		Msgs []ReceivedMessage `json:"msgs"`
	}
	err := c.do("/receive", map[string]string{"session_id": sessionID}, &resp, true)
	return resp.Msgs, err
}

// CloseSession deletes a session the caller owns.
func (c *Client) CloseSession(sessionID string) error {
	return c.do("/close_session", map[string]string{"session_id": sessionID}, nil, true)
}

// ListSessions returns every session id the caller belongs to.
func (c *Client) ListSessions() ([]string, error) {
	var resp struct {
		SessionIDs []string `json:"session_ids"`
	}
	err := c.do("/list_sessions", nil, &resp, true)
	return resp.SessionIDs, err
}

// WaitForMessages polls Receive every interval until at least want
// messages have arrived or ctx-less timeout elapses, the pattern both
// cmd/coordinator and cmd/participant use since relayserver's receive
// is explicitly non-blocking (spec.md §4.5).
func (c *Client) WaitForMessages(sessionID string, want int, interval, timeout time.Duration) ([]ReceivedMessage, error) {
	deadline := time.Now().Add(timeout)
	var all []ReceivedMessage
	for {
		msgs, err := c.Receive(sessionID)
		if err != nil {
			return nil, err
		}
		all = append(all, msgs...)
		if len(all) >= want {
			return all, nil
		}
		if time.Now().After(deadline) {
			return all, frosterr.New(frosterr.NetworkFailure, "timed out waiting for %d message(s), got %d", want, len(all))
		}
		time.Sleep(interval)
	}
}

