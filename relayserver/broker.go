// Package relayserver implements the rendezvous broker (spec.md §4.5):
// a per-process in-memory server that authenticates accounts, creates
// fixed-membership sessions, and carries opaque, Noise-sealed protocol
// traffic between a Coordinator and its Participants. The broker never
// parses message content; it only routes bytes between FIFO queues.
package relayserver

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/threshold-network/frost-relay/ciphersuite"
	"github.com/threshold-network/frost-relay/frost"
	"github.com/threshold-network/frost-relay/frosterr"
)

// PubKey is a hex-encoded group element, used as the account identity.
type PubKey string

// DefaultIdleTimeout is the interval of session inactivity after which
// a session is garbage-collected regardless of owner action
// (spec.md §4.5).
const DefaultIdleTimeout = 10 * time.Minute

const challengeTTL = 2 * time.Minute

type challengeEntry struct {
	nonce     []byte
	expiresAt time.Time
}

type account struct {
	pubkey      PubKey
	accessToken string
}

// QueuedMessage is one entry drained by Receive: the sealed bytes plus
// the pubkey of whoever sent them, so the Noise layer above can select
// the right per-pair handshake state.
type QueuedMessage struct {
	Sender PubKey
	Msg    []byte
}

type session struct {
	mu           sync.Mutex
	id           string
	owner        PubKey
	members      map[PubKey]bool
	queues       map[PubKey][]QueuedMessage
	messageCount int // advisory capacity hint from create_new_session
	lastActivity time.Time
}

func (s *session) touch() {
	s.lastActivity = time.Now()
}

// Broker is the top-level server state: sessions, accounts and
// pending login challenges, each independently guarded, plus a
// background idle-eviction loop (spec.md §5).
type Broker struct {
	suite ciphersuite.Suite
	log   *zap.Logger

	sessionsMu sync.RWMutex
	sessions   map[string]*session

	accountsMu sync.RWMutex
	accounts   map[PubKey]*account
	tokens     map[string]PubKey // accessToken -> pubkey

	challengesMu sync.Mutex
	challenges   map[PubKey]challengeEntry

	idleTimeout time.Duration
	stop        chan struct{}
}

// NewBroker constructs a Broker verifying login signatures under
// suite, and starts its background idle-session eviction loop.
func NewBroker(suite ciphersuite.Suite, log *zap.Logger, idleTimeout time.Duration) *Broker {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	b := &Broker{
		suite:       suite,
		log:         log,
		sessions:    make(map[string]*session),
		accounts:    make(map[PubKey]*account),
		tokens:      make(map[string]PubKey),
		challenges:  make(map[PubKey]challengeEntry),
		idleTimeout: idleTimeout,
		stop:        make(chan struct{}),
	}
	go b.evictIdleSessions()
	return b
}

// Close stops the background eviction loop.
func (b *Broker) Close() {
	close(b.stop)
}

func (b *Broker) evictIdleSessions() {
	ticker := time.NewTicker(b.idleTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-b.idleTimeout)
			b.sessionsMu.Lock()
			for id, s := range b.sessions {
				s.mu.Lock()
				expired := s.lastActivity.Before(cutoff)
				s.mu.Unlock()
				if expired {
					delete(b.sessions, id)
					b.log.Info("evicted idle session", zap.String("session_id", id))
				}
			}
			b.sessionsMu.Unlock()
		case <-b.stop:
			return
		}
	}
}

// Challenge issues a fresh, TTL-bound nonce for pubkey to sign.
func (b *Broker) Challenge(pubkey PubKey) ([]byte, error) {
	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		return nil, frosterr.Wrap(frosterr.NetworkFailure, err, "generate challenge")
	}
	b.challengesMu.Lock()
	b.challenges[pubkey] = challengeEntry{nonce: nonce, expiresAt: time.Now().Add(challengeTTL)}
	b.challengesMu.Unlock()
	return nonce, nil
}

// Login verifies signature as a Schnorr signature over the
// outstanding challenge for pubkey and, on success, mints an opaque
// bearer access token.
func (b *Broker) Login(pubkey PubKey, signature frost.Signature) (string, error) {
	b.challengesMu.Lock()
	entry, ok := b.challenges[pubkey]
	delete(b.challenges, pubkey)
	b.challengesMu.Unlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return "", frosterr.New(frosterr.Unauthorized, "no outstanding challenge for pubkey")
	}

	keyBytes, err := hex.DecodeString(string(pubkey))
	if err != nil {
		return "", frosterr.Wrap(frosterr.InvalidArgument, err, "decode pubkey")
	}
	verifyingKey, err := b.suite.DeserializeElement(keyBytes)
	if err != nil {
		return "", frosterr.Wrap(frosterr.InvalidArgument, err, "decode pubkey element")
	}
	if !frost.VerifySignature(b.suite, signature, verifyingKey, entry.nonce) {
		return "", frosterr.New(frosterr.Unauthorized, "challenge signature verification failed")
	}

	token := make([]byte, 32)
	if _, err := rand.Read(token); err != nil {
		return "", frosterr.Wrap(frosterr.NetworkFailure, err, "generate access token")
	}
	accessToken := hex.EncodeToString(token)

	b.accountsMu.Lock()
	b.accounts[pubkey] = &account{pubkey: pubkey, accessToken: accessToken}
	b.tokens[accessToken] = pubkey
	b.accountsMu.Unlock()

	return accessToken, nil
}

// Logout revokes token.
func (b *Broker) Logout(token string) {
	b.accountsMu.Lock()
	defer b.accountsMu.Unlock()
	if pubkey, ok := b.tokens[token]; ok {
		delete(b.tokens, token)
		delete(b.accounts, pubkey)
	}
}

// authenticate resolves an access token to its pubkey, failing
// Unauthorized on an unknown or revoked token.
func (b *Broker) authenticate(token string) (PubKey, error) {
	b.accountsMu.RLock()
	defer b.accountsMu.RUnlock()
	pubkey, ok := b.tokens[token]
	if !ok {
		return "", frosterr.New(frosterr.Unauthorized, "invalid or expired access token")
	}
	return pubkey, nil
}

// CreateSession opens a new session with a fixed member set; the
// caller becomes the owner.
func (b *Broker) CreateSession(token string, members []PubKey, coordinator PubKey, messageCount int) (string, error) {
	caller, err := b.authenticate(token)
	if err != nil {
		return "", err
	}
	if len(members) == 0 {
		return "", frosterr.New(frosterr.InvalidArgument, "session must have at least one member")
	}
	memberSet := make(map[PubKey]bool, len(members))
	ownerListed := false
	for _, m := range members {
		memberSet[m] = true
		if m == caller {
			ownerListed = true
		}
	}
	if !ownerListed {
		return "", frosterr.New(frosterr.InvalidArgument, "owner must be among session members")
	}

	id := uuid.NewString()
	s := &session{
		id:           id,
		owner:        caller,
		members:      memberSet,
		queues:       make(map[PubKey][]QueuedMessage, len(memberSet)),
		messageCount: messageCount,
		lastActivity: time.Now(),
	}
	for m := range memberSet {
		if messageCount > 0 {
			s.queues[m] = make([]QueuedMessage, 0, messageCount)
		}
	}

	b.sessionsMu.Lock()
	b.sessions[id] = s
	b.sessionsMu.Unlock()

	b.log.Info("created session", zap.String("session_id", id), zap.String("owner", string(caller)), zap.Int("coordinator_member", boolToInt(memberSet[coordinator])))
	return id, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (b *Broker) lookupSession(id string) (*session, error) {
	b.sessionsMu.RLock()
	defer b.sessionsMu.RUnlock()
	s, ok := b.sessions[id]
	if !ok {
		return nil, frosterr.New(frosterr.NotFound, "no such session")
	}
	return s, nil
}

// Send enqueues one copy of msg onto every listed recipient's FIFO
// queue. Atomic with respect to a single session: either every listed
// recipient receives the message or none do.
func (b *Broker) Send(token, sessionID string, recipients []PubKey, msg []byte) error {
	caller, err := b.authenticate(token)
	if err != nil {
		return err
	}
	s, err := b.lookupSession(sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.members[caller] {
		return frosterr.New(frosterr.NotAMember, "caller is not a member of this session")
	}
	for _, r := range recipients {
		if !s.members[r] {
			return frosterr.WithOffender(frosterr.NotAMember, string(r), "recipient is not a member of this session")
		}
	}
	for _, r := range recipients {
		s.queues[r] = append(s.queues[r], QueuedMessage{Sender: caller, Msg: msg})
	}
	s.touch()
	return nil
}

// Receive drains and returns the caller's queue in arrival order.
// Non-blocking: returns an empty slice if nothing is queued.
func (b *Broker) Receive(token, sessionID string) ([]QueuedMessage, error) {
	caller, err := b.authenticate(token)
	if err != nil {
		return nil, err
	}
	s, err := b.lookupSession(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.members[caller] {
		return nil, frosterr.New(frosterr.NotAMember, "caller is not a member of this session")
	}
	msgs := s.queues[caller]
	s.queues[caller] = nil
	s.touch()
	return msgs, nil
}

// CloseSession deletes all queues and state for sessionID. Owner-only.
func (b *Broker) CloseSession(token, sessionID string) error {
	caller, err := b.authenticate(token)
	if err != nil {
		return err
	}
	s, err := b.lookupSession(sessionID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	owner := s.owner
	s.mu.Unlock()
	if owner != caller {
		return frosterr.New(frosterr.Unauthorized, "only the session owner may close it")
	}

	b.sessionsMu.Lock()
	delete(b.sessions, sessionID)
	b.sessionsMu.Unlock()
	return nil
}

// ListSessions returns the ids of every session the caller belongs to.
func (b *Broker) ListSessions(token string) ([]string, error) {
	caller, err := b.authenticate(token)
	if err != nil {
		return nil, err
	}

	b.sessionsMu.RLock()
	defer b.sessionsMu.RUnlock()
	var ids []string
	for id, s := range b.sessions {
		s.mu.Lock()
		member := s.members[caller]
		s.mu.Unlock()
		if member {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
