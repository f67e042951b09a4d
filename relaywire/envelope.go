// Package relaywire defines the small tagged envelope the coordinator
// and participant orchestrators (C9) exchange over a noisechannel
// transport (C7) relayed opaquely through relayserver (C6). The relay
// only ever sees Noise transport ciphertext; Kind and Payload are
// visible only after noisechannel.Channel.Open, so the envelope need
// not itself be encrypted, only framed, the same flattening approach
// keys/package.go and dkg/wire.go use for their own wire shadows.
package relaywire

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/threshold-network/frost-relay/frosterr"
)

// Kind tags what a signing-round Envelope carries, so a receiver can
// dispatch on it without first attempting every possible decode.
type Kind string

const (
	KindHandshake Kind = "handshake"
	KindRound1    Kind = "round1"
	KindPackage   Kind = "package"
	KindRound2    Kind = "round2"
)

// Envelope is one message passed between a coordinator and a signer.
// Payload holds Noise-sealed bytes for every Kind except KindHandshake,
// whose Payload is the raw (unsealed) Noise handshake message.
type Envelope struct {
	Kind    Kind
	Payload []byte
}

// Serialize encodes env for transport as a relayserver message body.
func Serialize(env Envelope) ([]byte, error) {
	b, err := cbor.Marshal(env)
	if err != nil {
		return nil, frosterr.Wrap(frosterr.MalformedEncoding, err, "encode envelope")
	}
	return b, nil
}

// Deserialize decodes a message produced by Serialize.
func Deserialize(data []byte) (Envelope, error) {
	var env Envelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return Envelope{}, frosterr.Wrap(frosterr.MalformedEncoding, err, "decode envelope")
	}
	return env, nil
}
