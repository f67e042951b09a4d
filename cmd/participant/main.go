// Command participant drives one signer's side of a live FROST signing
// attempt (spec.md §4.4/§6): it authenticates to a relayserver, opens a
// Noise IK channel to the coordinator (C7), and runs frost.Round1 and
// frost.Round2 in response to the coordinator's messages. No protocol
// logic lives here beyond message sequencing: the cryptography is
// entirely delegated to the frost, noisechannel and relaywire packages.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	_ "github.com/threshold-network/frost-relay/ciphersuite/ed25519"
	_ "github.com/threshold-network/frost-relay/ciphersuite/redpallas"
	"github.com/threshold-network/frost-relay/frost"
	"github.com/threshold-network/frost-relay/internal/cliutil"
	"github.com/threshold-network/frost-relay/keys"
	"github.com/threshold-network/frost-relay/noisechannel"
	"github.com/threshold-network/frost-relay/relayclient"
	"github.com/threshold-network/frost-relay/relaywire"
	"github.com/threshold-network/frost-relay/store"
)

var (
	suiteName       string
	storePath       string
	identityName    string
	groupName       string
	coordinatorName string
	sessionID       string
	pollInterval    time.Duration
	timeout         time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "participant",
	Short: "Take part in one live FROST signing attempt",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVar(&suiteName, "suite", "ed25519", "ciphersuite: ed25519 or redpallas")
	rootCmd.Flags().StringVar(&storePath, "store", "frost-store.cbor", "path to the local persistence file")
	rootCmd.Flags().StringVar(&identityName, "identity", "", "this participant's Identity name in the store (required)")
	rootCmd.Flags().StringVar(&groupName, "group", "", "the completed Group to sign under (required)")
	rootCmd.Flags().StringVar(&coordinatorName, "coordinator", "", "the coordinator's Contact name in the store (required)")
	rootCmd.Flags().StringVar(&sessionID, "session", "", "the session id announced by the coordinator (required)")
	rootCmd.Flags().DurationVar(&pollInterval, "poll-interval", 200*time.Millisecond, "how often to poll relayserver for new messages")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "how long to wait for the coordinator at each step")
	rootCmd.MarkFlagRequired("identity")
	rootCmd.MarkFlagRequired("group")
	rootCmd.MarkFlagRequired("coordinator")
	rootCmd.MarkFlagRequired("session")
}

func run(cmd *cobra.Command, args []string) error {
	suite, err := cliutil.ResolveSuite(suiteName)
	if err != nil {
		return err
	}

	doc, err := store.NewFileStore(storePath).Load()
	if err != nil {
		return err
	}
	identity, err := doc.IdentityByName(identityName)
	if err != nil {
		return err
	}
	group, err := doc.GroupByName(groupName)
	if err != nil {
		return err
	}
	coordinator, err := doc.ContactByName(coordinatorName)
	if err != nil {
		return err
	}

	kp, err := keys.DeserializeKeyPackage(suite, group.MyKeyPackage)
	if err != nil {
		return err
	}
	myIDScalar, err := suite.DeserializeScalar(group.MyIdentifier)
	if err != nil {
		return err
	}
	identifier, err := keys.IdentifierFromScalar(suite, myIDScalar)
	if err != nil {
		return err
	}

	selfPriv, err := suite.DeserializeScalar(identity.SigningPrivate)
	if err != nil {
		return err
	}
	selfPub, err := suite.DeserializeElement(identity.SigningPublic)
	if err != nil {
		return err
	}
	selfPubHex := hex.EncodeToString(identity.SigningPublic)
	coordinatorPubHex := coordinator.PubKey

	client := relayclient.New(group.ServerURL)
	challengeHex, err := client.Challenge(selfPubHex)
	if err != nil {
		return err
	}
	challenge, err := hex.DecodeString(challengeHex)
	if err != nil {
		return fmt.Errorf("decode challenge: %w", err)
	}
	sigHex, err := relayclient.SignChallenge(suite, selfPriv, selfPub, challenge, rand.Reader)
	if err != nil {
		return err
	}
	if _, err := client.Login(selfPubHex, sigHex); err != nil {
		return err
	}

	staticKey := noisechannel.StaticKey{Private: identity.NoiseStaticPriv, Public: identity.NoiseStaticPub}
	channel, err := noisechannel.NewInitiator(staticKey, coordinator.NoiseStatic)
	if err != nil {
		return err
	}

	msg1, err := channel.WriteHandshakeMessage(nil)
	if err != nil {
		return err
	}
	if err := sendEnvelope(client, sessionID, coordinatorPubHex, relaywire.Envelope{Kind: relaywire.KindHandshake, Payload: msg1}); err != nil {
		return err
	}

	handshakeReply, err := waitFor(client, sessionID, coordinatorPubHex, relaywire.KindHandshake, pollInterval, timeout)
	if err != nil {
		return fmt.Errorf("waiting for coordinator handshake reply: %w", err)
	}
	if _, err := channel.ReadHandshakeMessage(handshakeReply); err != nil {
		return err
	}

	nonces, commitments, err := frost.Round1(suite, identifier, kp.SigningShare, rand.Reader)
	if err != nil {
		return err
	}
	commitmentsWire, err := frost.SerializeSigningCommitments(suite, commitments)
	if err != nil {
		return err
	}
	sealed, err := channel.Seal(commitmentsWire)
	if err != nil {
		return err
	}
	if err := sendEnvelope(client, sessionID, coordinatorPubHex, relaywire.Envelope{Kind: relaywire.KindRound1, Payload: sealed}); err != nil {
		return err
	}

	packageSealed, err := waitFor(client, sessionID, coordinatorPubHex, relaywire.KindPackage, pollInterval, timeout)
	if err != nil {
		return fmt.Errorf("waiting for signing package: %w", err)
	}
	packageWire, err := channel.Open(packageSealed)
	if err != nil {
		return err
	}
	signingPackage, err := frost.DeserializeSigningPackage(suite, packageWire)
	if err != nil {
		return err
	}

	share, err := frost.Round2(suite, identifier, kp.SigningShare, kp.VerifyingKey, &nonces, signingPackage)
	if err != nil {
		return err
	}
	shareWire, err := frost.SerializeSignatureShare(suite, share)
	if err != nil {
		return err
	}
	shareSealed, err := channel.Seal(shareWire)
	if err != nil {
		return err
	}
	if err := sendEnvelope(client, sessionID, coordinatorPubHex, relaywire.Envelope{Kind: relaywire.KindRound2, Payload: shareSealed}); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "signature share sent")
	return nil
}

func sendEnvelope(client *relayclient.Client, sessionID, recipient string, env relaywire.Envelope) error {
	data, err := relaywire.Serialize(env)
	if err != nil {
		return err
	}
	return client.Send(sessionID, []string{recipient}, hex.EncodeToString(data))
}

// waitFor polls Receive until a message of the given Kind from sender
// arrives, or timeout elapses. Messages from other senders or of a
// different Kind than currently expected are dropped: this CLI only
// ever waits for one specific next message at a time.
func waitFor(client *relayclient.Client, sessionID, sender string, kind relaywire.Kind, interval, timeout time.Duration) ([]byte, error) {
	deadline := time.Now().Add(timeout)
	for {
		msgs, err := client.Receive(sessionID)
		if err != nil {
			return nil, err
		}
		for _, m := range msgs {
			if m.Sender != sender {
				continue
			}
			raw, err := hex.DecodeString(m.Msg)
			if err != nil {
				continue
			}
			env, err := relaywire.Deserialize(raw)
			if err != nil {
				continue
			}
			if env.Kind == kind {
				return env.Payload, nil
			}
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("timed out waiting for a %s message from %s", kind, sender)
		}
		time.Sleep(interval)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
