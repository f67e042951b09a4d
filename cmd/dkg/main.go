// Command dkg drives the three-phase Pedersen verifiable DKG of
// spec.md §4.3 as a sequence of separate process invocations, one per
// participant per phase, communicating through files: "keygen"
// provisions a participant's ephemeral DKG transport keypair,
// "part-1" broadcasts Feldman commitments, "part-2" exchanges pairwise
// shares sealed under the recipient's DKG public key
// (dkg.SealRound2Package), and "part-3" verifies and derives the final
// key material. State survives between invocations via
// dkg.Snapshot/Restore. No protocol logic lives here: every phase
// delegates directly to the dkg package.
package main

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/threshold-network/frost-relay/ciphersuite"
	_ "github.com/threshold-network/frost-relay/ciphersuite/ed25519"
	_ "github.com/threshold-network/frost-relay/ciphersuite/redpallas"
	"github.com/threshold-network/frost-relay/dkg"
	"github.com/threshold-network/frost-relay/ephemeral"
	"github.com/threshold-network/frost-relay/internal/cliutil"
	"github.com/threshold-network/frost-relay/keys"
)

var rootCmd = &cobra.Command{
	Use:   "dkg",
	Short: "Run one participant's side of the verifiable DKG",
}

var suiteName string

func init() {
	rootCmd.PersistentFlags().StringVar(&suiteName, "suite", "ed25519", "ciphersuite: ed25519 or redpallas")
	rootCmd.AddCommand(keygenCmd, part1Cmd, part2Cmd, part3Cmd)
}

// keygen

var keygenOut string

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate this participant's ephemeral DKG transport keypair",
	RunE:  runKeygen,
}

func init() {
	keygenCmd.Flags().StringVarP(&keygenOut, "out-prefix", "o", "dkg", "file prefix; writes <prefix>.dkgpriv and <prefix>.dkgpub")
}

func runKeygen(cmd *cobra.Command, args []string) error {
	kp, err := ephemeral.GenerateKeyPair()
	if err != nil {
		return err
	}
	if err := os.WriteFile(keygenOut+".dkgpriv", kp.PrivateKey[:], 0o600); err != nil {
		return fmt.Errorf("writing private key: %w", err)
	}
	if err := os.WriteFile(keygenOut+".dkgpub", kp.PublicKey[:], 0o644); err != nil {
		return fmt.Errorf("writing public key: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s.dkgpriv and %s.dkgpub\n", keygenOut, keygenOut)
	return nil
}

// part-1

var (
	p1Self      string
	p1Threshold int
	p1Members   string
	p1StateOut  string
	p1Round1Out string
)

var part1Cmd = &cobra.Command{
	Use:   "part-1",
	Short: "Broadcast Round 1 Feldman commitments",
	RunE:  runPart1,
}

func init() {
	part1Cmd.Flags().StringVar(&p1Self, "self", "", "this participant's number (required)")
	part1Cmd.Flags().IntVarP(&p1Threshold, "threshold", "t", 0, "signing threshold (required)")
	part1Cmd.Flags().StringVar(&p1Members, "members", "", "comma-separated participant numbers, including self (required)")
	part1Cmd.Flags().StringVar(&p1StateOut, "state-out", "dkg-state.bin", "file to write this participant's DKG state to")
	part1Cmd.Flags().StringVar(&p1Round1Out, "round1-out", "round1.bin", "file to write this participant's Round 1 broadcast to")
	part1Cmd.MarkFlagRequired("self")
	part1Cmd.MarkFlagRequired("threshold")
	part1Cmd.MarkFlagRequired("members")
}

func runPart1(cmd *cobra.Command, args []string) error {
	suite, err := cliutil.ResolveSuite(suiteName)
	if err != nil {
		return err
	}
	self, err := cliutil.ParseIdentifier(suite, p1Self)
	if err != nil {
		return err
	}
	members, err := cliutil.ParseMembers(suite, p1Members)
	if err != nil {
		return err
	}

	p, err := dkg.NewParticipant(suite, self, p1Threshold, members)
	if err != nil {
		return err
	}
	pkg, err := p.Part1(rand.Reader)
	if err != nil {
		return err
	}

	if err := writeSnapshot(p, p1StateOut); err != nil {
		return err
	}
	data, err := dkg.SerializeRound1Package(suite, pkg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(p1Round1Out, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", p1Round1Out, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s and %s\n", p1StateOut, p1Round1Out)
	return nil
}

// part-2

var (
	p2StateIn    string
	p2StateOut   string
	p2Round1Dir  string
	p2PeerKeyDir string
	p2OutDir     string
)

var part2Cmd = &cobra.Command{
	Use:   "part-2",
	Short: "Verify peers' proofs and emit sealed pairwise shares",
	RunE:  runPart2,
}

func init() {
	part2Cmd.Flags().StringVar(&p2StateIn, "state-in", "dkg-state.bin", "this participant's DKG state file, from part-1")
	part2Cmd.Flags().StringVar(&p2StateOut, "state-out", "dkg-state.bin", "file to write the updated DKG state to")
	part2Cmd.Flags().StringVar(&p2Round1Dir, "round1-dir", ".", "directory of every participant's Round 1 broadcast file (round1-member-<n>.bin)")
	part2Cmd.Flags().StringVar(&p2PeerKeyDir, "peer-keys-dir", ".", "directory of every participant's DKG public key (member-<n>.dkgpub)")
	part2Cmd.Flags().StringVar(&p2OutDir, "out-dir", ".", "directory to write per-recipient sealed share files into")
}

func runPart2(cmd *cobra.Command, args []string) error {
	suite, err := cliutil.ResolveSuite(suiteName)
	if err != nil {
		return err
	}
	p, err := readSnapshot(suite, p2StateIn)
	if err != nil {
		return err
	}

	entries, err := os.ReadDir(p2Round1Dir)
	if err != nil {
		return fmt.Errorf("reading round1-dir: %w", err)
	}
	var received []dkg.Round1Package
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(p2Round1Dir, e.Name()))
		if err != nil {
			return fmt.Errorf("reading %s: %w", e.Name(), err)
		}
		pkg, err := dkg.DeserializeRound1Package(suite, data)
		if err != nil {
			continue // not a round 1 file; skip unrelated entries in the directory
		}
		received = append(received, pkg)
	}

	outgoing, err := p.Part2(received)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(p2OutDir, 0o755); err != nil {
		return fmt.Errorf("creating out-dir: %w", err)
	}
	for _, pkg := range outgoing {
		recipientPub, err := loadPeerDKGPub(p2PeerKeyDir, pkg.Recipient)
		if err != nil {
			return err
		}
		sealed, err := dkg.SealRound2Package(suite, pkg, recipientPub)
		if err != nil {
			return err
		}
		data, err := dkg.SerializeSealedRound2Package(suite, sealed)
		if err != nil {
			return err
		}
		path := filepath.Join(p2OutDir, fmt.Sprintf("round2-from-%s-to-%s.bin", pkg.Sender.Hex(), pkg.Recipient.Hex()))
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}

	if err := writeSnapshot(p, p2StateOut); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d sealed share(s) to %s and updated state in %s\n", len(outgoing), p2OutDir, p2StateOut)
	return nil
}

// part-3

var (
	p3StateIn   string
	p3Round2Dir string
	p3DKGPriv   string
	p3KeyOut    string
	p3PubOut    string
)

var part3Cmd = &cobra.Command{
	Use:   "part-3",
	Short: "Verify Round 2 shares and derive the final key package",
	RunE:  runPart3,
}

func init() {
	part3Cmd.Flags().StringVar(&p3StateIn, "state-in", "dkg-state.bin", "this participant's DKG state file, from part-2")
	part3Cmd.Flags().StringVar(&p3Round2Dir, "round2-dir", ".", "directory of sealed Round 2 shares addressed to this participant")
	part3Cmd.Flags().StringVar(&p3DKGPriv, "dkg-priv", "dkg.dkgpriv", "this participant's DKG transport private key, from keygen")
	part3Cmd.Flags().StringVar(&p3KeyOut, "key-out", "key.keypkg", "file to write this participant's final KeyPackage to")
	part3Cmd.Flags().StringVar(&p3PubOut, "pub-out", "public.pubpkg", "file to write the group PublicKeyPackage to")
}

func runPart3(cmd *cobra.Command, args []string) error {
	suite, err := cliutil.ResolveSuite(suiteName)
	if err != nil {
		return err
	}
	p, err := readSnapshot(suite, p3StateIn)
	if err != nil {
		return err
	}

	privData, err := os.ReadFile(p3DKGPriv)
	if err != nil {
		return fmt.Errorf("reading dkg-priv: %w", err)
	}
	var priv ephemeral.PrivateKey
	if len(privData) != len(priv) {
		return fmt.Errorf("dkg-priv file has wrong length %d, want %d", len(privData), len(priv))
	}
	copy(priv[:], privData)
	privPtr := &priv

	entries, err := os.ReadDir(p3Round2Dir)
	if err != nil {
		return fmt.Errorf("reading round2-dir: %w", err)
	}
	var received []dkg.Round2Package
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(p3Round2Dir, e.Name()))
		if err != nil {
			return fmt.Errorf("reading %s: %w", e.Name(), err)
		}
		sealed, err := dkg.DeserializeSealedRound2Package(suite, data)
		if err != nil {
			continue // not a sealed share file; skip unrelated entries
		}
		pkg, err := dkg.OpenRound2Package(suite, sealed, privPtr)
		if err != nil {
			return err
		}
		received = append(received, pkg)
	}

	kp, pub, err := p.Part3(received)
	if err != nil {
		return err
	}

	kpData, err := keys.SerializeKeyPackage(kp)
	if err != nil {
		return err
	}
	if err := os.WriteFile(p3KeyOut, kpData, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", p3KeyOut, err)
	}
	pubData, err := keys.SerializePublicKeyPackage(pub)
	if err != nil {
		return err
	}
	if err := os.WriteFile(p3PubOut, pubData, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", p3PubOut, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s and %s\n", p3KeyOut, p3PubOut)
	return nil
}

// helpers shared by the subcommands above.

func writeSnapshot(p *dkg.Participant, path string) error {
	snap, err := p.Snapshot()
	if err != nil {
		return err
	}
	data, err := dkg.SerializeSnapshot(snap)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func readSnapshot(suite ciphersuite.Suite, path string) (*dkg.Participant, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	snap, err := dkg.DeserializeSnapshot(data)
	if err != nil {
		return nil, err
	}
	return dkg.Restore(suite, snap)
}

func loadPeerDKGPub(dir string, id keys.Identifier) (*ephemeral.PublicKey, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading peer-keys-dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	// The DKG public key files are conventionally named "member-<n>.dkgpub"
	// alongside a matching "member-<n>.id" holding the participant's
	// serialized Identifier, so a caller can locate the right file without
	// assuming identifier numbers stay small and sequential forever.
	for _, e := range entries {
		base := e.Name()
		if filepath.Ext(base) != ".dkgpub" {
			continue
		}
		idPath := filepath.Join(dir, base[:len(base)-len(".dkgpub")]+".id")
		idBytes, err := os.ReadFile(idPath)
		if err != nil {
			continue
		}
		if string(idBytes) != string(id.Bytes()) {
			continue
		}
		pubData, err := os.ReadFile(filepath.Join(dir, base))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", base, err)
		}
		var pub ephemeral.PublicKey
		if len(pubData) != len(pub) {
			return nil, fmt.Errorf("%s has wrong length %d, want %d", base, len(pubData), len(pub))
		}
		copy(pub[:], pubData)
		return &pub, nil
	}
	return nil, fmt.Errorf("no DKG public key found for identifier %s in %s", id.Hex(), dir)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
