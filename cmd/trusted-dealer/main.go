// Command trusted-dealer runs the Trusted Dealer key-generation scheme
// of spec.md §4.2: a single operator samples the joint secret directly
// and writes out every participant's KeyPackage plus the shared
// PublicKeyPackage. No protocol logic lives here; it only wires flags
// to dealer.GenerateKeyShares and keys.Serialize*.
package main

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	_ "github.com/threshold-network/frost-relay/ciphersuite/ed25519"
	_ "github.com/threshold-network/frost-relay/ciphersuite/redpallas"
	"github.com/threshold-network/frost-relay/dealer"
	"github.com/threshold-network/frost-relay/internal/cliutil"
	"github.com/threshold-network/frost-relay/keys"
)

var (
	suiteName    string
	threshold    int
	participants int
	outDir       string
)

var rootCmd = &cobra.Command{
	Use:   "trusted-dealer",
	Short: "Generate FROST key shares via a trusted dealer",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVar(&suiteName, "suite", "ed25519", "ciphersuite: ed25519 or redpallas")
	rootCmd.Flags().IntVarP(&threshold, "threshold", "t", 0, "signing threshold (required)")
	rootCmd.Flags().IntVarP(&participants, "participants", "n", 0, "number of participants (required)")
	rootCmd.Flags().StringVarP(&outDir, "out-dir", "o", ".", "directory to write key package files into")
	rootCmd.MarkFlagRequired("threshold")
	rootCmd.MarkFlagRequired("participants")
}

func run(cmd *cobra.Command, args []string) error {
	suite, err := cliutil.ResolveSuite(suiteName)
	if err != nil {
		return err
	}

	ids := make([]keys.Identifier, participants)
	for i := 0; i < participants; i++ {
		id, err := keys.NewIdentifier(suite, uint16(i+1))
		if err != nil {
			return err
		}
		ids[i] = id
	}

	packages, pub, err := dealer.GenerateKeyShares(suite, rand.Reader, threshold, participants, ids)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating out-dir: %w", err)
	}

	for i, kp := range packages {
		data, err := keys.SerializeKeyPackage(kp)
		if err != nil {
			return err
		}
		path := filepath.Join(outDir, fmt.Sprintf("participant-%d.keypkg", i+1))
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	}

	pubData, err := keys.SerializePublicKeyPackage(pub)
	if err != nil {
		return err
	}
	pubPath := filepath.Join(outDir, "public.pubpkg")
	if err := os.WriteFile(pubPath, pubData, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", pubPath, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", pubPath)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
