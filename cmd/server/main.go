// Command server runs the relayserver rendezvous broker of spec.md
// §4.5/§6 as a standalone HTTPS process. No protocol logic lives here;
// it only wires flags to relayserver.NewBroker/NewRouter and
// http.ListenAndServeTLS.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "github.com/threshold-network/frost-relay/ciphersuite/ed25519"
	_ "github.com/threshold-network/frost-relay/ciphersuite/redpallas"
	"github.com/threshold-network/frost-relay/internal/cliutil"
	"github.com/threshold-network/frost-relay/relayserver"
)

var (
	suiteName   string
	ip          string
	port        int
	tlsCert     string
	tlsKey      string
	idleTimeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the FROST relay rendezvous server",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVar(&suiteName, "suite", "ed25519", "ciphersuite accounts authenticate under: ed25519 or redpallas")
	rootCmd.Flags().StringVar(&ip, "ip", "0.0.0.0", "address to listen on")
	rootCmd.Flags().IntVar(&port, "port", 8443, "port to listen on")
	rootCmd.Flags().StringVar(&tlsCert, "tls-cert", "", "path to TLS certificate (required)")
	rootCmd.Flags().StringVar(&tlsKey, "tls-key", "", "path to TLS private key (required)")
	rootCmd.Flags().DurationVar(&idleTimeout, "idle-timeout", relayserver.DefaultIdleTimeout, "session inactivity timeout before eviction")
	rootCmd.MarkFlagRequired("tls-cert")
	rootCmd.MarkFlagRequired("tls-key")
}

func run(cmd *cobra.Command, args []string) error {
	suite, err := cliutil.ResolveSuite(suiteName)
	if err != nil {
		return err
	}

	log, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer log.Sync()

	broker := relayserver.NewBroker(suite, log, idleTimeout)
	defer broker.Close()

	router := relayserver.NewRouter(broker)
	addr := fmt.Sprintf("%s:%d", ip, port)
	log.Info("relay server listening", zap.String("addr", addr))
	return http.ListenAndServeTLS(addr, tlsCert, tlsKey, router)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
