package main

import (
	"encoding/json"
	"fmt"
	"os"

	"articlesync/pkg/federation"
	"articlesync/pkg/types"

	"github.com/spf13/cobra"
)

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Print the local article collection",
		Long:  `Export the locally authored articles as a collection and print it as JSON.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger(verbose)
			defer logger.Sync()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			in, err := newInstance(cfg, logger)
			if err != nil {
				return err
			}

			c, err := in.dispatcher.Export(cmd.Context(), federation.KindArticles)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(c)
		},
	}
}

func fetchCmd() *cobra.Command {
	var (
		peerAddress string
		domain      string
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch and import a peer's article collection",
		Long: `Fetch the article collection served at --peer, verify that it belongs to
--domain and import it. Without --domain the peer must be configured.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger(verbose)
			defer logger.Sync()

			if peerAddress == "" {
				return fmt.Errorf("--peer is required")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			in, err := newInstance(cfg, logger)
			if err != nil {
				return err
			}
			defer in.client.Close()

			peer, err := resolvePeer(in, peerAddress, domain)
			if err != nil {
				return err
			}

			merged, err := in.sync.Sync(cmd.Context(), peer)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(merged)
			}
			fmt.Println(renderArticles(peer.Instance.ID, merged))
			return nil
		},
	}

	cmd.Flags().StringVarP(&peerAddress, "peer", "p", "", "peer federation address (host:port)")
	cmd.Flags().StringVarP(&domain, "domain", "d", "", "expected instance of the collection owner")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print imported articles as JSON")

	return cmd
}

// resolvePeer pairs address with the instance it must serve. An explicit
// domain wins and is added to the peer directory so its articles resolve;
// otherwise the configured peer at that address is used.
func resolvePeer(in *instance, address, domain string) (federation.Peer, error) {
	if domain != "" {
		id := domain
		if _, err := federation.ParseIdentity(domain); err != nil {
			id = "https://" + domain
		}
		peer := federation.Peer{Instance: types.Instance{ID: id}, Address: address}
		if err := in.directory.Add(peer); err != nil {
			return federation.Peer{}, err
		}
		return peer, nil
	}

	for _, p := range in.directory.Peers() {
		if p.Address == address {
			return p, nil
		}
	}
	return federation.Peer{}, fmt.Errorf("no configured peer at %s, pass --domain", address)
}
