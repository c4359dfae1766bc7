package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/ballotkit/voting-dapp/client"
	"github.com/ballotkit/voting-dapp/config"
	"github.com/ballotkit/voting-dapp/dapp"
)

func longDesc(s string) string {
	return strings.TrimSpace(s)
}

var (
	serveLong = longDesc(`
Serve the voting page over HTTP. The page is served even when no wallet is configured, in which
case its buttons report that the contract cannot be called.
`)
	serveExample = `  votingctl serve --config voting.yaml --listen :8080`
)

func (a *App) newServeCmd() *cobra.Command {
	var listenAddr string

	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Serve the voting page",
		Long:    serveLong,
		Example: serveExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.load()
			if err != nil {
				return err
			}

			env, err := s.environment(cmd.Context(), a.newEnv)
			if err != nil {
				return err
			}

			page, err := dapp.Load(cmd.Context(), s.lggr, env)
			if err != nil {
				return fmt.Errorf("failed to load voting page: %w", err)
			}

			serverCfg := dapp.ServerConfig{
				ListenAddr:     s.cfg.HTTP.ListenAddr,
				AllowedOrigins: s.cfg.HTTP.AllowedOrigins,
			}
			if listenAddr != "" {
				serverCfg.ListenAddr = listenAddr
			}

			return dapp.NewServer(s.lggr, page, serverCfg).ListenAndServe(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "Address to listen on, overrides http.listen_addr")

	return cmd
}

func (a *App) newProposeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "propose <description>",
		Short:   "Create a proposal",
		Example: `  votingctl propose "Build a park"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}

			tx, err := c.SubmitProposal(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Proposal submitted in transaction %s\n", tx.Hash().Hex())

			return nil
		},
	}
}

func (a *App) newVoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "vote <proposal-index>",
		Short:   "Vote for a proposal",
		Example: `  votingctl vote 0`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}

			tx, err := c.SubmitVote(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Vote submitted in transaction %s\n", tx.Hash().Hex())

			return nil
		},
	}
}

func (a *App) newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "get <proposal-index>",
		Short:   "Show a proposal through getProposal",
		Example: `  votingctl get 0`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}

			p, err := c.FetchProposal(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), client.FormatProposal(p))

			return nil
		},
	}
}

func (a *App) newProposalCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "proposal <index>",
		Short:   "Show an entry of the public proposals array",
		Example: `  votingctl proposal 0`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}

			p, err := c.Proposal(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), client.FormatProposal(p))

			return nil
		},
	}
}

func (a *App) newHasVotedCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "has-voted <address>",
		Short:   "Show whether an account has voted",
		Example: `  votingctl has-voted 0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !common.IsHexAddress(args[0]) {
				return fmt.Errorf("invalid address %q", args[0])
			}

			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}

			voted, err := c.HasVoted(cmd.Context(), common.HexToAddress(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), voted)

			return nil
		},
	}
}

func (a *App) newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}

	var format string
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.load()
			if err != nil {
				return err
			}

			return config.Render(cmd.OutOrStdout(), s.cfg, format)
		},
	}
	showCmd.Flags().StringVarP(&format, "format", "f", config.FormatYAML, "Output format, yaml or toml")

	configCmd.AddCommand(showCmd)

	return configCmd
}

// ExitCode maps an error returned by Run to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, client.ErrNoProvider), errors.Is(err, client.ErrNoAccounts):
		return 3
	default:
		return 1
	}
}
