package main

import (
	"fmt"
	"os"

	"github.com/getsops/sops/v3"
	"github.com/getsops/sops/v3/decrypt"
	"github.com/mozilla-services/yaml"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/evently/walletpass/pass"
	"github.com/evently/walletpass/signer"
	"github.com/evently/walletpass/signer/pkpass"
)

// configuration is the part of a walletpass configuration passctl reads
type configuration struct {
	Signers []signer.Configuration
}

// loadFromFile reads a configuration from a local file, decrypting it
// with sops when it carries sops metadata
func (c *configuration) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	confData, err := decrypt.Data(data, "yaml")
	if err != nil {
		if err != sops.MetadataNotFound {
			return errors.Wrap(err, "failed to load sops encrypted configuration")
		}
		confData = data
	}
	return yaml.Unmarshal(confData, c)
}

func (c *configuration) signer(id string) (signer.Configuration, error) {
	for _, s := range c.Signers {
		if s.ID == id {
			return s, nil
		}
	}
	return signer.Configuration{}, fmt.Errorf("signer %q not found in configuration", id)
}

type buildOptions struct {
	config   string
	signerID string
	ticket   string
	output   string
}

func newBuildCmd() *cobra.Command {
	opts := &buildOptions{}
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build and sign a pass for a ticket",
		Long: `Build and sign a pass for a ticket, using a signer of a walletpass configuration.

The ticket is read from a JSON file and must carry its event, no database is queried.

Example:
  passctl build --config walletpass.yaml --signer gala --ticket ticket.json -o ticket.pkpass`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.config, "config", "c", "walletpass.yaml", "Path to the walletpass configuration")
	cmd.Flags().StringVarP(&opts.signerID, "signer", "s", "", "ID of the signer to use [required]")
	cmd.Flags().StringVarP(&opts.ticket, "ticket", "t", "", "Path to the ticket JSON file [required]")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Path of the pass to write, defaults to <serial number>.pkpass")
	cmd.MarkFlagRequired("signer")
	cmd.MarkFlagRequired("ticket")
	return cmd
}

func runBuild(cmd *cobra.Command, opts *buildOptions) error {
	var conf configuration
	if err := conf.loadFromFile(opts.config); err != nil {
		return errors.Wrapf(err, "failed to load configuration %q", opts.config)
	}
	signerConf, err := conf.signer(opts.signerID)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(opts.ticket)
	if err != nil {
		return err
	}
	ticket, err := pass.DecodeTicket(data)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	s, err := pkpass.New(ctx, signerConf, pkpass.Dependencies{})
	if err != nil {
		return err
	}
	signed, err := s.SignPass(ctx, ticket)
	if err != nil {
		return err
	}
	output := opts.output
	if output == "" {
		output = signed.SerialNumber + ".pkpass"
	}
	if err := os.WriteFile(output, signed.Archive, 0644); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"signer":        signerConf.ID,
		"serial_number": signed.SerialNumber,
		"size":          len(signed.Archive),
	}).Debug("pass signed")
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (serial number %s, %d bytes)\n", output, signed.SerialNumber, len(signed.Archive))
	return nil
}
