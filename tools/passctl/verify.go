package main

import (
	"crypto/x509"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/evently/walletpass/signer/pkpass"
	verifier "github.com/evently/walletpass/verifier/pkpass"
)

func newVerifyCmd() *cobra.Command {
	var roots string
	cmd := &cobra.Command{
		Use:   "verify <file.pkpass>",
		Short: "Verify the manifest and signature of a pass",
		Long: `Verify the digests of the manifest of a pass and its detached signature.

Without --roots the certificate chain of the signer is not checked.

Example:
  passctl verify --roots wwdr.pem ticket.pkpass`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, args[0], roots)
		},
	}
	cmd.Flags().StringVarP(&roots, "roots", "r", "", "Path to a PEM file of trusted root certificates")
	return cmd
}

func runVerify(cmd *cobra.Command, path, rootsPath string) error {
	archive, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var roots *x509.CertPool
	if rootsPath != "" {
		pemData, err := os.ReadFile(rootsPath)
		if err != nil {
			return err
		}
		roots = x509.NewCertPool()
		if !roots.AppendCertsFromPEM(pemData) {
			return fmt.Errorf("no certificate found in %q", rootsPath)
		}
	}
	res, err := verifier.VerifyArchive(archive, roots)
	if err != nil {
		return errors.Wrapf(err, "%s is invalid", path)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: valid\n", path)
	fmt.Fprintf(out, "signer: %s\n", res.Signer.Subject)
	fmt.Fprintf(out, "issuer: %s\n", res.Signer.Issuer)
	if !res.SigningTime.IsZero() {
		fmt.Fprintf(out, "signing time: %s\n", res.SigningTime.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(out, "files: %d\n", len(res.Files))
	return nil
}

func newManifestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "manifest <file.pkpass>",
		Short: "Print the manifest of a pass",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runManifest(cmd, args[0])
		},
	}
}

// runManifest prints the digest and name of each file listed in the
// manifest, sorted by name
func runManifest(cmd *cobra.Command, path string) error {
	archive, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	files, err := pkpass.Unpack(archive)
	if err != nil {
		return err
	}
	for _, f := range files {
		if f.Name != pkpass.ManifestName {
			continue
		}
		m, err := pkpass.ParseManifest(f.Data)
		if err != nil {
			return err
		}
		names := make([]string, 0, len(m))
		for name := range m {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", m[name], name)
		}
		return nil
	}
	return fmt.Errorf("%s has no %s", path, pkpass.ManifestName)
}
